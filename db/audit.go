package db

import (
	"context"
	"fmt"
	"time"

	"github.com/itm-space/backend-resources/models"
)

// RecordEvent stores entry. A redelivered event with an EventID already on
// record is ignored and reported as not inserted.
func (a *AuditDB) RecordEvent(ctx context.Context, entry models.AuditEntry) (bool, error) {
	query := `
		INSERT INTO user_audit (event_id, action, user_id, username, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`

	res, err := a.DB.ExecContext(ctx, query,
		entry.EventID,
		entry.Action,
		entry.UserID,
		entry.Username,
		entry.Actor,
		time.Unix(entry.OccurredAt, 0).UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("error inserting audit entry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return rows == 1, nil
}

// ListForUser returns the audit trail for userID, oldest first.
func (a *AuditDB) ListForUser(ctx context.Context, userID string) ([]models.AuditEntry, error) {
	query := `
		SELECT event_id, action, user_id, username, actor, occurred_at
		FROM user_audit WHERE user_id = $1 ORDER BY occurred_at, recorded_at`

	rows, err := a.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			entry      models.AuditEntry
			occurredAt time.Time
		)
		if err := rows.Scan(
			&entry.EventID,
			&entry.Action,
			&entry.UserID,
			&entry.Username,
			&entry.Actor,
			&occurredAt); err != nil {
			return nil, fmt.Errorf("error scanning audit entry: %w", err)
		}
		entry.OccurredAt = occurredAt.Unix()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
