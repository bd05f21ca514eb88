package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog"
)

// AuditRecorder stores user events. It reports false for an event already on record.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, entry models.AuditEntry) (bool, error)
}

// WelcomeSender notifies a newly created user.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, event models.UserEvent) error
}

// EventHandler processes user events taken off the queue. Mailer may be nil.
type EventHandler struct {
	Audit  AuditRecorder
	Mailer WelcomeSender
}

// Handle records event in the audit trail and, for a newly created user seen
// for the first time, sends the welcome email. A failed email is logged only
// so the audit record is not retried.
func (h *EventHandler) Handle(ctx context.Context, event models.UserEvent) error {
	logger := zerolog.Ctx(ctx).With().
		Str("event_id", event.ID).
		Str("action", event.Action).
		Str("user_id", event.UserID).
		Logger()

	if event.ID == "" || event.UserID == "" {
		return errors.New("event is missing id or userId")
	}

	inserted, err := h.Audit.RecordEvent(ctx, models.AuditEntry{
		EventID:    event.ID,
		Action:     event.Action,
		UserID:     event.UserID,
		Username:   event.Username,
		Actor:      event.Actor,
		OccurredAt: event.Timestamp,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to record audit entry")
		return fmt.Errorf("failed to record event %s: %w", event.ID, err)
	}

	if !inserted {
		logger.Info().Msg("Duplicate event skipped")
		return nil
	}

	logger.Info().Msg("Audit entry recorded")

	if event.Action == models.UserCreated && h.Mailer != nil {
		if err := h.Mailer.SendWelcome(ctx, event); err != nil {
			logger.Error().Err(err).Msg("Failed to send welcome email")
		}
	}

	return nil
}
