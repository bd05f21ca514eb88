package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupAuditDB(t *testing.T) *AuditDB {
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run database tests")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("users_audit"),
		postgres.WithUsername("users"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zerolog.Nop()
	auditDB, err := NewAuditDB("postgres", connString, &logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = auditDB.Close()
	})

	require.NoError(t, auditDB.Migrate())
	return auditDB
}

func TestRecordEvent(t *testing.T) {
	auditDB := setupAuditDB(t)
	ctx := context.Background()

	created := models.AuditEntry{
		EventID:    uuid.NewString(),
		Action:     models.UserCreated,
		UserID:     "user-1",
		Username:   "testuser",
		Actor:      "moderatorUser",
		OccurredAt: time.Now().Add(-time.Minute).Unix(),
	}
	deleted := models.AuditEntry{
		EventID:    uuid.NewString(),
		Action:     models.UserDeleted,
		UserID:     "user-1",
		Username:   "testuser",
		Actor:      "moderatorUser",
		OccurredAt: time.Now().Unix(),
	}

	inserted, err := auditDB.RecordEvent(ctx, created)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Redelivery of the same event is a no-op
	inserted, err = auditDB.RecordEvent(ctx, created)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = auditDB.RecordEvent(ctx, deleted)
	require.NoError(t, err)

	entries, err := auditDB.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []models.AuditEntry{created, deleted}, entries)

	entries, err = auditDB.ListForUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewAuditDB_MissingSource(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewAuditDB("postgres", "", &logger)
	assert.Error(t, err)
}
