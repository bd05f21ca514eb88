package services

import (
	"context"
	"errors"
	"testing"

	"github.com/itm-space/backend-resources/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) RecordEvent(ctx context.Context, entry models.AuditEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendWelcome(ctx context.Context, event models.UserEvent) error {
	return m.Called(ctx, event).Error(0)
}

var createdEvent = models.UserEvent{
	ID:        "8a3a2d9e-5c1f-4a7b-9f77-2a4d9c1e6b10",
	Action:    models.UserCreated,
	UserID:    "user-1",
	Username:  "testuser",
	Email:     "test@example.com",
	FirstName: "Test",
	Actor:     "moderatorUser",
	Timestamp: 1700000000,
}

func TestHandle_CreatedSendsWelcome(t *testing.T) {
	audit, mailer := new(mockAudit), new(mockMailer)
	audit.On("RecordEvent", mock.Anything, models.AuditEntry{
		EventID:    createdEvent.ID,
		Action:     models.UserCreated,
		UserID:     "user-1",
		Username:   "testuser",
		Actor:      "moderatorUser",
		OccurredAt: 1700000000,
	}).Return(true, nil)
	mailer.On("SendWelcome", mock.Anything, createdEvent).Return(nil)

	h := &EventHandler{Audit: audit, Mailer: mailer}
	assert.NoError(t, h.Handle(context.Background(), createdEvent))

	audit.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandle_DuplicateSkipsWelcome(t *testing.T) {
	audit, mailer := new(mockAudit), new(mockMailer)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(false, nil)

	h := &EventHandler{Audit: audit, Mailer: mailer}
	assert.NoError(t, h.Handle(context.Background(), createdEvent))

	mailer.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything)
}

func TestHandle_DeletedNoWelcome(t *testing.T) {
	audit, mailer := new(mockAudit), new(mockMailer)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(true, nil)

	event := createdEvent
	event.Action = models.UserDeleted

	h := &EventHandler{Audit: audit, Mailer: mailer}
	assert.NoError(t, h.Handle(context.Background(), event))

	mailer.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything)
}

func TestHandle_MailFailureIsNotFatal(t *testing.T) {
	audit, mailer := new(mockAudit), new(mockMailer)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(true, nil)
	mailer.On("SendWelcome", mock.Anything, mock.Anything).Return(errors.New("ses unavailable"))

	h := &EventHandler{Audit: audit, Mailer: mailer}
	assert.NoError(t, h.Handle(context.Background(), createdEvent))
}

func TestHandle_NoMailer(t *testing.T) {
	audit := new(mockAudit)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(true, nil)

	h := &EventHandler{Audit: audit}
	assert.NoError(t, h.Handle(context.Background(), createdEvent))
}

func TestHandle_AuditFailure(t *testing.T) {
	audit := new(mockAudit)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(false, errors.New("connection reset"))

	h := &EventHandler{Audit: audit}
	assert.ErrorContains(t, h.Handle(context.Background(), createdEvent), "connection reset")
}

func TestHandle_InvalidEvent(t *testing.T) {
	audit := new(mockAudit)

	h := &EventHandler{Audit: audit}
	assert.Error(t, h.Handle(context.Background(), models.UserEvent{Action: models.UserCreated}))
	audit.AssertNotCalled(t, "RecordEvent", mock.Anything, mock.Anything)
}
