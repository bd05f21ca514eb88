package models

const (
	UserCreated = "created"
	UserDeleted = "deleted"
)

// UserEvent describes a change to a user made through this service.
type UserEvent struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	Actor     string `json:"actor"`
	Timestamp int64  `json:"timestamp"`
}

// AuditEntry is a stored record of a user event.
type AuditEntry struct {
	EventID    string `json:"eventId"`
	Action     string `json:"action"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Actor      string `json:"actor"`
	OccurredAt int64  `json:"occurredAt"`
}
