package models

import "time"

// NotificationType classifies user-facing sync notifications.
type NotificationType string

const (
	NotificationExternalDeletion  NotificationType = "EXTERNAL_DELETION"
	NotificationSyncConflict      NotificationType = "SYNC_CONFLICT"
	NotificationReconnectRequired NotificationType = "RECONNECT_REQUIRED"
)

// Notification is an append-only user-facing record. Sync failures surface
// here rather than as errors reaching the UI.
type Notification struct {
	ID         string            `db:"id" json:"id"`
	UserID     string            `db:"user_id" json:"user_id"`
	Type       NotificationType  `db:"type" json:"type"`
	Title      string            `db:"title" json:"title"`
	Body       string            `db:"body" json:"body"`
	SourceType *CalendarEventType `db:"source_type" json:"source_type,omitempty"`
	SourceID   *string           `db:"source_id" json:"source_id,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// Reminder is a concrete future reminder instant derived from an event.
type Reminder struct {
	ID         string            `db:"id" json:"id"`
	UserID     string            `db:"user_id" json:"user_id"`
	SourceType CalendarEventType `db:"source_type" json:"source_type"`
	SourceID   string            `db:"source_id" json:"source_id"`
	RemindAt   time.Time         `db:"remind_at" json:"remind_at"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}
