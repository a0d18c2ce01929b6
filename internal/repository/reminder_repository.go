package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

// ReminderRepository persists derived reminder instants for the notifier.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create appends one reminder row.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reminders (id, user_id, source_type, source_id, remind_at, created_at)
VALUES (:id, :user_id, :source_type, :source_id, :remind_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// DeleteBySource removes pending reminders for a source record, used before
// rescheduling when an event time changes.
func (r *ReminderRepository) DeleteBySource(ctx context.Context, userID string, sourceType models.CalendarEventType, sourceID string) error {
	const query = `DELETE FROM reminders WHERE user_id = $1 AND source_type = $2 AND source_id = $3`
	if _, err := r.db.ExecContext(ctx, query, userID, sourceType, sourceID); err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	return nil
}
