package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

const customEventColumns = `id, user_id, title, description, location, start_at, end_at, all_day, color, recurrence_rule, google_event_id, created_at, updated_at`

// CustomEventRepository reads and updates free-form events.
type CustomEventRepository struct {
	db *sqlx.DB
}

// NewCustomEventRepository constructs the repository.
func NewCustomEventRepository(db *sqlx.DB) *CustomEventRepository {
	return &CustomEventRepository{db: db}
}

// GetByID fetches one custom event.
func (r *CustomEventRepository) GetByID(ctx context.Context, id string) (*models.CustomEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM custom_events WHERE id = $1`, customEventColumns)
	var e models.CustomEvent
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUserWindow returns events intersecting [from, to). Recurring events
// are included whenever their anchor precedes the window end; occurrence
// filtering is the normalizer's job.
func (r *CustomEventRepository) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.CustomEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM custom_events
WHERE user_id = $1 AND start_at < $3 AND (end_at > $2 OR recurrence_rule IS NOT NULL)
ORDER BY start_at ASC`, customEventColumns)
	var items []models.CustomEvent
	if err := r.db.SelectContext(ctx, &items, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list custom events: %w", err)
	}
	return items, nil
}

// FindByGoogleEventID resolves a custom event from its linked remote event id.
func (r *CustomEventRepository) FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.CustomEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM custom_events WHERE user_id = $1 AND google_event_id = $2`, customEventColumns)
	var e models.CustomEvent
	if err := r.db.GetContext(ctx, &e, query, userID, googleEventID); err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyRemoteUpdate mirrors a remote change onto a custom event. Custom
// events are fully remote-controlled for these fields.
func (r *CustomEventRepository) ApplyRemoteUpdate(ctx context.Context, id, title, description string, location *string, startAt, endAt time.Time) error {
	const query = `UPDATE custom_events SET title = $2, description = $3, location = $4, start_at = $5, end_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, title, description, location, startAt, endAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply remote custom event update: %w", err)
	}
	return nil
}
