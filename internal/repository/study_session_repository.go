package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

const studySessionColumns = `id, user_id, course_id, subject, description, day_of_week, start_time, end_time, week_number, color, google_event_id, created_at, updated_at`

// StudySessionRepository reads and updates weekly study sessions.
type StudySessionRepository struct {
	db *sqlx.DB
}

// NewStudySessionRepository constructs the repository.
func NewStudySessionRepository(db *sqlx.DB) *StudySessionRepository {
	return &StudySessionRepository{db: db}
}

// ListByUser returns all sessions for a user. Session instants are derived
// from week/day/time-of-day, so window filtering happens after normalization.
func (r *StudySessionRepository) ListByUser(ctx context.Context, userID string) ([]models.StudySession, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE user_id = $1 ORDER BY week_number ASC, day_of_week ASC`, studySessionColumns)
	var items []models.StudySession
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	return items, nil
}

// FindByGoogleEventID resolves a session from its linked remote event id.
func (r *StudySessionRepository) FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.StudySession, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE user_id = $1 AND google_event_id = $2`, studySessionColumns)
	var s models.StudySession
	if err := r.db.GetContext(ctx, &s, query, userID, googleEventID); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateDescription persists the only remotely-writable session field. The
// session time is derived and never written from a remote change.
func (r *StudySessionRepository) UpdateDescription(ctx context.Context, id, description string) error {
	const query = `UPDATE study_sessions SET description = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, description, time.Now().UTC()); err != nil {
		return fmt.Errorf("update study session description: %w", err)
	}
	return nil
}
