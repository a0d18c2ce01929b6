package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

const assessmentColumns = `id, user_id, course_id, title, description, type, due_date, color, google_event_id, created_at, updated_at`

// AssessmentRepository reads and updates assessments owned by the planner.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// GetByID fetches one assessment.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE id = $1`, assessmentColumns)
	var a models.Assessment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByGoogleEventID resolves an assessment from its linked remote event id.
func (r *AssessmentRepository) FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE user_id = $1 AND google_event_id = $2`, assessmentColumns)
	var a models.Assessment
	if err := r.db.GetContext(ctx, &a, query, userID, googleEventID); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUserWindow returns assessments due within [from, to).
func (r *AssessmentRepository) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE user_id = $1 AND due_date >= $2 AND due_date < $3 ORDER BY due_date ASC`, assessmentColumns)
	var items []models.Assessment
	if err := r.db.SelectContext(ctx, &items, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return items, nil
}

// ApplyRemoteUpdate persists the only remotely-writable assessment fields:
// description and due date. Everything else is immutable from the remote side.
func (r *AssessmentRepository) ApplyRemoteUpdate(ctx context.Context, id, description string, dueDate time.Time) error {
	const query = `UPDATE assessments SET description = $2, due_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, description, dueDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply remote assessment update: %w", err)
	}
	return nil
}
