package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

// MilestoneRepository reads study-plan milestones.
type MilestoneRepository struct {
	db *sqlx.DB
}

// NewMilestoneRepository constructs the repository.
func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// ListByUserWindow returns milestones dated within [from, to).
func (r *MilestoneRepository) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Milestone, error) {
	const query = `SELECT id, user_id, course_id, title, description, milestone_date, created_at, updated_at
FROM milestones WHERE user_id = $1 AND milestone_date >= $2 AND milestone_date < $3 ORDER BY milestone_date ASC`
	var items []models.Milestone
	if err := r.db.SelectContext(ctx, &items, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	return items, nil
}
