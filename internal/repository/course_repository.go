package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

// CourseRepository reads course display metadata.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// MapByUser returns the user's courses indexed by id.
func (r *CourseRepository) MapByUser(ctx context.Context, userID string) (map[string]models.Course, error) {
	const query = `SELECT id, user_id, name, code, color FROM courses WHERE user_id = $1`
	var items []models.Course
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	result := make(map[string]models.Course, len(items))
	for _, course := range items {
		result[course.ID] = course
	}
	return result, nil
}
