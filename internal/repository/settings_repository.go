package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

// SettingsRepository reads per-user planning settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByUser returns the user's settings.
func (r *SettingsRepository) GetByUser(ctx context.Context, userID string) (*models.UserSettings, error) {
	const query = `SELECT user_id, timezone, semester_start, reminder_offsets, created_at, updated_at
FROM user_settings WHERE user_id = $1`
	var settings models.UserSettings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		return nil, err
	}
	return &settings, nil
}
