package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// UserSettings carries the per-user planning context needed to resolve
// relative study-session times into absolute instants.
type UserSettings struct {
	UserID        string    `db:"user_id" json:"user_id"`
	Timezone      string    `db:"timezone" json:"timezone"`
	SemesterStart time.Time `db:"semester_start" json:"semester_start"`
	// ReminderOffsets maps event type to minutes-before-start overrides,
	// e.g. {"assessment":[1440,60]}. Empty means use configured defaults.
	ReminderOffsets types.JSONText `db:"reminder_offsets" json:"reminder_offsets"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Location resolves the configured timezone, defaulting to UTC.
func (s *UserSettings) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
