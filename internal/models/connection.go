package models

import "time"

// CalendarConnection holds the per-user Google Calendar sync state: the
// long-lived refresh token (stored once at consent), the incremental sync
// cursor, and the active webhook channel. All three are invalidated together
// when the user disconnects.
type CalendarConnection struct {
	UserID       string `db:"user_id" json:"user_id"`
	RefreshToken string `db:"refresh_token" json:"-"`
	TwoWaySync   bool   `db:"two_way_sync" json:"two_way_sync"`

	// SyncToken is the opaque provider cursor; absence forces a full resync.
	SyncToken *string `db:"sync_token" json:"-"`

	ChannelID        *string    `db:"channel_id" json:"channel_id,omitempty"`
	ResourceID       *string    `db:"resource_id" json:"resource_id,omitempty"`
	ChannelExpiresAt *time.Time `db:"channel_expires_at" json:"channel_expires_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
