package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyplanhq/calsync-api/internal/models"
)

const connectionColumns = `user_id, refresh_token, two_way_sync, sync_token, channel_id, resource_id, channel_expires_at, created_at, updated_at`

// ConnectionRepository persists the per-user Google Calendar connection:
// credential, sync cursor and webhook channel share one row and one lifecycle.
type ConnectionRepository struct {
	db *sqlx.DB
}

// NewConnectionRepository constructs the repository.
func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// GetByUser returns the connection for a user.
func (r *ConnectionRepository) GetByUser(ctx context.Context, userID string) (*models.CalendarConnection, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_connections WHERE user_id = $1`, connectionColumns)
	var conn models.CalendarConnection
	if err := r.db.GetContext(ctx, &conn, query, userID); err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindByChannelID authenticates a webhook delivery against the stored channel.
func (r *ConnectionRepository) FindByChannelID(ctx context.Context, channelID string) (*models.CalendarConnection, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_connections WHERE channel_id = $1`, connectionColumns)
	var conn models.CalendarConnection
	if err := r.db.GetContext(ctx, &conn, query, channelID); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Upsert stores the connection created at OAuth consent time.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *models.CalendarConnection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	const query = `INSERT INTO calendar_connections (user_id, refresh_token, two_way_sync, sync_token, channel_id, resource_id, channel_expires_at, created_at, updated_at)
VALUES (:user_id, :refresh_token, :two_way_sync, :sync_token, :channel_id, :resource_id, :channel_expires_at, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE
SET refresh_token = EXCLUDED.refresh_token,
    two_way_sync = EXCLUDED.two_way_sync,
    sync_token = EXCLUDED.sync_token,
    channel_id = EXCLUDED.channel_id,
    resource_id = EXCLUDED.resource_id,
    channel_expires_at = EXCLUDED.channel_expires_at,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, conn); err != nil {
		return fmt.Errorf("upsert calendar connection: %w", err)
	}
	return nil
}

// UpdateSyncToken advances (or clears) the stored sync cursor. This is the
// last durable write of a successful sync run.
func (r *ConnectionRepository) UpdateSyncToken(ctx context.Context, userID string, token *string) error {
	const query = `UPDATE calendar_connections SET sync_token = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("update sync token: %w", err)
	}
	return nil
}

// UpdateChannel records a freshly registered webhook channel.
func (r *ConnectionRepository) UpdateChannel(ctx context.Context, userID string, channelID, resourceID *string, expiresAt *time.Time) error {
	const query = `UPDATE calendar_connections SET channel_id = $2, resource_id = $3, channel_expires_at = $4, updated_at = $5 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, channelID, resourceID, expiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update webhook channel: %w", err)
	}
	return nil
}

// ListExpiringChannels returns connections whose channel expires before the
// given instant and that still have a channel registered.
func (r *ConnectionRepository) ListExpiringChannels(ctx context.Context, before time.Time) ([]models.CalendarConnection, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_connections WHERE channel_id IS NOT NULL AND channel_expires_at < $1`, connectionColumns)
	var items []models.CalendarConnection
	if err := r.db.SelectContext(ctx, &items, query, before); err != nil {
		return nil, fmt.Errorf("list expiring channels: %w", err)
	}
	return items, nil
}

// Delete destroys the connection when the user disconnects; credential,
// cursor and channel are invalidated together.
func (r *ConnectionRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM calendar_connections WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete calendar connection: %w", err)
	}
	return nil
}
