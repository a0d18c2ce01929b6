package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyplanhq/calsync-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func connectionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_id", "refresh_token", "two_way_sync", "sync_token",
		"channel_id", "resource_id", "channel_expires_at", "created_at", "updated_at",
	})
}

func TestConnectionRepositoryFindByChannelID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	rows := connectionRows().
		AddRow("user-1", "refresh-token", true, "cursor-1", "channel-1", "resource-1", time.Now(), time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM calendar_connections WHERE channel_id").
		WithArgs("channel-1").
		WillReturnRows(rows)

	conn, err := repo.FindByChannelID(context.Background(), "channel-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", conn.UserID)
	assert.True(t, conn.TwoWaySync)
	require.NotNil(t, conn.SyncToken)
	assert.Equal(t, "cursor-1", *conn.SyncToken)
}

func TestConnectionRepositoryFindByChannelIDMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM calendar_connections WHERE channel_id").
		WithArgs("channel-x").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByChannelID(context.Background(), "channel-x")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConnectionRepositoryUpdateSyncTokenClearsCursor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	mock.ExpectExec("UPDATE calendar_connections SET sync_token").
		WithArgs("user-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSyncToken(context.Background(), "user-1", nil))
}

func TestConnectionRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	mock.ExpectExec("INSERT INTO calendar_connections").
		WillReturnResult(sqlmock.NewResult(0, 1))

	conn := &models.CalendarConnection{
		UserID:       "user-1",
		RefreshToken: "refresh-token",
		TwoWaySync:   true,
	}
	require.NoError(t, repo.Upsert(context.Background(), conn))
	assert.False(t, conn.CreatedAt.IsZero())
}
