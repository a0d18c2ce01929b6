package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/google"
	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/pkg/config"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

type connProviderStub struct {
	exchangeErr error
	watchErr    error
	stopped     []string
	watched     []string
}

func (p *connProviderStub) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "refresh-token", nil
}

func (p *connProviderStub) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	return "access-token", nil
}

func (p *connProviderStub) Watch(ctx context.Context, accessToken, channelID string) (*google.WatchResult, error) {
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	p.watched = append(p.watched, channelID)
	return &google.WatchResult{ResourceID: "resource-1", Expiration: time.Now().Add(7 * 24 * time.Hour).UTC()}, nil
}

func (p *connProviderStub) StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error {
	p.stopped = append(p.stopped, channelID)
	return nil
}

type connLifecycleStoreStub struct {
	conn     *models.CalendarConnection
	expiring []models.CalendarConnection
	upserted []models.CalendarConnection
	channels []string
	deleted  []string
}

func (s *connLifecycleStoreStub) GetByUser(ctx context.Context, userID string) (*models.CalendarConnection, error) {
	if s.conn == nil {
		return nil, sql.ErrNoRows
	}
	return s.conn, nil
}

func (s *connLifecycleStoreStub) Upsert(ctx context.Context, conn *models.CalendarConnection) error {
	s.upserted = append(s.upserted, *conn)
	return nil
}

func (s *connLifecycleStoreStub) UpdateChannel(ctx context.Context, userID string, channelID, resourceID *string, expiresAt *time.Time) error {
	if channelID != nil {
		s.channels = append(s.channels, *channelID)
	}
	return nil
}

func (s *connLifecycleStoreStub) ListExpiringChannels(ctx context.Context, before time.Time) ([]models.CalendarConnection, error) {
	return s.expiring, nil
}

func (s *connLifecycleStoreStub) Delete(ctx context.Context, userID string) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

func newConnectionFixture() (*connProviderStub, *connLifecycleStoreStub, *ConnectionService) {
	provider := &connProviderStub{}
	store := &connLifecycleStoreStub{}
	svc := NewConnectionService(provider, store, nil, config.SyncConfig{ChannelRenewalWindow: 24 * time.Hour}, zap.NewNop())
	return provider, store, svc
}

func TestConnectStoresConnectionAndRegistersChannel(t *testing.T) {
	provider, store, svc := newConnectionFixture()

	conn, err := svc.Connect(context.Background(), "user-1", "consent-code", "", true)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", conn.RefreshToken)
	assert.True(t, conn.TwoWaySync)
	require.Len(t, store.upserted, 1)
	require.Len(t, provider.watched, 1)
	require.NotNil(t, conn.ChannelID)
	assert.Equal(t, provider.watched[0], *conn.ChannelID)
	require.NotNil(t, conn.ResourceID)
	assert.Equal(t, "resource-1", *conn.ResourceID)
}

func TestConnectSurvivesChannelRegistrationFailure(t *testing.T) {
	provider, store, svc := newConnectionFixture()
	provider.watchErr = appErrors.ErrChannelRegistration

	conn, err := svc.Connect(context.Background(), "user-1", "consent-code", "", true)
	require.NoError(t, err)
	require.Len(t, store.upserted, 1)
	assert.Nil(t, conn.ChannelID)
}

func TestConnectValidatesInput(t *testing.T) {
	_, store, svc := newConnectionFixture()

	_, err := svc.Connect(context.Background(), "", "", "", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.upserted)
}

func TestConnectFailsOnExchangeError(t *testing.T) {
	provider, store, svc := newConnectionFixture()
	provider.exchangeErr = appErrors.ErrUnauthorized

	_, err := svc.Connect(context.Background(), "user-1", "bad-code", "", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Empty(t, store.upserted)
}

func TestDisconnectStopsChannelAndDeletes(t *testing.T) {
	provider, store, svc := newConnectionFixture()
	channelID := "channel-1"
	resourceID := "resource-1"
	store.conn = &models.CalendarConnection{
		UserID:       "user-1",
		RefreshToken: "refresh-token",
		ChannelID:    &channelID,
		ResourceID:   &resourceID,
	}

	require.NoError(t, svc.Disconnect(context.Background(), "user-1"))
	assert.Equal(t, []string{"channel-1"}, provider.stopped)
	assert.Equal(t, []string{"user-1"}, store.deleted)
}

func TestDisconnectNotConnected(t *testing.T) {
	_, _, svc := newConnectionFixture()
	err := svc.Disconnect(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotConnected.Code, appErrors.FromError(err).Code)
}

func TestRenewExpiringChannelsReplacesChannel(t *testing.T) {
	provider, store, svc := newConnectionFixture()
	channelID := "channel-old"
	resourceID := "resource-old"
	store.expiring = []models.CalendarConnection{{
		UserID:       "user-1",
		RefreshToken: "refresh-token",
		ChannelID:    &channelID,
		ResourceID:   &resourceID,
	}}

	require.NoError(t, svc.RenewExpiringChannels(context.Background()))
	// Old channel stopped, new one registered under a fresh id.
	assert.Equal(t, []string{"channel-old"}, provider.stopped)
	require.Len(t, provider.watched, 1)
	assert.NotEqual(t, "channel-old", provider.watched[0])
	assert.Equal(t, provider.watched, store.channels)
}
