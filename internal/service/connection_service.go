package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/google"
	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/pkg/config"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

type connectionProvider interface {
	Exchange(ctx context.Context, code, redirectURI string) (string, error)
	AccessToken(ctx context.Context, refreshToken string) (string, error)
	Watch(ctx context.Context, accessToken, channelID string) (*google.WatchResult, error)
	StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error
}

type connectionStore interface {
	GetByUser(ctx context.Context, userID string) (*models.CalendarConnection, error)
	Upsert(ctx context.Context, conn *models.CalendarConnection) error
	UpdateChannel(ctx context.Context, userID string, channelID, resourceID *string, expiresAt *time.Time) error
	ListExpiringChannels(ctx context.Context, before time.Time) ([]models.CalendarConnection, error)
	Delete(ctx context.Context, userID string) error
}

// ConnectionService manages the Google Calendar connection lifecycle: OAuth
// consent, webhook channel registration and renewal, and disconnect.
type ConnectionService struct {
	provider    connectionProvider
	connections connectionStore
	validator   *validator.Validate
	cfg         config.SyncConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewConnectionService constructs the service.
func NewConnectionService(provider connectionProvider, connections connectionStore, validate *validator.Validate, cfg config.SyncConfig, logger *zap.Logger) *ConnectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{
		provider:    provider,
		connections: connections,
		validator:   validate,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

type connectInput struct {
	UserID string `validate:"required"`
	Code   string `validate:"required"`
}

// Connect trades the OAuth consent code for a refresh token, stores the
// connection and registers a webhook channel. Channel registration is best
// effort: a connection without push notifications still syncs on manual
// trigger, so its failure never fails the connect.
func (s *ConnectionService) Connect(ctx context.Context, userID, code, redirectURI string, twoWaySync bool) (*models.CalendarConnection, error) {
	if err := s.validator.Struct(connectInput{UserID: userID, Code: code}); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user_id and code are required")
	}

	refreshToken, err := s.provider.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	conn := &models.CalendarConnection{
		UserID:       userID,
		RefreshToken: refreshToken,
		TwoWaySync:   twoWaySync,
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store calendar connection")
	}

	if err := s.registerChannel(ctx, conn); err != nil {
		s.logger.Warn("webhook channel registration failed, connection stays pull-only",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return conn, nil
}

// Disconnect stops the webhook channel and destroys the stored connection.
// Credential, sync cursor and channel are invalidated together.
func (s *ConnectionService) Disconnect(ctx context.Context, userID string) error {
	conn, err := s.connections.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotConnected
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar connection")
	}

	s.stopChannel(ctx, conn)

	if err := s.connections.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar connection")
	}
	return nil
}

// RenewExpiringChannels re-registers webhook channels that expire within the
// configured renewal window. Called periodically from the background queue.
func (s *ConnectionService) RenewExpiringChannels(ctx context.Context) error {
	cutoff := s.now().Add(s.cfg.ChannelRenewalWindow)
	expiring, err := s.connections.ListExpiringChannels(ctx, cutoff)
	if err != nil {
		return err
	}

	for i := range expiring {
		conn := expiring[i]
		if err := s.registerChannel(ctx, &conn); err != nil {
			s.logger.Warn("channel renewal failed",
				zap.String("user_id", conn.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// registerChannel stops any prior channel, opens a new one under a fresh id
// and persists its provider-assigned identity.
func (s *ConnectionService) registerChannel(ctx context.Context, conn *models.CalendarConnection) error {
	accessToken, err := s.provider.AccessToken(ctx, conn.RefreshToken)
	if err != nil {
		return err
	}

	if conn.ChannelID != nil && conn.ResourceID != nil {
		if err := s.provider.StopChannel(ctx, accessToken, *conn.ChannelID, *conn.ResourceID); err != nil {
			s.logger.Warn("failed to stop prior webhook channel",
				zap.String("user_id", conn.UserID),
				zap.String("channel_id", *conn.ChannelID),
				zap.Error(err))
		}
	}

	channelID := uuid.NewString()
	watch, err := s.provider.Watch(ctx, accessToken, channelID)
	if err != nil {
		return err
	}

	expiresAt := watch.Expiration
	if err := s.connections.UpdateChannel(ctx, conn.UserID, &channelID, &watch.ResourceID, &expiresAt); err != nil {
		return err
	}

	conn.ChannelID = &channelID
	conn.ResourceID = &watch.ResourceID
	conn.ChannelExpiresAt = &expiresAt
	return nil
}

func (s *ConnectionService) stopChannel(ctx context.Context, conn *models.CalendarConnection) {
	if conn.ChannelID == nil || conn.ResourceID == nil {
		return
	}
	accessToken, err := s.provider.AccessToken(ctx, conn.RefreshToken)
	if err != nil {
		s.logger.Warn("cannot stop webhook channel without an access token",
			zap.String("user_id", conn.UserID),
			zap.Error(err))
		return
	}
	if err := s.provider.StopChannel(ctx, accessToken, *conn.ChannelID, *conn.ResourceID); err != nil {
		s.logger.Warn("failed to stop webhook channel",
			zap.String("user_id", conn.UserID),
			zap.String("channel_id", *conn.ChannelID),
			zap.Error(err))
	}
}
