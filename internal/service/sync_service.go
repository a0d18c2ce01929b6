package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/google"
	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/internal/normalizer"
	"github.com/studyplanhq/calsync-api/pkg/config"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

type syncProvider interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
	ListChanges(ctx context.Context, accessToken, syncToken string) (*google.ChangeSet, error)
	ListFrom(ctx context.Context, accessToken string, from time.Time) (*google.ChangeSet, error)
}

type syncConnectionStore interface {
	GetByUser(ctx context.Context, userID string) (*models.CalendarConnection, error)
	FindByChannelID(ctx context.Context, channelID string) (*models.CalendarConnection, error)
	UpdateSyncToken(ctx context.Context, userID string, token *string) error
}

type syncAssessmentStore interface {
	FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.Assessment, error)
	ApplyRemoteUpdate(ctx context.Context, id, description string, dueDate time.Time) error
}

type syncSessionStore interface {
	FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.StudySession, error)
	UpdateDescription(ctx context.Context, id, description string) error
}

type syncCustomEventStore interface {
	FindByGoogleEventID(ctx context.Context, userID, googleEventID string) (*models.CustomEvent, error)
	ApplyRemoteUpdate(ctx context.Context, id, title, description string, location *string, startAt, endAt time.Time) error
}

type syncNotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type syncSettingsStore interface {
	GetByUser(ctx context.Context, userID string) (*models.UserSettings, error)
}

type reminderScheduler interface {
	Reschedule(ctx context.Context, userID string, sourceType models.CalendarEventType, sourceID string, start time.Time) error
}

type syncLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type syncMetrics interface {
	ObserveSyncRun(outcome string, summary *SyncSummary)
}

// SyncSummary reports the outcome of one sync run. Deleted counts advisory
// deletions: the local record stays, only a notification is emitted.
type SyncSummary struct {
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// SyncService is the incremental sync controller. It is invoked per webhook
// delivery or manual trigger, holds no state between invocations, and
// serializes runs per user through a short-lived distributed lock.
type SyncService struct {
	provider      syncProvider
	connections   syncConnectionStore
	assessments   syncAssessmentStore
	sessions      syncSessionStore
	customEvents  syncCustomEventStore
	notifications syncNotificationStore
	settings      syncSettingsStore
	reminders     reminderScheduler
	locker        syncLocker
	metrics       syncMetrics
	cfg           config.SyncConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewSyncService constructs the controller.
func NewSyncService(
	provider syncProvider,
	connections syncConnectionStore,
	assessments syncAssessmentStore,
	sessions syncSessionStore,
	customEvents syncCustomEventStore,
	notifications syncNotificationStore,
	settings syncSettingsStore,
	reminders reminderScheduler,
	locker syncLocker,
	metrics syncMetrics,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		provider:      provider,
		connections:   connections,
		assessments:   assessments,
		sessions:      sessions,
		customEvents:  customEvents,
		notifications: notifications,
		settings:      settings,
		reminders:     reminders,
		locker:        locker,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleWebhook processes one provider push notification. The body of the
// delivery is never trusted; state is re-fetched from the provider.
func (s *SyncService) HandleWebhook(ctx context.Context, channelID, resourceState, messageNumber string) (*SyncSummary, error) {
	conn, err := s.connections.FindByChannelID(ctx, channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown webhook channel")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve webhook channel")
	}

	// The provider's initial handshake ("sync") and any unknown resource
	// states are acknowledged without work.
	if resourceState != "exists" && resourceState != "not_exists" {
		return &SyncSummary{}, nil
	}

	if messageNumber != "" && s.locker != nil {
		key := fmt.Sprintf("sync:webhook:%s:%s", channelID, messageNumber)
		fresh, err := s.locker.SetOnce(ctx, key, s.cfg.WebhookDedupTTL)
		if err != nil {
			s.logger.Warn("webhook dedup check failed", zap.String("channel_id", channelID), zap.Error(err))
		} else if !fresh {
			return &SyncSummary{}, nil
		}
	}

	return s.run(ctx, conn)
}

// SyncUser runs a manually triggered sync for one user.
func (s *SyncService) SyncUser(ctx context.Context, userID string) (*SyncSummary, error) {
	conn, err := s.connections.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotConnected
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar connection")
	}
	return s.run(ctx, conn)
}

func (s *SyncService) run(ctx context.Context, conn *models.CalendarConnection) (*SyncSummary, error) {
	// Capability gate, not an error: users without two-way sync get a
	// zero-change summary.
	if !s.cfg.Enabled || !conn.TwoWaySync {
		return &SyncSummary{}, nil
	}

	release, acquired, err := s.locker.Acquire(ctx, "sync:lock:"+conn.UserID, s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire sync lock")
	}
	if !acquired {
		return nil, appErrors.ErrSyncInProgress
	}
	defer release()

	summary, err := s.locked(ctx, conn)
	if s.metrics != nil {
		outcome := "completed"
		if err != nil {
			outcome = "failed"
		}
		s.metrics.ObserveSyncRun(outcome, summary)
	}
	return summary, err
}

func (s *SyncService) locked(ctx context.Context, conn *models.CalendarConnection) (*SyncSummary, error) {
	accessToken, err := s.provider.AccessToken(ctx, conn.RefreshToken)
	if err != nil {
		if errors.Is(err, appErrors.ErrReconnectRequired) {
			s.notifyReconnect(ctx, conn.UserID)
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to obtain access token")
	}

	set, err := s.fetchChanges(ctx, conn, accessToken)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{Total: len(set.Events)}
	for _, remote := range set.Events {
		if err := s.applyRemoteEvent(ctx, conn, remote, summary); err != nil {
			// A single event must not abort the batch.
			summary.Skipped++
			s.logger.Warn("failed to process remote event",
				zap.String("user_id", conn.UserID),
				zap.String("event_id", remote.ID),
				zap.Error(err))
		}
	}

	// Cursor advancement is the last durable write of a successful run, and
	// happens on zero-change runs too.
	if set.NextSyncToken != "" {
		token := set.NextSyncToken
		if err := s.connections.UpdateSyncToken(ctx, conn.UserID, &token); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist sync cursor")
		}
	}

	return summary, nil
}

// fetchChanges requests events changed since the stored cursor, recovering
// from an invalidated cursor at most once per run via a full resync bounded
// to future events.
func (s *SyncService) fetchChanges(ctx context.Context, conn *models.CalendarConnection, accessToken string) (*google.ChangeSet, error) {
	if conn.SyncToken != nil && *conn.SyncToken != "" {
		set, err := s.provider.ListChanges(ctx, accessToken, *conn.SyncToken)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, appErrors.ErrCursorInvalid) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "incremental fetch failed")
		}

		s.logger.Info("sync cursor invalidated, falling back to full resync", zap.String("user_id", conn.UserID))
		if err := s.connections.UpdateSyncToken(ctx, conn.UserID, nil); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear sync cursor")
		}
	}

	set, err := s.provider.ListFrom(ctx, accessToken, s.now().UTC())
	if err != nil {
		// A second cursor rejection in the same run is unrecoverable.
		if errors.Is(err, appErrors.ErrCursorInvalid) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "full resync fetch failed")
	}
	return set, nil
}

func (s *SyncService) applyRemoteEvent(ctx context.Context, conn *models.CalendarConnection, remote google.RemoteEvent, summary *SyncSummary) error {
	// Resolve the remote event to a local record, first match wins. Events
	// with no match belong to a foreign calendar entry and are skipped.
	assessment, err := s.assessments.FindByGoogleEventID(ctx, conn.UserID, remote.ID)
	if err == nil {
		return s.applyToAssessment(ctx, conn.UserID, assessment, remote, summary)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	session, err := s.sessions.FindByGoogleEventID(ctx, conn.UserID, remote.ID)
	if err == nil {
		return s.applyToSession(ctx, conn.UserID, session, remote, summary)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	custom, err := s.customEvents.FindByGoogleEventID(ctx, conn.UserID, remote.ID)
	if err == nil {
		return s.applyToCustomEvent(ctx, conn.UserID, custom, remote, summary)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	return nil
}

func (s *SyncService) applyToAssessment(ctx context.Context, userID string, a *models.Assessment, remote google.RemoteEvent, summary *SyncSummary) error {
	if remote.Cancelled() {
		s.notifyExternalDeletion(ctx, userID, a.Title, models.EventTypeAssessment, a.ID)
		summary.Deleted++
		return nil
	}

	// Only description and due date are remotely writable on assessments.
	dueDate := a.DueDate
	if !remote.Start.IsZero() {
		dueDate = remote.Start
	}
	if err := s.assessments.ApplyRemoteUpdate(ctx, a.ID, remote.Description, dueDate); err != nil {
		return err
	}
	if !dueDate.Equal(a.DueDate) {
		s.reschedule(ctx, userID, models.EventTypeAssessment, a.ID, dueDate)
	}
	summary.Updated++
	return nil
}

func (s *SyncService) applyToSession(ctx context.Context, userID string, session *models.StudySession, remote google.RemoteEvent, summary *SyncSummary) error {
	if remote.Cancelled() {
		s.notifyExternalDeletion(ctx, userID, session.Subject, models.EventTypeStudySession, session.ID)
		summary.Deleted++
		return nil
	}

	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}
	loc := settings.Location()

	expectedStart, err := normalizer.SessionStart(settings.SemesterStart, session.WeekNumber, session.DayOfWeek, session.StartTime, loc)
	if err != nil {
		return err
	}
	expectedEnd, err := normalizer.SessionStart(settings.SemesterStart, session.WeekNumber, session.DayOfWeek, session.EndTime, loc)
	if err != nil {
		return err
	}

	// A session's time is derived from day/week/time-of-day, never from an
	// absolute field, so a remote time change cannot be applied. Flag it for
	// manual reconciliation instead.
	startMoved := !remote.Start.IsZero() && !remote.Start.Equal(expectedStart)
	endMoved := !remote.End.IsZero() && !remote.End.Equal(expectedEnd)
	if startMoved || endMoved {
		s.notifyConflict(ctx, userID, session.Subject, session.ID)
		summary.Conflicts++
		return nil
	}

	if err := s.sessions.UpdateDescription(ctx, session.ID, remote.Description); err != nil {
		return err
	}
	summary.Updated++
	return nil
}

func (s *SyncService) applyToCustomEvent(ctx context.Context, userID string, e *models.CustomEvent, remote google.RemoteEvent, summary *SyncSummary) error {
	if remote.Cancelled() {
		s.notifyExternalDeletion(ctx, userID, e.Title, models.EventTypeCustomEvent, e.ID)
		summary.Deleted++
		return nil
	}

	// Custom events are fully remote-controlled for these fields.
	var location *string
	if remote.Location != "" {
		location = &remote.Location
	}
	startAt, endAt := e.StartAt, e.EndAt
	if !remote.Start.IsZero() {
		startAt = remote.Start
	}
	if !remote.End.IsZero() {
		endAt = remote.End
	}
	if err := s.customEvents.ApplyRemoteUpdate(ctx, e.ID, remote.Title, remote.Description, location, startAt, endAt); err != nil {
		return err
	}
	if !startAt.Equal(e.StartAt) {
		s.reschedule(ctx, userID, models.EventTypeCustomEvent, e.ID, startAt)
	}
	summary.Updated++
	return nil
}

// reschedule refreshes pending reminders after a remote time change. Reminder
// drift is tolerable, so failures only log.
func (s *SyncService) reschedule(ctx context.Context, userID string, sourceType models.CalendarEventType, sourceID string, start time.Time) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.Reschedule(ctx, userID, sourceType, sourceID, start); err != nil {
		s.logger.Warn("failed to reschedule reminders",
			zap.String("user_id", userID),
			zap.String("source_id", sourceID),
			zap.Error(err))
	}
}

// Remote deletions are advisory: the local record remains the system of
// record and the user is notified instead.
func (s *SyncService) notifyExternalDeletion(ctx context.Context, userID, title string, sourceType models.CalendarEventType, sourceID string) {
	s.createNotification(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationExternalDeletion,
		Title:      "Event deleted in Google Calendar",
		Body:       fmt.Sprintf("%q was deleted in Google Calendar. It is still in your planner.", title),
		SourceType: &sourceType,
		SourceID:   &sourceID,
	})
}

func (s *SyncService) notifyConflict(ctx context.Context, userID, title, sessionID string) {
	sourceType := models.EventTypeStudySession
	s.createNotification(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationSyncConflict,
		Title:      "Study session changed in Google Calendar",
		Body:       fmt.Sprintf("The time of %q was changed in Google Calendar. Session times follow your weekly plan, so update the session here if you want to keep the change.", title),
		SourceType: &sourceType,
		SourceID:   &sessionID,
	})
}

func (s *SyncService) notifyReconnect(ctx context.Context, userID string) {
	s.createNotification(ctx, &models.Notification{
		UserID: userID,
		Type:   models.NotificationReconnectRequired,
		Title:  "Google Calendar needs to be reconnected",
		Body:   "Google rejected the stored calendar authorization. Reconnect your calendar to resume syncing.",
	})
}

func (s *SyncService) createNotification(ctx context.Context, n *models.Notification) {
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}
