package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/pkg/config"
)

type reminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	DeleteBySource(ctx context.Context, userID string, sourceType models.CalendarEventType, sourceID string) error
}

// ReminderService derives concrete reminder instants from event start times.
// Offsets come from per-user settings when present, otherwise from configured
// per-type defaults. Instants already in the past are dropped, not clamped.
type ReminderService struct {
	reminders reminderStore
	settings  settingsReader
	cfg       config.ReminderConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReminderService constructs the service.
func NewReminderService(reminders reminderStore, settings settingsReader, cfg config.ReminderConfig, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		reminders: reminders,
		settings:  settings,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Reschedule replaces the pending reminders for one source record based on
// its (possibly changed) start time. Scheduling an event entirely in the past
// simply leaves it without reminders.
func (s *ReminderService) Reschedule(ctx context.Context, userID string, sourceType models.CalendarEventType, sourceID string, start time.Time) error {
	if err := s.reminders.DeleteBySource(ctx, userID, sourceType, sourceID); err != nil {
		return err
	}

	offsets := s.offsetsFor(ctx, userID, sourceType)
	for _, instant := range Instants(start, offsets, s.now()) {
		reminder := &models.Reminder{
			UserID:     userID,
			SourceType: sourceType,
			SourceID:   sourceID,
			RemindAt:   instant,
		}
		if err := s.reminders.Create(ctx, reminder); err != nil {
			return fmt.Errorf("schedule reminder at %s: %w", instant, err)
		}
	}
	return nil
}

// Instants maps minute offsets before start to future UTC instants. Offsets
// at or before now are dropped.
func Instants(start time.Time, offsetsMinutes []int, now time.Time) []time.Time {
	instants := make([]time.Time, 0, len(offsetsMinutes))
	for _, minutes := range offsetsMinutes {
		if minutes < 0 {
			continue
		}
		instant := start.Add(-time.Duration(minutes) * time.Minute).UTC()
		if !instant.After(now) {
			continue
		}
		instants = append(instants, instant)
	}
	return instants
}

func (s *ReminderService) offsetsFor(ctx context.Context, userID string, sourceType models.CalendarEventType) []int {
	if override := s.userOverride(ctx, userID, sourceType); override != nil {
		return override
	}
	switch sourceType {
	case models.EventTypeAssessment, models.EventTypeMilestone:
		return s.cfg.AssessmentOffsets
	case models.EventTypeStudySession:
		return s.cfg.StudySessionOffsets
	default:
		return s.cfg.CustomEventOffsets
	}
}

func (s *ReminderService) userOverride(ctx context.Context, userID string, sourceType models.CalendarEventType) []int {
	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load reminder settings", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	if len(settings.ReminderOffsets) == 0 {
		return nil
	}

	overrides := map[string][]int{}
	if err := json.Unmarshal(settings.ReminderOffsets, &overrides); err != nil {
		s.logger.Warn("malformed reminder offsets, using defaults", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return overrides[string(sourceType)]
}
