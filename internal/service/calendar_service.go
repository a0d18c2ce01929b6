package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/internal/normalizer"
)

type assessmentLister interface {
	ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Assessment, error)
}

type sessionLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.StudySession, error)
}

type customEventLister interface {
	ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.CustomEvent, error)
}

type milestoneLister interface {
	ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Milestone, error)
}

type courseMapper interface {
	MapByUser(ctx context.Context, userID string) (map[string]models.Course, error)
}

type settingsReader interface {
	GetByUser(ctx context.Context, userID string) (*models.UserSettings, error)
}

// CalendarService produces the unified read model: every source collection
// normalized into CalendarEvents for a query window. Events are derived on
// every call, never persisted.
type CalendarService struct {
	assessments  assessmentLister
	sessions     sessionLister
	customEvents customEventLister
	milestones   milestoneLister
	courses      courseMapper
	settings     settingsReader
	logger       *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(
	assessments assessmentLister,
	sessions sessionLister,
	customEvents customEventLister,
	milestones milestoneLister,
	courses courseMapper,
	settings settingsReader,
	logger *zap.Logger,
) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		assessments:  assessments,
		sessions:     sessions,
		customEvents: customEvents,
		milestones:   milestones,
		courses:      courses,
		settings:     settings,
		logger:       logger,
	}
}

// ListEvents returns all of a user's calendar events intersecting [from, to),
// sorted by start time. A source record that cannot be normalized is logged
// and skipped rather than failing the whole query.
func (s *CalendarService) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	nctx, err := s.buildContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, 32)

	assessments, err := s.assessments.ListByUserWindow(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, a := range assessments {
		events = append(events, normalizer.AssessmentEvent(a, nctx))
	}

	milestones, err := s.milestones.ListByUserWindow(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, m := range milestones {
		events = append(events, normalizer.MilestoneEvent(m, nctx))
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		ev, err := normalizer.StudySessionEvent(session, nctx)
		if err != nil {
			s.logger.Warn("skipping malformed study session",
				zap.String("user_id", userID),
				zap.String("session_id", session.ID),
				zap.Error(err))
			continue
		}
		if normalizer.Overlaps(ev.Start, ev.End, from, to) {
			events = append(events, ev)
		}
	}

	customEvents, err := s.customEvents.ListByUserWindow(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, e := range customEvents {
		events = append(events, normalizer.CustomEventOccurrences(e, from, to)...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func (s *CalendarService) buildContext(ctx context.Context, userID string) (normalizer.Context, error) {
	courses, err := s.courses.MapByUser(ctx, userID)
	if err != nil {
		return normalizer.Context{}, err
	}

	nctx := normalizer.Context{Courses: courses, Location: time.UTC}
	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		// A user without settings still gets assessments, milestones and
		// custom events; sessions cannot resolve without a semester start.
		if errors.Is(err, sql.ErrNoRows) {
			return nctx, nil
		}
		return normalizer.Context{}, fmt.Errorf("load user settings: %w", err)
	}

	nctx.Location = settings.Location()
	nctx.SemesterStart = settings.SemesterStart
	return nctx, nil
}
