package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyplanhq/calsync-api/internal/models"
)

type assessmentListerStub struct{ items []models.Assessment }

func (s assessmentListerStub) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Assessment, error) {
	return s.items, nil
}

type sessionListerStub struct{ items []models.StudySession }

func (s sessionListerStub) ListByUser(ctx context.Context, userID string) ([]models.StudySession, error) {
	return s.items, nil
}

type customListerStub struct{ items []models.CustomEvent }

func (s customListerStub) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.CustomEvent, error) {
	return s.items, nil
}

type milestoneListerStub struct{ items []models.Milestone }

func (s milestoneListerStub) ListByUserWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Milestone, error) {
	return s.items, nil
}

type courseMapperStub struct{ courses map[string]models.Course }

func (s courseMapperStub) MapByUser(ctx context.Context, userID string) (map[string]models.Course, error) {
	return s.courses, nil
}

func TestListEventsMergesAndSortsAllSources(t *testing.T) {
	semesterStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	from := semesterStart
	to := semesterStart.AddDate(0, 0, 14)

	courseID := "course-1"
	svc := NewCalendarService(
		assessmentListerStub{items: []models.Assessment{{
			ID: "a-1", UserID: "user-1", CourseID: &courseID, Title: "Quiz 1",
			Type: models.AssessmentTypeQuiz, DueDate: semesterStart.AddDate(0, 0, 4).Add(9 * time.Hour),
		}}},
		sessionListerStub{items: []models.StudySession{
			{ID: "s-1", UserID: "user-1", Subject: "Week one", DayOfWeek: 3, StartTime: "14:30", EndTime: "16:00", WeekNumber: 1},
			// Malformed time-of-day, skipped without failing the query.
			{ID: "s-2", UserID: "user-1", Subject: "Broken", DayOfWeek: 3, StartTime: "nonsense", EndTime: "16:00", WeekNumber: 1},
			// Week three falls outside the query window.
			{ID: "s-3", UserID: "user-1", Subject: "Week three", DayOfWeek: 3, StartTime: "14:30", EndTime: "16:00", WeekNumber: 3},
		}},
		customListerStub{items: []models.CustomEvent{{
			ID: "c-1", UserID: "user-1", Title: "Library visit",
			StartAt: semesterStart.AddDate(0, 0, 1).Add(10 * time.Hour),
			EndAt:   semesterStart.AddDate(0, 0, 1).Add(11 * time.Hour),
		}}},
		milestoneListerStub{items: []models.Milestone{{
			ID: "m-1", UserID: "user-1", Title: "Plan finalized", MilestoneDate: semesterStart.AddDate(0, 0, 7),
		}}},
		courseMapperStub{courses: map[string]models.Course{
			"course-1": {ID: "course-1", Name: "Calculus", Code: "MATH101"},
		}},
		&settingsStoreStub{settings: &models.UserSettings{UserID: "user-1", Timezone: "UTC", SemesterStart: semesterStart}},
		zap.NewNop(),
	)

	events, err := svc.ListEvents(context.Background(), "user-1", from, to)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.True(t, sort.SliceIsSorted(events, func(i, j int) bool {
		return !events[j].Start.Before(events[i].Start)
	}))

	byType := map[models.CalendarEventType]int{}
	for _, ev := range events {
		byType[ev.Type]++
	}
	assert.Equal(t, 1, byType[models.EventTypeAssessment])
	assert.Equal(t, 1, byType[models.EventTypeStudySession])
	assert.Equal(t, 1, byType[models.EventTypeCustomEvent])
	assert.Equal(t, 1, byType[models.EventTypeMilestone])

	for _, ev := range events {
		if ev.Type == models.EventTypeAssessment {
			require.NotNil(t, ev.CourseName)
			assert.Equal(t, "Calculus", *ev.CourseName)
		}
	}
}

func TestListEventsWithoutSettingsStillServesAbsoluteSources(t *testing.T) {
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	svc := NewCalendarService(
		assessmentListerStub{items: []models.Assessment{{
			ID: "a-1", UserID: "user-1", Title: "Exam", Type: models.AssessmentTypeExam, DueDate: from.Add(48 * time.Hour),
		}}},
		sessionListerStub{items: []models.StudySession{
			{ID: "s-1", UserID: "user-1", Subject: "Drifting", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", WeekNumber: 1},
		}},
		customListerStub{},
		milestoneListerStub{},
		courseMapperStub{},
		&settingsStoreStub{},
		zap.NewNop(),
	)

	events, err := svc.ListEvents(context.Background(), "user-1", from, to)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeAssessment, events[0].Type)
}
