// Package normalizer maps heterogeneous domain records into the unified
// CalendarEvent representation. All functions are pure and safe for
// concurrent use; nothing here touches storage or the clock.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/studyplanhq/calsync-api/internal/models"
	"github.com/studyplanhq/calsync-api/internal/recurrence"
)

// Fixed display palette by type. An explicit per-entity color always wins,
// then the course color, then these.
const (
	ColorExam      = "#ef4444"
	ColorQuiz      = "#f97316"
	ColorProject   = "#a855f7"
	ColorGray      = "#6b7280"
	ColorMilestone = "#a855f7"
	ColorDefault   = "#3b82f6"
)

// Assessments and milestones carry no real duration; they are rendered with a
// fixed one-hour block.
const displayDuration = 60 * time.Minute

// Context carries the per-user planning data needed to resolve relative times.
type Context struct {
	// Location is the user's configured timezone.
	Location *time.Location
	// SemesterStart is the first day of the semester, midnight in Location.
	SemesterStart time.Time
	// Courses indexes course metadata by id.
	Courses map[string]models.Course
}

func (c Context) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// AssessmentEvent normalizes an assessment due date into a calendar event.
func AssessmentEvent(a models.Assessment, nctx Context) models.CalendarEvent {
	start := a.DueDate.UTC()
	ev := models.CalendarEvent{
		ID:           fmt.Sprintf("%s-%s", models.EventTypeAssessment, a.ID),
		Title:        a.Title,
		Description:  a.Description,
		Start:        start,
		End:          start.Add(displayDuration),
		Type:         models.EventTypeAssessment,
		Color:        pickColor(a.Color, nctx.course(a.CourseID), assessmentColor(a.Type)),
		OriginalID:   a.ID,
		OriginalType: models.EventTypeAssessment,
		IsSynced:     a.GoogleEventID != nil,
	}
	nctx.attachCourse(&ev, a.CourseID)
	return ev
}

// MilestoneEvent normalizes a milestone date into an all-day calendar event.
func MilestoneEvent(m models.Milestone, nctx Context) models.CalendarEvent {
	start := m.MilestoneDate.UTC()
	ev := models.CalendarEvent{
		ID:           fmt.Sprintf("%s-%s", models.EventTypeMilestone, m.ID),
		Title:        m.Title,
		Description:  m.Description,
		Start:        start,
		End:          start.Add(displayDuration),
		AllDay:       true,
		Type:         models.EventTypeMilestone,
		Color:        pickColor(nil, nctx.course(m.CourseID), ColorMilestone),
		OriginalID:   m.ID,
		OriginalType: models.EventTypeMilestone,
	}
	nctx.attachCourse(&ev, m.CourseID)
	return ev
}

// StudySessionEvent resolves a weekly timetable slot into an absolute-time
// calendar event. It fails only on malformed time-of-day strings.
func StudySessionEvent(s models.StudySession, nctx Context) (models.CalendarEvent, error) {
	start, err := SessionStart(nctx.SemesterStart, s.WeekNumber, s.DayOfWeek, s.StartTime, nctx.location())
	if err != nil {
		return models.CalendarEvent{}, err
	}
	end, err := SessionStart(nctx.SemesterStart, s.WeekNumber, s.DayOfWeek, s.EndTime, nctx.location())
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if end.Before(start) {
		end = start
	}

	ev := models.CalendarEvent{
		ID:           fmt.Sprintf("%s-%s", models.EventTypeStudySession, s.ID),
		Title:        s.Subject,
		Description:  s.Description,
		Start:        start,
		End:          end,
		Type:         models.EventTypeStudySession,
		Color:        pickColor(s.Color, nctx.course(s.CourseID), ColorDefault),
		OriginalID:   s.ID,
		OriginalType: models.EventTypeStudySession,
		IsSynced:     s.GoogleEventID != nil,
	}
	nctx.attachCourse(&ev, s.CourseID)
	return ev, nil
}

// CustomEventOccurrences normalizes a custom event into its occurrences
// within [rangeStart, rangeEnd). Non-recurring events yield at most one
// occurrence. A malformed recurrence rule degrades the event to a single
// non-recurring occurrence at its anchor instead of propagating the error.
func CustomEventOccurrences(e models.CustomEvent, rangeStart, rangeEnd time.Time) []models.CalendarEvent {
	if e.RecurrenceRule == nil || strings.TrimSpace(*e.RecurrenceRule) == "" {
		return singleCustomOccurrence(e, rangeStart, rangeEnd)
	}

	rule, err := recurrence.Parse(*e.RecurrenceRule)
	if err != nil {
		return singleCustomOccurrence(e, rangeStart, rangeEnd)
	}
	starts, err := rule.Expand(e.StartAt, rangeStart, rangeEnd)
	if err != nil {
		return singleCustomOccurrence(e, rangeStart, rangeEnd)
	}

	duration := e.EndAt.Sub(e.StartAt)
	events := make([]models.CalendarEvent, 0, len(starts))
	for i, start := range starts {
		ev := baseCustomEvent(e)
		ev.ID = fmt.Sprintf("%s-%s-%d", models.EventTypeCustomEvent, e.ID, i)
		ev.Start = start.UTC()
		ev.End = start.Add(duration).UTC()
		ev.IsRecurring = true
		ev.RecurrenceRule = e.RecurrenceRule
		events = append(events, ev)
	}
	return events
}

func singleCustomOccurrence(e models.CustomEvent, rangeStart, rangeEnd time.Time) []models.CalendarEvent {
	if !Overlaps(e.StartAt, e.EndAt, rangeStart, rangeEnd) {
		return nil
	}
	ev := baseCustomEvent(e)
	ev.ID = fmt.Sprintf("%s-%s", models.EventTypeCustomEvent, e.ID)
	ev.Start = e.StartAt.UTC()
	ev.End = e.EndAt.UTC()
	return []models.CalendarEvent{ev}
}

func baseCustomEvent(e models.CustomEvent) models.CalendarEvent {
	return models.CalendarEvent{
		Title:        e.Title,
		Description:  e.Description,
		Location:     e.Location,
		AllDay:       e.AllDay,
		Type:         models.EventTypeCustomEvent,
		Color:        pickColor(e.Color, nil, ColorDefault),
		OriginalID:   e.ID,
		OriginalType: models.EventTypeCustomEvent,
		IsSynced:     e.GoogleEventID != nil,
	}
}

// SessionStart resolves a session's week number, weekday and time-of-day to
// an absolute UTC instant. Weekdays are Sunday=0..Saturday=6 and the shift is
// computed from the start of the target week, so it never rolls into an
// adjacent week.
func SessionStart(semesterStart time.Time, weekNumber, dayOfWeek int, clock string, loc *time.Location) (time.Time, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return time.Time{}, fmt.Errorf("day of week %d out of range", dayOfWeek)
	}
	if weekNumber < 1 {
		return time.Time{}, fmt.Errorf("week number %d out of range", weekNumber)
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	ss := semesterStart.In(loc)
	firstWeekStart := time.Date(ss.Year(), ss.Month(), ss.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -int(ss.Weekday()))
	target := firstWeekStart.AddDate(0, 0, (weekNumber-1)*7+dayOfWeek)

	return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, loc).UTC(), nil
}

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2) intersect.
// Advisory only: the normalizer never rejects overlapping events.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

func parseClock(clock string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time of day %q", clock)
	}
	return hour, minute, nil
}

func assessmentColor(t models.AssessmentType) string {
	switch t {
	case models.AssessmentTypeExam:
		return ColorExam
	case models.AssessmentTypeQuiz:
		return ColorQuiz
	case models.AssessmentTypeProject:
		return ColorProject
	case models.AssessmentTypeOther:
		return ColorGray
	default:
		return ColorDefault
	}
}

func pickColor(explicit *string, course *models.Course, fallback string) string {
	if explicit != nil && *explicit != "" {
		return *explicit
	}
	if course != nil && course.Color != nil && *course.Color != "" {
		return *course.Color
	}
	return fallback
}

func (c Context) course(id *string) *models.Course {
	if id == nil {
		return nil
	}
	course, ok := c.Courses[*id]
	if !ok {
		return nil
	}
	return &course
}

func (c Context) attachCourse(ev *models.CalendarEvent, id *string) {
	course := c.course(id)
	if course == nil {
		return
	}
	ev.CourseID = &course.ID
	ev.CourseName = &course.Name
	ev.CourseCode = &course.Code
}
