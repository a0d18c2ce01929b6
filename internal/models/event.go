package models

import "time"

// CalendarEventType tags the source record a normalized event derives from.
type CalendarEventType string

const (
	EventTypeAssessment   CalendarEventType = "assessment"
	EventTypeStudySession CalendarEventType = "study_session"
	EventTypeCustomEvent  CalendarEventType = "custom_event"
	EventTypeMilestone    CalendarEventType = "milestone"
)

// CalendarEvent is the unified calendar representation. It is always derived
// from a source record and never persisted; recurring occurrences are
// recomputed on every query.
type CalendarEvent struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Location    *string           `json:"location,omitempty"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	AllDay      bool              `json:"all_day"`
	Type        CalendarEventType `json:"type"`
	Color       string            `json:"color"`
	CourseID    *string           `json:"course_id,omitempty"`
	CourseName  *string           `json:"course_name,omitempty"`
	CourseCode  *string           `json:"course_code,omitempty"`

	// OriginalID/OriginalType are a weak back-reference to the owning source
	// record: a lookup key only, never ownership.
	OriginalID   string            `json:"original_id"`
	OriginalType CalendarEventType `json:"original_type"`

	IsSynced       bool    `json:"is_synced"`
	IsRecurring    bool    `json:"is_recurring"`
	RecurrenceRule *string `json:"recurrence_rule,omitempty"`
}
