package models

import "time"

// AssessmentType distinguishes graded work kinds.
type AssessmentType string

const (
	AssessmentTypeExam    AssessmentType = "EXAM"
	AssessmentTypeQuiz    AssessmentType = "QUIZ"
	AssessmentTypeProject AssessmentType = "PROJECT"
	AssessmentTypeOther   AssessmentType = "OTHER"
)

// Assessment is a graded deliverable with an absolute due date.
type Assessment struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	CourseID      *string        `db:"course_id" json:"course_id,omitempty"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	Type          AssessmentType `db:"type" json:"type"`
	DueDate       time.Time      `db:"due_date" json:"due_date"`
	Color         *string        `db:"color" json:"color,omitempty"`
	GoogleEventID *string        `db:"google_event_id" json:"google_event_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// StudySession is a weekly timetable slot relative to the semester start.
// DayOfWeek uses Sunday=0..Saturday=6; StartTime/EndTime are "15:04" strings
// interpreted in the user's configured timezone.
type StudySession struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CourseID      *string   `db:"course_id" json:"course_id,omitempty"`
	Subject       string    `db:"subject" json:"subject"`
	Description   string    `db:"description" json:"description"`
	DayOfWeek     int       `db:"day_of_week" json:"day_of_week"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	WeekNumber    int       `db:"week_number" json:"week_number"`
	Color         *string   `db:"color" json:"color,omitempty"`
	GoogleEventID *string   `db:"google_event_id" json:"google_event_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CustomEvent is a free-form event with absolute instants and an optional
// RFC 5545 recurrence rule.
type CustomEvent struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	Location       *string   `db:"location" json:"location,omitempty"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	EndAt          time.Time `db:"end_at" json:"end_at"`
	AllDay         bool      `db:"all_day" json:"all_day"`
	Color          *string   `db:"color" json:"color,omitempty"`
	RecurrenceRule *string   `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	GoogleEventID  *string   `db:"google_event_id" json:"google_event_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Milestone marks a dated study-plan checkpoint.
type Milestone struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CourseID      *string   `db:"course_id" json:"course_id,omitempty"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	MilestoneDate time.Time `db:"milestone_date" json:"milestone_date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Course supplies display metadata for normalized events.
type Course struct {
	ID     string  `db:"id" json:"id"`
	UserID string  `db:"user_id" json:"user_id"`
	Name   string  `db:"name" json:"name"`
	Code   string  `db:"code" json:"code"`
	Color  *string `db:"color" json:"color,omitempty"`
}
