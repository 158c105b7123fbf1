package models

import (
	"time"
)

// QuestionType distinguishes the two supported question kinds.
type QuestionType string

const (
	QuestionCSI  QuestionType = "csi"  // closed rating, integer 1..5
	QuestionOpen QuestionType = "open" // free text
)

// Question is one entry in a survey template's ordered question list.
type Question struct {
	Type QuestionType `json:"type"`
	Text string       `json:"text"`
}

// User represents a registered bot participant.
type User struct {
	ID         string    `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"telegram_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	Status     string    `db:"status" json:"status"` // cohort label, "default" on signup
	Role       string    `db:"role" json:"role"`     // "user" or "admin"
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SurveyTemplate is an authored questionnaire; immutable once created.
type SurveyTemplate struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Questions []Question `db:"questions" json:"questions"` // JSONB column
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SurveyAssignment is one instance of a template given to one user.
// At most one incomplete assignment may exist per (user, template) pair.
type SurveyAssignment struct {
	ID          string     `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"` // telegram id
	TemplateID  string     `db:"template_id" json:"template_id"`
	AssignedAt  time.Time  `db:"assigned_at" json:"assigned_at"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// AssignedSurvey is the join of an open assignment with its template,
// used for "available surveys" listings.
type AssignedSurvey struct {
	AssignmentID string `json:"assignment_id"`
	TemplateID   string `json:"template_id"`
	Title        string `json:"title"`
}

// Response is one answered question; append-only.
type Response struct {
	ID           string       `db:"id" json:"id"`
	UserID       int64        `db:"user_id" json:"user_id"`
	AssignmentID string       `db:"assignment_id" json:"assignment_id"`
	TemplateID   string       `db:"template_id" json:"template_id"`
	Question     string       `db:"question" json:"question"`
	Answer       string       `db:"answer" json:"answer"` // integer rendered as text for csi
	Type         QuestionType `db:"type" json:"type"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// Recurrence describes how often a scheduled survey repeats.
type Recurrence string

const (
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// Valid reports whether r is one of the supported recurrence units.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// Next returns the firing time one recurrence unit after t.
func (r Recurrence) Next(t time.Time) time.Time {
	switch r {
	case RecurWeekly:
		return t.AddDate(0, 0, 7)
	case RecurMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// ScheduleEntry periodically creates new assignments for a user.
// NextRun is advanced by the poller after each firing.
type ScheduleEntry struct {
	ID         string     `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	TemplateID string     `db:"template_id" json:"template_id"`
	Recurrence Recurrence `db:"recurrence" json:"recurrence"`
	NextRun    time.Time  `db:"next_run" json:"next_run"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// StatusDefinition is a cohort label users can be moved into.
type StatusDefinition struct {
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StatusSurveyMapping assigns a template to every member of a status,
// current and future.
type StatusSurveyMapping struct {
	StatusName string    `db:"status_name" json:"status_name"`
	TemplateID string    `db:"template_id" json:"template_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// Admin is a dashboard account for the admin HTTP API.
type Admin struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
