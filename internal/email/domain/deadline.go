package domain

import "time"

// Priority represents deadline urgency
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type DeadlineType string

const (
	DeadlineAssignment DeadlineType = "assignment"
	DeadlineExam       DeadlineType = "exam"
	DeadlineProject    DeadlineType = "project"
	DeadlineSubmission DeadlineType = "submission"
)

// ParseDeadlineType maps free text onto the enum; unknown values become assignment.
func ParseDeadlineType(s string) DeadlineType {
	switch DeadlineType(s) {
	case DeadlineExam, DeadlineProject, DeadlineSubmission:
		return DeadlineType(s)
	}
	return DeadlineAssignment
}

const UnknownCourse = "Unknown"

// Deadline is extracted from an email. ID is "<emailId>_deadline_<i>".
type Deadline struct {
	UserID          string       `json:"user_id" gorm:"primaryKey"`
	ID              string       `json:"id" gorm:"primaryKey"`
	EmailID         string       `json:"email_id" gorm:"index;not null"`
	Title           string       `json:"title" gorm:"not null"`
	Course          string       `json:"course"`
	DueDate         time.Time    `json:"due_date" gorm:"index"`
	DueTime         string       `json:"due_time,omitempty"`
	Description     string       `json:"description,omitempty"`
	Type            DeadlineType `json:"type" gorm:"default:assignment"`
	Priority        Priority     `json:"priority" gorm:"default:medium"`
	AddedToCalendar bool         `json:"added_to_calendar" gorm:"default:false"`
	CalendarEventID string       `json:"calendar_event_id,omitempty"`
	ReminderSent    bool         `json:"reminder_sent" gorm:"default:false"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
