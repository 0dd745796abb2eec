package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Category values for EmailEmbedding.
const (
	CategoryGeneral        = "general"
	CategoryCourse         = "course"
	CategoryDeadline       = "deadline"
	CategoryScheduleChange = "schedule_change"
)

// EmailEmbedding is the stored representation of one ingested email.
// There is exactly one row per (user, email).
type EmailEmbedding struct {
	UserID       string                      `json:"user_id" gorm:"primaryKey"`
	EmailID      string                      `json:"email_id" gorm:"primaryKey"`
	Subject      string                      `json:"subject"`
	From         string                      `json:"from" gorm:"column:from_address"`
	Date         time.Time                   `json:"date" gorm:"index"`
	Snippet      string                      `json:"snippet"`
	Body         string                      `json:"body"`
	Embedding    datatypes.JSONSlice[float32] `json:"-"`
	Category     string                      `json:"category" gorm:"default:general"`
	CourseName   *string                     `json:"course_name,omitempty"`
	HasDeadline  bool                        `json:"has_deadline"`
	ReminderHint string                      `json:"reminder_hint,omitempty"`
	Processed    bool                        `json:"processed" gorm:"index"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// ScoredEmail is a search hit.
type ScoredEmail struct {
	EmailEmbedding
	Similarity float64 `json:"similarity"`
}
