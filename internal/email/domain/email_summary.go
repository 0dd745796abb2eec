package domain

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// SummaryDeadline is a due date spotted while summarising one email
type SummaryDeadline struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description,omitempty"`
}

// EmailSummary stores cached AI-generated summaries for emails
type EmailSummary struct {
	UserID      string                               `json:"user_id" gorm:"primaryKey"`
	EmailID     string                               `json:"email_id" gorm:"primaryKey"`
	Subject     string                               `json:"subject"`
	Summary     string                               `json:"summary" gorm:"type:text"`
	HasDeadline bool                                 `json:"has_deadline"`
	Deadlines   datatypes.JSONSlice[SummaryDeadline] `json:"deadlines"`
	CreatedAt   time.Time                            `json:"created_at"`
	UpdatedAt   time.Time                            `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (EmailSummary) TableName() string {
	return "email_summaries"
}

// Markdown renders the summary for display
func (s *EmailSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("## Email Summary\n\n### Main Purpose\n")
	b.WriteString(s.Summary)
	b.WriteString("\n")

	if len(s.Deadlines) > 0 {
		b.WriteString("\n### Deadlines Found\n")
		for _, d := range s.Deadlines {
			fmt.Fprintf(&b, "- **%s** - Due: %s", d.Title, d.Date)
			if d.Time != "" {
				fmt.Fprintf(&b, " at %s", d.Time)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n### Action Items\n")
	if s.HasDeadline {
		b.WriteString("Review deadlines above and add to calendar")
	} else {
		b.WriteString("_No immediate action required._")
	}
	return b.String()
}
