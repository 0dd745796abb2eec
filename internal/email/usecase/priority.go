package usecase

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"
)

const (
	highPriorityWindow   = 48 * time.Hour
	mediumPriorityWindow = 7 * 24 * time.Hour
)

// PriorityFor buckets a due date relative to now. Comparisons are strict, so
// a deadline exactly two days out is medium and exactly seven days out is low.
// Overdue deadlines are high.
func PriorityFor(due, now time.Time) emaildomain.Priority {
	left := due.Sub(now)
	switch {
	case left < highPriorityWindow:
		return emaildomain.PriorityHigh
	case left < mediumPriorityWindow:
		return emaildomain.PriorityMedium
	default:
		return emaildomain.PriorityLow
	}
}
