package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
)

// ProcessedUpdate is written once all agents for an email have finished.
type ProcessedUpdate struct {
	Category     string
	HasDeadline  bool
	ReminderHint string
}

// EmailEmbeddingRepository stores one row per (user, email).
type EmailEmbeddingRepository interface {
	// Upsert inserts or fully replaces the row for (UserID, EmailID)
	Upsert(e *emaildomain.EmailEmbedding) error
	// MarkProcessed flips processed=true and stores the derived summary fields
	MarkProcessed(userID, emailID string, update ProcessedUpdate) error
	FindByID(userID, emailID string) (*emaildomain.EmailEmbedding, error)
	FindByIDs(userID string, emailIDs []string) ([]*emaildomain.EmailEmbedding, error)
	FindByUser(userID string) ([]*emaildomain.EmailEmbedding, error)
	CountByUser(userID string) (int64, error)
	// CourseNames returns the distinct course labels already seen for a user
	CourseNames(userID string) ([]string, error)
	// Dimension returns the vector length used by the user's stored rows, 0 if none
	Dimension(userID string) (int, error)
}

// DeadlineRepository manages deadlines extracted from emails
type DeadlineRepository interface {
	// ReplaceForEmail makes the given set the only deadlines of an email.
	// Calendar state of surviving IDs is preserved.
	ReplaceForEmail(userID, emailID string, deadlines []*emaildomain.Deadline) error
	FindByUser(userID string) ([]*emaildomain.Deadline, error)
	FindByID(userID, id string) (*emaildomain.Deadline, error)
	Delete(userID, id string) error
	MarkAddedToCalendar(userID, id, eventID string) error
	FindDueForReminder(from, to time.Time) ([]*emaildomain.Deadline, error)
	MarkReminderSent(userID, id string) error
}

// ScheduleChangeRepository manages alerts
type ScheduleChangeRepository interface {
	ReplaceForEmail(userID, emailID string, alerts []*emaildomain.ScheduleChange) error
	FindByUser(userID string) ([]*emaildomain.ScheduleChange, error)
	Delete(userID, id string) error
}

// DocumentRepository manages course documents
type DocumentRepository interface {
	ReplaceForEmail(userID, emailID string, docs []*emaildomain.Document) error
	FindByUser(userID string) ([]*emaildomain.Document, error)
	FindByID(userID, id string) (*emaildomain.Document, error)
}

// SyncStatusRepository tracks the sync watermark and dead-lettered emails
type SyncStatusRepository interface {
	Get(userID string) (*emaildomain.SyncStatus, error)
	// Save persists the status; LastSync never moves backwards
	Save(status *emaildomain.SyncStatus) error
	RecordFailure(userID, emailID, reason string) error
	ClearFailure(userID, emailID string) error
	FindRetryable(userID string, maxAttempts, limit int) ([]*emaildomain.FailedEmail, error)
}

// EmailSummaryRepository caches per-email AI summaries
type EmailSummaryRepository interface {
	// GetSummary returns nil when no summary is cached
	GetSummary(userID, emailID string) (*emaildomain.EmailSummary, error)
	SaveSummary(summary *emaildomain.EmailSummary) error
	DeleteSummary(userID, emailID string) error
}

// AutoMigrate creates or updates the email tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&emaildomain.EmailEmbedding{},
		&emaildomain.Deadline{},
		&emaildomain.ScheduleChange{},
		&emaildomain.Document{},
		&emaildomain.SyncStatus{},
		&emaildomain.FailedEmail{},
		&emaildomain.EmailSummary{},
	)
}
