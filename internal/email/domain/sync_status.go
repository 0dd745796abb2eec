package domain

import "time"

// SyncStatus is the per-user sync watermark. LastSync only moves forward.
type SyncStatus struct {
	UserID         string     `json:"user_id" gorm:"primaryKey"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	EmailsSynced   int        `json:"emails_synced"`
	EmailsFailed   int        `json:"emails_failed"`
	DeadlinesFound int        `json:"deadlines_found"`
	AlertsFound    int        `json:"alerts_found"`
	DocumentsFound int        `json:"documents_found"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FailedEmail records an email that could not be processed so a later sync
// can retry it after the watermark has moved past it.
type FailedEmail struct {
	UserID        string    `json:"user_id" gorm:"primaryKey"`
	EmailID       string    `json:"email_id" gorm:"primaryKey"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}
