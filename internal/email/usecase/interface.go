package usecase

import (
	"context"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/classroom"
)

// EmailUsecase defines the interface for email use cases
type EmailUsecase interface {
	// ProcessEmail ingests one email: classify, embed, persist, run agents.
	// Re-running it for the same email overwrites instead of duplicating.
	ProcessEmail(ctx context.Context, userID string, email *emaildomain.Email) (*ProcessResult, error)
	// SyncEmails fetches new mail for a user and ingests it one email at a time
	SyncEmails(ctx context.Context, userID string) (*SyncResult, error)
	SyncAllUsers(ctx context.Context) error
	GetSyncStatus(userID string) (*emaildomain.SyncStatus, error)

	Search(ctx context.Context, userID, query string, topK int) ([]*emaildomain.ScoredEmail, error)
	Ask(ctx context.Context, userID, question string, topK int) (*ChatAnswer, error)
	RAGStats(userID string) (*RAGStats, error)

	GetDeadlines(userID string) ([]*emaildomain.Deadline, error)
	DeleteDeadline(userID, id string) error
	GetAlerts(userID string) ([]*emaildomain.ScheduleChange, error)
	DeleteAlert(userID, id string) error
	GetDocuments(userID string) ([]*emaildomain.Document, error)
	DownloadDocument(ctx context.Context, userID, id string) (*emaildomain.Document, []byte, error)
	GetAnalytics(userID string) (*Analytics, error)

	AddDeadlineToCalendar(ctx context.Context, userID, deadlineID string) (*emaildomain.Deadline, error)
	CreateCalendarEvent(ctx context.Context, userID string, event CalendarEvent) (string, error)

	// SummarizeEmail returns the cached summary of a stored email, generating it
	// on a miss or when refresh is set
	SummarizeEmail(ctx context.Context, userID, emailID string, refresh bool) (*emaildomain.EmailSummary, error)
	AnalyzeEmail(ctx context.Context, email *emaildomain.Email) (*emaildomain.EmailSummary, error)
	BuildDigest(ctx context.Context, userID string) (*Digest, error)

	ListCourses(ctx context.Context, userID string) ([]*classroom.Course, error)
	ListAssignments(ctx context.Context, userID, courseID string) ([]*classroom.Assignment, error)
	ListMaterials(ctx context.Context, userID, courseID string) ([]*classroom.Material, error)

	SetVectorIndex(index VectorIndex)
	SetCalendarService(svc CalendarService)
	SetClassroomService(svc ClassroomService)
	SetEventPublisher(pub EventPublisher)
	SetSyncSettingsProvider(get func() SyncSettings)
}

// MailConnector fetches mail for a user from whatever provider they connected.
// Query syntax follows Gmail search ("after:<unix-seconds>").
type MailConnector interface {
	FetchEmails(ctx context.Context, userID, query string, maxResults int) ([]*emaildomain.Email, error)
	FetchEmail(ctx context.Context, userID, emailID string) (*emaildomain.Email, error)
	FetchAttachment(ctx context.Context, userID, emailID, attachmentID string) ([]byte, error)
}

// VectorIndex is an approximate nearest-neighbour index over email text
type VectorIndex interface {
	Upsert(ctx context.Context, userID, emailID, text string, metadata map[string]interface{}) error
	Query(ctx context.Context, userID, query string, n int) ([]string, []float64, error)
}

// CalendarEvent is the payload for a one-hour calendar entry
type CalendarEvent struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Course      string    `json:"course"`
	Start       time.Time `json:"start" binding:"required"`
}

// CalendarService creates events in the user's external calendar
type CalendarService interface {
	CreateEvent(ctx context.Context, userID string, event CalendarEvent) (string, error)
}

// ClassroomService reads the user's Google Classroom
type ClassroomService interface {
	ListCourses(ctx context.Context, userID string) ([]*classroom.Course, error)
	ListAssignments(ctx context.Context, userID, courseID string) ([]*classroom.Assignment, error)
	ListMaterials(ctx context.Context, userID, courseID string) ([]*classroom.Material, error)
}

// EventPublisher pushes real-time events to connected clients
type EventPublisher interface {
	SendToUser(userID, eventType string, data interface{})
}

// Pacer spaces out work; rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SyncSettings are the runtime-tunable knobs of a sync run
type SyncSettings struct {
	Interval     time.Duration `json:"interval"`
	MaxResults   int           `json:"max_results"`
	LookbackDays int           `json:"lookback_days"`
	MaxRetries   int           `json:"max_retries"`
}

// ProcessResult describes what one ProcessEmail call produced
type ProcessResult struct {
	EmailID      string                        `json:"email_id"`
	Course       *string                       `json:"course,omitempty"`
	Deadlines    []*emaildomain.Deadline       `json:"deadlines"`
	Documents    []*emaildomain.Document       `json:"documents"`
	Alerts       []*emaildomain.ScheduleChange `json:"alerts"`
	Reminder     *ReminderSuggestion           `json:"reminder,omitempty"`
	FailedAgents []string                      `json:"failed_agents,omitempty"`
}

// SyncResult is returned by SyncEmails even when some emails failed
type SyncResult struct {
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Retried   int  `json:"retried"`
	Deadlines int  `json:"deadlines"`
	Alerts    int  `json:"alerts"`
	Documents int  `json:"documents"`
	UpToDate  bool `json:"up_to_date"`
}

// ReminderSuggestion is a time phrase spotted in an email
type ReminderSuggestion struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	EmailID       string `json:"email_id"`
	ExtractedTime string `json:"extracted_time"`
}

type ChatAnswer struct {
	Answer  string                     `json:"answer"`
	Sources []*emaildomain.ScoredEmail `json:"sources"`
}

type RAGStats struct {
	TotalEmails int64      `json:"total_emails"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	IndexBacked bool       `json:"index_backed"`
}

type Analytics struct {
	UpcomingDeadlines int            `json:"upcoming_deadlines"`
	PastDeadlines     int            `json:"past_deadlines"`
	DeadlinesByMonth  map[string]int `json:"deadlines_by_month"`
	DeadlinesByCourse map[string]int `json:"deadlines_by_course"`
	DocumentsByCourse map[string]int `json:"documents_by_course"`
	DocumentsByType   map[string]int `json:"documents_by_type"`
	AlertsByType      map[string]int `json:"alerts_by_type"`
	Heatmap           map[string]int `json:"heatmap"`
}
