package dto

import (
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/classroom"
)

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

type SearchResponse struct {
	Query   string                     `json:"query"`
	Results []*emaildomain.ScoredEmail `json:"results"`
	Count   int                        `json:"count"`
}

type ChatRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
}

type DeadlinesResponse struct {
	Deadlines []*emaildomain.Deadline `json:"deadlines"`
	Count     int                     `json:"count"`
}

type AlertsResponse struct {
	Alerts []*emaildomain.ScheduleChange `json:"alerts"`
	Count  int                           `json:"count"`
}

type DocumentsResponse struct {
	Documents []*emaildomain.Document `json:"documents"`
	Count     int                     `json:"count"`
}

type SyncQueuedResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

type AnalyzeEmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from"`
	EmailID string `json:"email_id"`
}

type SummaryResponse struct {
	EmailID     string                        `json:"email_id,omitempty"`
	Summary     string                        `json:"summary"`
	Markdown    string                        `json:"markdown"`
	HasDeadline bool                          `json:"has_deadline"`
	Deadlines   []emaildomain.SummaryDeadline `json:"deadlines"`
}

type CoursesResponse struct {
	Courses []*classroom.Course `json:"courses"`
	Count   int                 `json:"count"`
}

type AssignmentsResponse struct {
	Assignments []*classroom.Assignment `json:"assignments"`
	Count       int                     `json:"count"`
}

type MaterialsResponse struct {
	Materials []*classroom.Material `json:"materials"`
	Count     int                   `json:"count"`
}
