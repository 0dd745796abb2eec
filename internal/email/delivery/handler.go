package delivery

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"

	emaildomain "navigator-backend/internal/email/domain"
	emaildto "navigator-backend/internal/email/dto"
	"navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/ai"

	"github.com/gin-gonic/gin"
)

// SyncQueue runs syncs in the background
type SyncQueue interface {
	QueueSync(userID string) bool
	IsPending(userID string) bool
	RunSync(ctx context.Context, userID string) (*usecase.SyncResult, error)
}

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
	syncQueue    SyncQueue
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// SetSyncQueue makes POST /sync/emails asynchronous
func (h *EmailHandler) SetSyncQueue(q SyncQueue) {
	h.syncQueue = q
}

// errorStatus maps usecase errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUserNotConnected), errors.Is(err, usecase.ErrCalendarUnavailable),
		errors.Is(err, usecase.ErrClassroomUnavailable), errors.Is(err, usecase.ErrNoUsableText):
		return http.StatusBadRequest
	case ai.IsQuota(err):
		return http.StatusTooManyRequests
	case errors.Is(err, usecase.ErrEmbeddingUnavailable), ai.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// POST /api/sync/emails
func (h *EmailHandler) SyncEmails(c *gin.Context) {
	userID := c.GetString("userID")

	if h.syncQueue != nil && c.Query("wait") != "true" {
		if h.syncQueue.IsPending(userID) {
			c.JSON(http.StatusAccepted, emaildto.SyncQueuedResponse{Queued: false, Message: "sync already in progress"})
			return
		}
		queued := h.syncQueue.QueueSync(userID)
		if !queued {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync queue is full"})
			return
		}
		c.JSON(http.StatusAccepted, emaildto.SyncQueuedResponse{Queued: true, Message: "sync started"})
		return
	}

	// wait=true runs inline, still one run per user at a time
	var result *usecase.SyncResult
	var err error
	if h.syncQueue != nil {
		result, err = h.syncQueue.RunSync(c.Request.Context(), userID)
	} else {
		result, err = h.emailUsecase.SyncEmails(c.Request.Context(), userID)
	}
	if err != nil {
		if result != nil {
			// Partial run: report what was done alongside the error
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/sync/status
func (h *EmailHandler) GetSyncStatus(c *gin.Context) {
	userID := c.GetString("userID")
	status, err := h.emailUsecase.GetSyncStatus(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	inProgress := false
	if h.syncQueue != nil {
		inProgress = h.syncQueue.IsPending(userID)
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "in_progress": inProgress})
}

// POST /api/search
func (h *EmailHandler) Search(c *gin.Context) {
	var req emaildto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.emailUsecase.Search(c.Request.Context(), c.GetString("userID"), req.Query, req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.SearchResponse{Query: req.Query, Results: results, Count: len(results)})
}

// POST /api/chat/email-rag
func (h *EmailHandler) Chat(c *gin.Context) {
	var req emaildto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.emailUsecase.Ask(c.Request.Context(), c.GetString("userID"), req.Question, req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// GET /api/rag/stats
func (h *EmailHandler) RAGStats(c *gin.Context) {
	stats, err := h.emailUsecase.RAGStats(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *EmailHandler) GetDeadlines(c *gin.Context) {
	deadlines, err := h.emailUsecase.GetDeadlines(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.DeadlinesResponse{Deadlines: deadlines, Count: len(deadlines)})
}

func (h *EmailHandler) DeleteDeadline(c *gin.Context) {
	if err := h.emailUsecase.DeleteDeadline(c.GetString("userID"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deadline deleted"})
}

// POST /api/deadlines/:id/calendar
func (h *EmailHandler) AddDeadlineToCalendar(c *gin.Context) {
	deadline, err := h.emailUsecase.AddDeadlineToCalendar(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deadline)
}

func (h *EmailHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.emailUsecase.GetAlerts(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.AlertsResponse{Alerts: alerts, Count: len(alerts)})
}

func (h *EmailHandler) DeleteAlert(c *gin.Context) {
	if err := h.emailUsecase.DeleteAlert(c.GetString("userID"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}

// GET /api/documents?type=pdf&course=CS101
func (h *EmailHandler) GetDocuments(c *gin.Context) {
	docs, err := h.emailUsecase.GetDocuments(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	docs = usecase.FilterDocuments(docs, c.Query("type"), c.Query("course"))
	c.JSON(http.StatusOK, emaildto.DocumentsResponse{Documents: docs, Count: len(docs)})
}

// GET /api/documents/:id/download
func (h *EmailHandler) DownloadDocument(c *gin.Context) {
	doc, data, err := h.emailUsecase.DownloadDocument(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename})
	if disposition == "" {
		disposition = fmt.Sprintf("attachment; filename=%q", doc.ID)
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, mimeType, data)
}

func (h *EmailHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.emailUsecase.GetAnalytics(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// POST /api/calendar/events
func (h *EmailHandler) CreateCalendarEvent(c *gin.Context) {
	var req usecase.CalendarEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventID, err := h.emailUsecase.CreateCalendarEvent(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": eventID})
}

func summaryResponse(s *emaildomain.EmailSummary) emaildto.SummaryResponse {
	return emaildto.SummaryResponse{
		EmailID:     s.EmailID,
		Summary:     s.Summary,
		Markdown:    s.Markdown(),
		HasDeadline: s.HasDeadline,
		Deadlines:   s.Deadlines,
	}
}

// GET /api/emails/:id/summary?refresh=true
func (h *EmailHandler) GetEmailSummary(c *gin.Context) {
	refresh := c.Query("refresh") == "true"
	summary, err := h.emailUsecase.SummarizeEmail(c.Request.Context(), c.GetString("userID"), c.Param("id"), refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse(summary))
}

// POST /api/emails/analyze
func (h *EmailHandler) AnalyzeEmail(c *gin.Context) {
	var req emaildto.AnalyzeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.emailUsecase.AnalyzeEmail(c.Request.Context(), &emaildomain.Email{
		ID:      req.EmailID,
		Subject: req.Subject,
		From:    req.From,
		Body:    req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse(summary))
}

// GET /api/digest
func (h *EmailHandler) GetDigest(c *gin.Context) {
	digest, err := h.emailUsecase.BuildDigest(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, digest)
}

func (h *EmailHandler) ListCourses(c *gin.Context) {
	courses, err := h.emailUsecase.ListCourses(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.CoursesResponse{Courses: courses, Count: len(courses)})
}

// GET /api/classroom/courses/:id/assignments
func (h *EmailHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.emailUsecase.ListAssignments(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.AssignmentsResponse{Assignments: assignments, Count: len(assignments)})
}

func (h *EmailHandler) ListMaterials(c *gin.Context) {
	materials, err := h.emailUsecase.ListMaterials(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emaildto.MaterialsResponse{Materials: materials, Count: len(materials)})
}
