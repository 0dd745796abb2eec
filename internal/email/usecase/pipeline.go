package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	authrepo "navigator-backend/internal/auth/repository"
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/internal/email/repository"
	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/config"
	"navigator-backend/pkg/embedding"
	"navigator-backend/pkg/textutil"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

const snippetChars = 200

// Repositories groups the stores the email usecase writes to
type Repositories struct {
	Embeddings repository.EmailEmbeddingRepository
	Deadlines  repository.DeadlineRepository
	Alerts     repository.ScheduleChangeRepository
	Documents  repository.DocumentRepository
	SyncStatus repository.SyncStatusRepository
	Summaries  repository.EmailSummaryRepository
}

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	repos     Repositories
	userRepo  authrepo.UserRepository
	connector MailConnector
	generator ai.Generator
	embedder  embedding.Embedder

	vectorIndex VectorIndex
	calendar    CalendarService
	classroom   ClassroomService
	events      EventPublisher

	syncSettings    func() SyncSettings
	providerTimeout time.Duration

	now      func() time.Time
	location *time.Location
	newPacer func(interval time.Duration) Pacer
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(
	repos Repositories,
	userRepo authrepo.UserRepository,
	connector MailConnector,
	generator ai.Generator,
	embedder embedding.Embedder,
	cfg *config.Config,
) EmailUsecase {
	defaults := SyncSettings{
		Interval:     cfg.SyncEmailInterval,
		MaxResults:   cfg.SyncMaxResults,
		LookbackDays: cfg.SyncLookbackDays,
		MaxRetries:   cfg.SyncMaxRetries,
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	location, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		location = time.UTC
	}
	return &emailUsecase{
		repos:           repos,
		userRepo:        userRepo,
		connector:       connector,
		generator:       generator,
		embedder:        embedder,
		syncSettings:    func() SyncSettings { return defaults },
		providerTimeout: timeout,
		now:             func() time.Time { return time.Now().UTC() },
		location:        location,
		newPacer: func(interval time.Duration) Pacer {
			// Fresh bucket per run starts full, so the first email goes straight through
			return rate.NewLimiter(rate.Every(interval), 1)
		},
	}
}

func (u *emailUsecase) SetVectorIndex(index VectorIndex)         { u.vectorIndex = index }
func (u *emailUsecase) SetCalendarService(svc CalendarService)   { u.calendar = svc }
func (u *emailUsecase) SetClassroomService(svc ClassroomService) { u.classroom = svc }
func (u *emailUsecase) SetEventPublisher(pub EventPublisher)     { u.events = pub }
func (u *emailUsecase) SetSyncSettingsProvider(get func() SyncSettings) {
	if get != nil {
		u.syncSettings = get
	}
}

// resolveEmailID prefers the message ID, then the thread ID, then a
// synthesized "email_<unixMillis>_<9 chars>" identifier.
func (u *emailUsecase) resolveEmailID(email *emaildomain.Email) string {
	if id := strings.TrimSpace(email.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(email.ThreadID); id != "" {
		return id
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("email_%d_%s", u.now().UnixMilli(), suffix)
}

func (u *emailUsecase) ProcessEmail(ctx context.Context, userID string, email *emaildomain.Email) (*ProcessResult, error) {
	if email == nil {
		return nil, ErrNoUsableText
	}
	email.ID = u.resolveEmailID(email)
	if !email.HasUsableText() {
		return nil, fmt.Errorf("%w: %s", ErrNoUsableText, email.ID)
	}

	log.Printf("[Pipeline] Processing email: %s", email.ID)
	body := email.Text()

	course := u.classifyCourse(ctx, userID, email)

	embedCtx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	vector, err := u.embedder.Embed(embedCtx, embedding.Input(email.Subject, body), embedding.TaskDocument)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingUnavailable)
	}

	dim, err := u.repos.Embeddings.Dimension(userID)
	if err != nil {
		return nil, storeErr("load embedding dimension", err)
	}
	if dim != 0 && dim != len(vector) {
		return nil, fmt.Errorf("%w: got %d, stored %d", ErrDimensionMismatch, len(vector), dim)
	}

	category := emaildomain.CategoryGeneral
	if course != nil {
		category = emaildomain.CategoryCourse
	}
	row := &emaildomain.EmailEmbedding{
		UserID:     userID,
		EmailID:    email.ID,
		Subject:    email.Subject,
		From:       email.From,
		Date:       email.Date.UTC(),
		Snippet:    textutil.Truncate(firstNonEmpty(email.Snippet, body), snippetChars),
		Body:       body,
		Embedding:  datatypes.NewJSONSlice(vector),
		Category:   category,
		CourseName: course,
		Processed:  false,
	}
	if err := u.repos.Embeddings.Upsert(row); err != nil {
		return nil, storeErr("save embedding", err)
	}
	if u.repos.Summaries != nil {
		if err := u.repos.Summaries.DeleteSummary(userID, email.ID); err != nil {
			log.Printf("[Pipeline] Failed to drop cached summary for %s: %v", email.ID, err)
		}
	}

	result := &ProcessResult{
		EmailID:   email.ID,
		Course:    course,
		Deadlines: []*emaildomain.Deadline{},
		Documents: []*emaildomain.Document{},
		Alerts:    []*emaildomain.ScheduleChange{},
	}

	var mu sync.Mutex
	agentFailed := func(agent string, err error) {
		log.Printf("[Pipeline] %s agent failed for %s (%s): %v", agent, email.ID, ai.KindOf(err), err)
		mu.Lock()
		result.FailedAgents = append(result.FailedAgents, agent)
		mu.Unlock()
	}

	// A failed agent leaves previously stored records of its kind untouched.
	var g errgroup.Group
	g.Go(func() error {
		deadlines, err := u.extractDeadlines(ctx, email, course)
		if err != nil {
			agentFailed("deadline", err)
			return nil
		}
		if err := u.repos.Deadlines.ReplaceForEmail(userID, email.ID, deadlines); err != nil {
			return storeErr("save deadlines", err)
		}
		result.Deadlines = deadlines
		return nil
	})
	g.Go(func() error {
		docs := u.extractDocuments(email, course)
		if err := u.repos.Documents.ReplaceForEmail(userID, email.ID, docs); err != nil {
			return storeErr("save documents", err)
		}
		result.Documents = docs
		return nil
	})
	g.Go(func() error {
		alerts, err := u.detectAlerts(ctx, email, course)
		if err != nil {
			agentFailed("alert", err)
			return nil
		}
		if err := u.repos.Alerts.ReplaceForEmail(userID, email.ID, alerts); err != nil {
			return storeErr("save alerts", err)
		}
		result.Alerts = alerts
		return nil
	})
	g.Go(func() error {
		result.Reminder = DetectReminder(email)
		log.Printf("[Reminder Agent] Has reminder: %v", result.Reminder != nil)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	update := repository.ProcessedUpdate{
		Category:    finalCategory(course, result),
		HasDeadline: len(result.Deadlines) > 0,
	}
	if result.Reminder != nil {
		update.ReminderHint = result.Reminder.ExtractedTime
	}
	if err := u.repos.Embeddings.MarkProcessed(userID, email.ID, update); err != nil {
		return nil, storeErr("mark processed", err)
	}

	if u.vectorIndex != nil {
		metadata := map[string]interface{}{
			"subject":  email.Subject,
			"from":     email.From,
			"category": update.Category,
		}
		if err := u.vectorIndex.Upsert(ctx, userID, email.ID, embedding.Input(email.Subject, body), metadata); err != nil {
			log.Printf("[Pipeline] Vector index upsert failed for %s: %v", email.ID, err)
		}
	}

	log.Printf("[Pipeline] Email %s processed: %d deadlines, %d documents, %d alerts",
		email.ID, len(result.Deadlines), len(result.Documents), len(result.Alerts))
	return result, nil
}

func finalCategory(course *string, result *ProcessResult) string {
	switch {
	case len(result.Alerts) > 0:
		return emaildomain.CategoryScheduleChange
	case len(result.Deadlines) > 0:
		return emaildomain.CategoryDeadline
	case course != nil:
		return emaildomain.CategoryCourse
	}
	return emaildomain.CategoryGeneral
}
