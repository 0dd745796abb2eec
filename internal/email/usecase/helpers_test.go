package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	authrepo "navigator-backend/internal/auth/repository"
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/internal/email/repository"
	"navigator-backend/pkg/config"
	"navigator-backend/pkg/embedding"
	"navigator-backend/pkg/secret"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) // a Tuesday

// fakeGenerator answers each agent prompt with a canned response and counts calls per agent
type fakeGenerator struct {
	mu        sync.Mutex
	calls     map[string]int
	course    string
	deadlines string
	alertDate string
	summary   string
	chat      string
	fail      map[string]error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:     map[string]int{},
		course:    "null",
		deadlines: "[]",
		alertDate: `{"date": null}`,
		summary:   `{"summary": "Nothing to do.", "hasDeadline": false, "deadlines": []}`,
		chat:      "No answer",
		fail:      map[string]error{},
	}
}

func agentOf(prompt string) string {
	switch {
	case strings.Contains(prompt, "identify the course name"):
		return "classify"
	case strings.Contains(prompt, "Extract all deadlines"):
		return "deadline"
	case strings.Contains(prompt, "announces a change to a class session"):
		return "alert"
	case strings.Contains(prompt, "Analyze this email and provide"):
		return "summary"
	}
	return "chat"
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	agent := agentOf(prompt)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[agent]++
	if err := g.fail[agent]; err != nil {
		return "", err
	}
	switch agent {
	case "classify":
		return g.course, nil
	case "deadline":
		return g.deadlines, nil
	case "alert":
		return g.alertDate, nil
	case "summary":
		return g.summary, nil
	}
	return g.chat, nil
}

func (g *fakeGenerator) count(agent string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[agent]
}

func (g *fakeGenerator) setFail(agent string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[agent] = err
}

// fakeEmbedder maps texts to fixed vectors; unknown texts get the default
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}, fallback: []float32{1, 0, 0}}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string, task embedding.TaskType) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

// fakeConnector serves a fixed inbox
type fakeConnector struct {
	mu          sync.Mutex
	emails      []*emaildomain.Email
	byID        map[string]*emaildomain.Email
	fetchErr    error
	queries     []string
	attachments map[string][]byte
}

func newFakeConnector(emails ...*emaildomain.Email) *fakeConnector {
	c := &fakeConnector{byID: map[string]*emaildomain.Email{}, attachments: map[string][]byte{}}
	c.emails = emails
	for _, e := range emails {
		c.byID[e.ID] = e
	}
	return c
}

func (c *fakeConnector) FetchEmails(ctx context.Context, userID, query string, maxResults int) ([]*emaildomain.Email, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	out := make([]*emaildomain.Email, 0, len(c.emails))
	for _, e := range c.emails {
		copied := *e
		out = append(out, &copied)
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (c *fakeConnector) FetchEmail(ctx context.Context, userID, emailID string) (*emaildomain.Email, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[emailID]
	if !ok {
		return nil, errors.New("message not found")
	}
	copied := *e
	return &copied, nil
}

func (c *fakeConnector) FetchAttachment(ctx context.Context, userID, emailID, attachmentID string) ([]byte, error) {
	data, ok := c.attachments[emailID+"/"+attachmentID]
	if !ok {
		return nil, errors.New("attachment not found")
	}
	return data, nil
}

type countingPacer struct {
	waits  int
	onWait func(n int)
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.onWait != nil {
		p.onWait(p.waits)
	}
	return ctx.Err()
}

type testEnv struct {
	uc        *emailUsecase
	db        *gorm.DB
	repos     Repositories
	userRepo  authrepo.UserRepository
	generator *fakeGenerator
	embedder  *fakeEmbedder
	connector *fakeConnector
	pacer     *countingPacer
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := secret.SetKey(secret.DeriveKey("usecase-test")); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "usecase.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := authrepo.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate auth tables: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate email tables: %v", err)
	}
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.SetMaxOpenConns(1)
	}
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, emails ...*emaildomain.Email) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	env := &testEnv{
		db: db,
		repos: Repositories{
			Embeddings: repository.NewEmailEmbeddingRepository(db),
			Deadlines:  repository.NewDeadlineRepository(db),
			Alerts:     repository.NewScheduleChangeRepository(db),
			Documents:  repository.NewDocumentRepository(db),
			SyncStatus: repository.NewSyncStatusRepository(db),
			Summaries:  repository.NewEmailSummaryRepository(db),
		},
		userRepo:  authrepo.NewUserRepository(db),
		generator: newFakeGenerator(),
		embedder:  newFakeEmbedder(),
		connector: newFakeConnector(emails...),
		pacer:     &countingPacer{},
	}

	cfg := &config.Config{
		SyncEmailInterval: time.Second,
		SyncMaxResults:    100,
		SyncLookbackDays:  30,
		SyncMaxRetries:    3,
		ProviderTimeout:   5 * time.Second,
	}
	env.uc = NewEmailUsecase(env.repos, env.userRepo, env.connector, env.generator, env.embedder, cfg).(*emailUsecase)
	env.uc.now = func() time.Time { return testNow }
	env.uc.newPacer = func(time.Duration) Pacer { return env.pacer }
	return env
}

func cs101Email() *emaildomain.Email {
	return &emaildomain.Email{
		ID:      "m1",
		Subject: "CS101 HW3 due Friday",
		From:    "prof@uni.edu",
		Date:    testNow.Add(-time.Hour),
		Body:    "Homework 3 is due Friday March 13 at 11:59pm. Submit on the portal.",
		Attachments: []emaildomain.Attachment{
			{ID: "att1", Filename: "CS101_HW3.pdf", MimeType: "application/pdf", Size: 2048},
			{ID: "att2", Filename: "logo.png", MimeType: "image/png", Size: 100},
		},
	}
}

const cs101Deadlines = `Here you go:
[{"title": "HW3", "date": "2026-03-13", "time": "23:59", "type": "assignment", "course": "CS101"}]`
