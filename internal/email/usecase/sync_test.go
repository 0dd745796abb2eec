package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	authdomain "navigator-backend/internal/auth/domain"
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/internal/email/repository"
)

type recordedEvent struct {
	userID string
	event  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) SendToUser(userID, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{userID, eventType})
}

func (p *fakePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type failingDeadlines struct {
	repository.DeadlineRepository
}

func (failingDeadlines) ReplaceForEmail(userID, emailID string, deadlines []*emaildomain.Deadline) error {
	return errors.New("disk full")
}

func TestSyncQuery(t *testing.T) {
	last := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		status   *emaildomain.SyncStatus
		lookback int
		want     string
	}{
		{"first run", nil, 30, fmt.Sprintf("after:%d", testNow.AddDate(0, 0, -30).Unix())},
		{"status without watermark", &emaildomain.SyncStatus{UserID: "u1"}, 7, fmt.Sprintf("after:%d", testNow.AddDate(0, 0, -7).Unix())},
		{"incremental", &emaildomain.SyncStatus{UserID: "u1", LastSync: &last}, 30, fmt.Sprintf("after:%d", last.Unix())},
		{"default lookback", nil, 0, fmt.Sprintf("after:%d", testNow.AddDate(0, 0, -30).Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SyncQuery(tt.status, testNow, tt.lookback); got != tt.want {
				t.Errorf("SyncQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncEmailsPartialFailureAndRetry(t *testing.T) {
	bad := &emaildomain.Email{ID: "bad", Subject: "", Body: ""}
	env := newTestEnv(t,
		cs101Email(),
		bad,
		&emaildomain.Email{ID: "m3", Subject: "Club meeting", Body: "Pizza at the union."},
	)
	events := &fakePublisher{}
	env.uc.SetEventPublisher(events)
	ctx := context.Background()

	result, err := env.uc.SyncEmails(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncEmails() error = %v", err)
	}
	if result.Processed != 2 || result.Failed != 1 || result.UpToDate {
		t.Errorf("result = %+v, want 2 processed and 1 failed", result)
	}
	if env.pacer.waits != 3 {
		t.Errorf("pacer waits = %d, want one per email", env.pacer.waits)
	}
	if events.count("sync_progress") != 2 || events.count("sync_complete") != 1 {
		t.Errorf("events = %+v", events.events)
	}
	if want := fmt.Sprintf("after:%d", testNow.AddDate(0, 0, -30).Unix()); env.connector.queries[0] != want {
		t.Errorf("first query = %q, want %q", env.connector.queries[0], want)
	}

	status, _ := env.uc.GetSyncStatus("u1")
	if status.LastSync == nil || !status.LastSync.Equal(testNow) {
		t.Fatalf("LastSync = %v, want run start even on partial failure", status.LastSync)
	}
	if status.EmailsSynced != 2 || status.EmailsFailed != 1 {
		t.Errorf("status = %+v", status)
	}

	// The failed email is fixed upstream; the next run retries it by ID
	env.connector.emails = nil
	env.connector.byID["bad"] = &emaildomain.Email{ID: "bad", Subject: "Office hours moved", Body: "Thursday 3pm."}
	env.uc.now = func() time.Time { return testNow.Add(time.Hour) }
	env.pacer.waits = 0

	result, err = env.uc.SyncEmails(ctx, "u1")
	if err != nil {
		t.Fatalf("second SyncEmails() error = %v", err)
	}
	if result.Processed != 1 || result.Retried != 1 || result.Failed != 0 {
		t.Errorf("retry result = %+v", result)
	}
	if want := fmt.Sprintf("after:%d", testNow.Unix()); env.connector.queries[1] != want {
		t.Errorf("second query = %q, want %q", env.connector.queries[1], want)
	}
	retryable, _ := env.repos.SyncStatus.FindRetryable("u1", 3, 10)
	if len(retryable) != 0 {
		t.Errorf("dead letters after successful retry = %d", len(retryable))
	}
}

func TestSyncEmailsStopsRetryingAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t, &emaildomain.Email{ID: "bad"})
	env.uc.SetSyncSettingsProvider(func() SyncSettings {
		return SyncSettings{Interval: time.Second, MaxResults: 100, LookbackDays: 30, MaxRetries: 1}
	})
	ctx := context.Background()

	if _, err := env.uc.SyncEmails(ctx, "u1"); err != nil {
		t.Fatalf("SyncEmails() error = %v", err)
	}

	env.connector.emails = nil
	result, err := env.uc.SyncEmails(ctx, "u1")
	if err != nil {
		t.Fatalf("second SyncEmails() error = %v", err)
	}
	if !result.UpToDate || result.Retried != 0 {
		t.Errorf("result = %+v, want nothing retried", result)
	}
}

func TestSyncEmailsUpToDate(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails() error = %v", err)
	}
	if !result.UpToDate || result.Processed != 0 {
		t.Errorf("result = %+v", result)
	}
	if env.pacer.waits != 0 {
		t.Errorf("pacer waits = %d, want 0", env.pacer.waits)
	}
	status, _ := env.uc.GetSyncStatus("u1")
	if status.LastSync != nil {
		t.Errorf("watermark moved on an empty run: %v", status.LastSync)
	}
}

func TestSyncEmailsFetchError(t *testing.T) {
	env := newTestEnv(t)
	env.connector.fetchErr = errors.New("invalid_grant")

	result, err := env.uc.SyncEmails(context.Background(), "u1")
	if err == nil || result != nil {
		t.Fatalf("SyncEmails() = %v, %v; want top-level error", result, err)
	}
	if status, _ := env.uc.GetSyncStatus("u1"); status.LastSync != nil {
		t.Error("watermark written after a failed fetch")
	}
}

func TestSyncEmailsStoreErrorStopsRun(t *testing.T) {
	env := newTestEnv(t, cs101Email(), &emaildomain.Email{ID: "m3", Subject: "Club", Body: "Pizza"})
	env.uc.repos.Deadlines = failingDeadlines{env.repos.Deadlines}

	result, err := env.uc.SyncEmails(context.Background(), "u1")
	if !IsStoreError(err) {
		t.Fatalf("error = %v, want a store error", err)
	}
	if result == nil || result.Processed != 0 {
		t.Errorf("result = %+v", result)
	}
	if env.pacer.waits != 1 {
		t.Errorf("pacer waits = %d, want the run to stop after the first email", env.pacer.waits)
	}
	status, _ := env.uc.GetSyncStatus("u1")
	if status.UserID != "u1" || status.LastSync != nil {
		t.Errorf("status = %+v, want counts saved and the watermark unset", status)
	}
}

func TestSyncEmailsCancelledKeepsWatermark(t *testing.T) {
	env := newTestEnv(t,
		&emaildomain.Email{ID: "a1", Subject: "Club meeting", Body: "Pizza at the union."},
		&emaildomain.Email{ID: "a2", Subject: "Office hours", Body: "Thursday 3pm."},
		&emaildomain.Email{ID: "a3", Subject: "Library hours", Body: "Open late this week."},
	)
	previous := testNow.Add(-24 * time.Hour)
	if err := env.repos.SyncStatus.Save(&emaildomain.SyncStatus{UserID: "u1", LastSync: &previous}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.pacer.onWait = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	result, err := env.uc.SyncEmails(ctx, "u1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if result.Processed != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want 1 processed", result)
	}

	status, _ := env.uc.GetSyncStatus("u1")
	if status.LastSync == nil || !status.LastSync.Equal(previous) {
		t.Errorf("LastSync = %v, want the previous watermark %v", status.LastSync, previous)
	}

	// The next run starts from the same watermark and picks up the rest
	env.pacer.onWait = nil
	result, err = env.uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second SyncEmails() error = %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("second run processed = %d, want 3", result.Processed)
	}
	if want := fmt.Sprintf("after:%d", previous.Unix()); env.connector.queries[1] != want {
		t.Errorf("second query = %q, want %q", env.connector.queries[1], want)
	}
	if status, _ := env.uc.GetSyncStatus("u1"); status.LastSync == nil || !status.LastSync.Equal(testNow) {
		t.Errorf("LastSync after full run = %v, want %v", status.LastSync, testNow)
	}
}

func TestSyncAllUsers(t *testing.T) {
	env := newTestEnv(t, cs101Email())

	users := []*authdomain.User{
		{Email: "g@uni.edu", MailProvider: authdomain.MailProviderGoogle, GoogleRefreshToken: "r"},
		{Email: "i@uni.edu", MailProvider: authdomain.MailProviderIMAP, ImapHost: "imap.uni.edu", ImapUsername: "i"},
		{Email: "none@uni.edu"},
	}
	for _, u := range users {
		if err := env.userRepo.Create(u); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if err := env.uc.SyncAllUsers(context.Background()); err != nil {
		t.Fatalf("SyncAllUsers() error = %v", err)
	}

	for i, u := range users {
		status, _ := env.uc.GetSyncStatus(u.ID)
		synced := status.LastSync != nil
		if want := i < 2; synced != want {
			t.Errorf("user %s synced = %v, want %v", u.Email, synced, want)
		}
	}
}
