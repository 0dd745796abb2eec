package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type blockingSyncer struct {
	EmailUsecase
	started chan string
	release chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func (b *blockingSyncer) SyncEmails(ctx context.Context, userID string) (*SyncResult, error) {
	b.mu.Lock()
	b.calls[userID]++
	b.mu.Unlock()
	b.started <- userID
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &SyncResult{Processed: 1, Alerts: 2}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSyncWorkerDedupesPerUser(t *testing.T) {
	syncer := &blockingSyncer{
		started: make(chan string, 4),
		release: make(chan struct{}),
		calls:   map[string]int{},
	}
	worker := NewSyncWorkerService(syncer, 2)

	var mu sync.Mutex
	completed := map[string]int{}
	worker.SetOnComplete(func(ctx context.Context, userID string, result *SyncResult) {
		mu.Lock()
		defer mu.Unlock()
		completed[userID] += result.Alerts
	})
	worker.Start()
	defer worker.Stop()

	if !worker.QueueSync("u1") {
		t.Fatal("first QueueSync() = false")
	}
	<-syncer.started
	if worker.QueueSync("u1") {
		t.Error("QueueSync() accepted a second run while one is in progress")
	}
	if !worker.IsPending("u1") {
		t.Error("IsPending(u1) = false during a run")
	}

	close(syncer.release)
	waitFor(t, func() bool { return !worker.IsPending("u1") })

	mu.Lock()
	got := completed["u1"]
	mu.Unlock()
	if got != 2 {
		t.Errorf("onComplete alerts = %d, want 2", got)
	}

	if !worker.QueueSync("u1") {
		t.Error("QueueSync() refused after the previous run finished")
	}
	<-syncer.started
	waitFor(t, func() bool { return !worker.IsPending("u1") })

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if syncer.calls["u1"] != 2 {
		t.Errorf("SyncEmails calls = %d, want 2", syncer.calls["u1"])
	}
}

func TestSyncWorkerRejectsAfterStop(t *testing.T) {
	worker := NewSyncWorkerService(&blockingSyncer{calls: map[string]int{}}, 1)
	worker.Start()
	worker.Stop()
	worker.Stop()

	if worker.QueueSync("u1") {
		t.Error("QueueSync() accepted a job after Stop")
	}
}

func TestSyncWorkerRunSyncSharesPendingSet(t *testing.T) {
	syncer := &blockingSyncer{
		started: make(chan string, 4),
		release: make(chan struct{}),
		calls:   map[string]int{},
	}
	worker := NewSyncWorkerService(syncer, 1)
	worker.Start()
	defer worker.Stop()

	done := make(chan error, 1)
	go func() {
		_, err := worker.RunSync(context.Background(), "u2")
		done <- err
	}()
	<-syncer.started
	if worker.QueueSync("u2") {
		t.Error("QueueSync() accepted a run while an inline run is in progress")
	}

	if !worker.QueueSync("u1") {
		t.Fatal("QueueSync(u1) = false")
	}
	<-syncer.started
	if _, err := worker.RunSync(context.Background(), "u1"); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("RunSync() during a queued run error = %v, want ErrSyncInProgress", err)
	}

	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("RunSync() error = %v", err)
	}
	waitFor(t, func() bool { return !worker.IsPending("u1") && !worker.IsPending("u2") })

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if syncer.calls["u1"] != 1 || syncer.calls["u2"] != 1 {
		t.Errorf("SyncEmails calls = %v, want one per user", syncer.calls)
	}
}
