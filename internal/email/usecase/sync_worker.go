package usecase

import (
	"context"
	"log"
	"sync"
	"time"
)

// SyncCompletedFunc is called after a queued sync finishes successfully
type SyncCompletedFunc func(ctx context.Context, userID string, result *SyncResult)

// SyncWorkerService runs queued SyncEmails calls in the background. A user
// is queued at most once, so two runs for the same user never overlap.
type SyncWorkerService struct {
	emailUsecase EmailUsecase
	onComplete   SyncCompletedFunc
	runTimeout   time.Duration

	jobQueue    chan string
	workerWg    sync.WaitGroup
	workerCount int

	mu      sync.Mutex
	pending map[string]bool
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSyncWorkerService creates a new sync worker service
func NewSyncWorkerService(emailUsecase EmailUsecase, workerCount int) *SyncWorkerService {
	if workerCount <= 0 {
		workerCount = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncWorkerService{
		emailUsecase: emailUsecase,
		runTimeout:   30 * time.Minute,
		jobQueue:     make(chan string, 500),
		workerCount:  workerCount,
		pending:      make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetOnComplete registers a hook, e.g. to push new alerts
func (s *SyncWorkerService) SetOnComplete(fn SyncCompletedFunc) {
	s.onComplete = fn
}

func (s *SyncWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Printf("[SyncWorker] Started %d workers", s.workerCount)
}

// Stop cancels running syncs and waits for workers to exit
func (s *SyncWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	close(s.jobQueue)
	s.mu.Unlock()

	s.workerWg.Wait()
	log.Println("[SyncWorker] All workers stopped")
}

func (s *SyncWorkerService) worker(id int) {
	defer s.workerWg.Done()
	for userID := range s.jobQueue {
		s.processJob(userID)
	}
	log.Printf("[SyncWorker] Worker %d stopped", id)
}

func (s *SyncWorkerService) processJob(userID string) {
	defer func() {
		s.mu.Lock()
		delete(s.pending, userID)
		s.mu.Unlock()
	}()
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	result, err := s.emailUsecase.SyncEmails(ctx, userID)
	if err != nil {
		log.Printf("[SyncWorker] Sync failed for user %s: %v", userID, err)
		return
	}
	log.Printf("[SyncWorker] User %s: %d processed, %d failed, %d alerts", userID, result.Processed, result.Failed, result.Alerts)
	if s.onComplete != nil {
		s.onComplete(ctx, userID, result)
	}
}

// QueueSync schedules a sync for the user. It returns false when one is
// already queued or running, or the queue is full.
func (s *SyncWorkerService) QueueSync(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[userID] || s.stopped {
		return false
	}
	select {
	case s.jobQueue <- userID:
		s.pending[userID] = true
		return true
	default:
		log.Printf("[SyncWorker] Queue full, dropping sync for user %s", userID)
		return false
	}
}

// RunSync runs a sync inline under the same per-user guard as queued jobs.
// It returns ErrSyncInProgress when a run for the user is queued or running.
func (s *SyncWorkerService) RunSync(ctx context.Context, userID string) (*SyncResult, error) {
	s.mu.Lock()
	if s.pending[userID] {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	if s.stopped {
		s.mu.Unlock()
		return nil, context.Canceled
	}
	s.pending[userID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, userID)
		s.mu.Unlock()
	}()

	result, err := s.emailUsecase.SyncEmails(ctx, userID)
	if err == nil && s.onComplete != nil {
		s.onComplete(ctx, userID, result)
	}
	return result, err
}

// IsPending reports whether a sync for the user is queued or running
func (s *SyncWorkerService) IsPending(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[userID]
}
