package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// DigestSender delivers the daily digest to every user
type DigestSender interface {
	SendAll(ctx context.Context) (int, error)
}

// DailyDigestScheduler sends the digest once per local day, on the first
// check at or after the configured hour.
type DailyDigestScheduler struct {
	sender   DigestSender
	hour     int
	location *time.Location
	interval time.Duration
	now      func() time.Time
	lastDay  string

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewDailyDigestScheduler creates a new scheduler. A negative hour disables it.
func NewDailyDigestScheduler(sender DigestSender, hour int, timezone string) *DailyDigestScheduler {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("[DigestScheduler] Unknown timezone %q, using UTC", timezone)
		location = time.UTC
	}
	return &DailyDigestScheduler{
		sender:   sender,
		hour:     hour,
		location: location,
		interval: time.Minute,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *DailyDigestScheduler) Start() {
	if s.sender == nil || s.hour < 0 {
		log.Println("[DigestScheduler] Daily digest disabled")
		close(s.done)
		return
	}

	log.Printf("[DigestScheduler] Starting (daily at %02d:00 %s)", s.hour, s.location)
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunIfDue(context.Background())
			case <-s.stopChan:
				log.Println("[DigestScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

func (s *DailyDigestScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

// RunIfDue sends today's digests if the hour has come and they have not gone
// out yet. A failed listing is retried on the next check.
func (s *DailyDigestScheduler) RunIfDue(ctx context.Context) bool {
	local := s.now().In(s.location)
	if local.Hour() < s.hour {
		return false
	}
	day := local.Format("2006-01-02")
	if day == s.lastDay {
		return false
	}

	sent, err := s.sender.SendAll(ctx)
	if err != nil {
		log.Printf("[DigestScheduler] Digest run failed: %v", err)
		return false
	}
	s.lastDay = day
	log.Printf("[DigestScheduler] Sent %d digests for %s", sent, day)
	return true
}
