package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/internal/email/repository"
	"navigator-backend/pkg/fcm"
)

// Pusher delivers a notification to all devices of a user
type Pusher interface {
	PushToUser(ctx context.Context, userID string, n fcm.NotificationData) (int, error)
}

// DeadlineReminderScheduler pushes one reminder per deadline once it falls
// inside the reminder window.
type DeadlineReminderScheduler struct {
	deadlineRepo repository.DeadlineRepository
	pusher       Pusher
	window       time.Duration
	interval     time.Duration
	now          func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewDeadlineReminderScheduler creates a new scheduler
func NewDeadlineReminderScheduler(deadlineRepo repository.DeadlineRepository, pusher Pusher, window, interval time.Duration) *DeadlineReminderScheduler {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &DeadlineReminderScheduler{
		deadlineRepo: deadlineRepo,
		pusher:       pusher,
		window:       window,
		interval:     interval,
		now:          time.Now,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs a check immediately and then on every tick
func (s *DeadlineReminderScheduler) Start() {
	if s.pusher == nil {
		log.Println("[DeadlineScheduler] No push sender, scheduler disabled")
		close(s.done)
		return
	}

	log.Printf("[DeadlineScheduler] Starting (interval: %s, window: %s)", s.interval, s.window)
	go func() {
		defer close(s.done)
		s.CheckAndSendReminders(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CheckAndSendReminders(context.Background())
			case <-s.stopChan:
				log.Println("[DeadlineScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

func (s *DeadlineReminderScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

// CheckAndSendReminders returns how many reminders were marked sent
func (s *DeadlineReminderScheduler) CheckAndSendReminders(ctx context.Context) int {
	now := s.now().UTC()
	deadlines, err := s.deadlineRepo.FindDueForReminder(now, now.Add(s.window))
	if err != nil {
		log.Printf("[DeadlineScheduler] Error finding due deadlines: %v", err)
		return 0
	}
	if len(deadlines) == 0 {
		return 0
	}
	log.Printf("[DeadlineScheduler] Found %d deadlines needing reminders", len(deadlines))

	marked := 0
	for _, d := range deadlines {
		sent, err := s.pusher.PushToUser(ctx, d.UserID, ReminderNotification(d))
		if err != nil {
			// Left unmarked so the next tick retries
			log.Printf("[DeadlineScheduler] Error sending reminder for %s: %v", d.ID, err)
			continue
		}
		log.Printf("[DeadlineScheduler] Reminder for '%s' sent to %d devices", d.Title, sent)

		// Marked even when the user has no devices, to avoid re-checking it every tick
		if err := s.deadlineRepo.MarkReminderSent(d.UserID, d.ID); err != nil {
			log.Printf("[DeadlineScheduler] Error marking reminder sent for %s: %v", d.ID, err)
			continue
		}
		marked++
	}
	return marked
}

// ReminderNotification builds the push payload for a deadline
func ReminderNotification(d *emaildomain.Deadline) fcm.NotificationData {
	title := "Upcoming deadline: " + d.Title
	if d.Course != "" && d.Course != emaildomain.UnknownCourse {
		title = fmt.Sprintf("%s: %s", d.Course, d.Title)
	}

	body := "Due " + d.DueDate.Format("Mon Jan 2")
	if d.DueTime != "" {
		body += " at " + d.DueTime
	}
	if d.Priority == emaildomain.PriorityHigh {
		body = "High priority. " + body
	}

	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":        "deadline_reminder",
			"deadline_id": d.ID,
			"email_id":    d.EmailID,
			"priority":    string(d.Priority),
		},
		Link: "/deadlines",
	}
}
