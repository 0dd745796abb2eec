package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	authrepo "navigator-backend/internal/auth/repository"
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/fcm"
)

// Pusher delivers FCM notifications to every device of a user and prunes
// tokens FCM reports as unregistered.
type Pusher struct {
	fcmRepo authrepo.FCMTokenRepository
	sender  fcm.Sender
	now     func() time.Time
}

// NewPusher creates a new Pusher
func NewPusher(fcmRepo authrepo.FCMTokenRepository, sender fcm.Sender) *Pusher {
	return &Pusher{
		fcmRepo: fcmRepo,
		sender:  sender,
		now:     time.Now,
	}
}

// PushToUser returns the number of devices reached
func (p *Pusher) PushToUser(ctx context.Context, userID string, n fcm.NotificationData) (int, error) {
	if p == nil || p.sender == nil {
		return 0, nil
	}

	tokens, err := p.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load FCM tokens: %w", err)
	}
	if len(tokens) == 0 {
		log.Printf("[FCM] No tokens for user %s, skipping push", userID)
		return 0, nil
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	result, err := p.sender.SendToDevices(ctx, tokenStrings, n)
	if err != nil {
		return 0, err
	}

	for _, token := range result.InvalidTokens {
		if err := p.fcmRepo.DeleteToken(token); err != nil {
			log.Printf("[FCM] Failed to delete invalid token: %v", err)
		}
	}
	if len(result.InvalidTokens) > 0 {
		log.Printf("[FCM] Removed %d invalid tokens for user %s", len(result.InvalidTokens), userID)
	}

	if result.SuccessCount > 0 {
		if err := p.fcmRepo.TouchTokens(userID, p.now()); err != nil {
			log.Printf("[FCM] Failed to update last push time: %v", err)
		}
	}
	return result.SuccessCount, nil
}

// AlertNotification summarises alerts found by a sync run
func AlertNotification(alerts []*emaildomain.ScheduleChange, count int) fcm.NotificationData {
	n := fcm.NotificationData{
		Title: "Class schedule update",
		Body:  fmt.Sprintf("%d new schedule alerts", count),
		Data:  map[string]string{"type": "schedule_alert", "count": fmt.Sprintf("%d", count)},
		Link:  "/alerts",
	}
	if len(alerts) > 0 && alerts[0] != nil {
		latest := alerts[0]
		if latest.Course != "" && latest.Course != emaildomain.UnknownCourse {
			n.Title = fmt.Sprintf("%s: %s", latest.Course, alertLabel(latest.Type))
		} else {
			n.Title = alertLabel(latest.Type)
		}
		n.Body = latest.Message
		n.Data["alert_id"] = latest.ID
		if count > 1 {
			n.Body = fmt.Sprintf("%s (+%d more)", latest.Message, count-1)
		}
	}
	return n
}

func alertLabel(t emaildomain.AlertType) string {
	switch t {
	case emaildomain.AlertCancelled:
		return "Class cancelled"
	case emaildomain.AlertRescheduled:
		return "Class rescheduled"
	case emaildomain.AlertRoomChange:
		return "Room change"
	case emaildomain.AlertUrgent:
		return "Urgent notice"
	}
	return "Schedule alert"
}

// AlertNotifier pushes newly found alerts once a queued sync completes.
// Its Notify method matches usecase.SyncCompletedFunc.
type AlertNotifier struct {
	pusher       *Pusher
	emailUsecase usecase.EmailUsecase
}

// NewAlertNotifier creates a new AlertNotifier
func NewAlertNotifier(pusher *Pusher, emailUsecase usecase.EmailUsecase) *AlertNotifier {
	return &AlertNotifier{pusher: pusher, emailUsecase: emailUsecase}
}

func (a *AlertNotifier) Notify(ctx context.Context, userID string, result *usecase.SyncResult) {
	if result == nil || result.Alerts == 0 {
		return
	}
	alerts, err := a.emailUsecase.GetAlerts(userID)
	if err != nil {
		log.Printf("[FCM] Could not load alerts for user %s: %v", userID, err)
		alerts = nil
	}
	sent, err := a.pusher.PushToUser(ctx, userID, AlertNotification(alerts, result.Alerts))
	if err != nil {
		log.Printf("[FCM] Alert push failed for user %s: %v", userID, err)
		return
	}
	log.Printf("[FCM] Alert push for user %s reached %d devices", userID, sent)
}
