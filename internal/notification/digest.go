package notification

import (
	"context"
	"fmt"
	"log"

	authrepo "navigator-backend/internal/auth/repository"
	"navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/fcm"
)

// DigestNotification condenses a digest into one push
func DigestNotification(d *usecase.Digest) fcm.NotificationData {
	body := "No upcoming deadlines in the next 7 days"
	switch n := len(d.Deadlines); {
	case n == 1:
		body = fmt.Sprintf("1 deadline this week: %s", d.Deadlines[0].Title)
	case n > 1:
		body = fmt.Sprintf("%d deadlines this week, next: %s", n, d.Deadlines[0].Title)
	}
	if len(d.Alerts) > 0 {
		body += fmt.Sprintf(" (%d schedule alerts)", len(d.Alerts))
	}

	return fcm.NotificationData{
		Title: "Daily Digest for " + d.Date.Format("Mon Jan 2"),
		Body:  body,
		Data: map[string]string{
			"type":      "daily_digest",
			"deadlines": fmt.Sprintf("%d", len(d.Deadlines)),
			"alerts":    fmt.Sprintf("%d", len(d.Alerts)),
		},
		Link: "/digest",
	}
}

// DigestNotifier builds each user's daily digest and delivers it by push
// and to any open SSE stream.
type DigestNotifier struct {
	pusher       *Pusher
	emailUsecase usecase.EmailUsecase
	userRepo     authrepo.UserRepository
	events       usecase.EventPublisher
}

// NewDigestNotifier creates a new DigestNotifier
func NewDigestNotifier(pusher *Pusher, emailUsecase usecase.EmailUsecase, userRepo authrepo.UserRepository) *DigestNotifier {
	return &DigestNotifier{pusher: pusher, emailUsecase: emailUsecase, userRepo: userRepo}
}

func (n *DigestNotifier) SetEventPublisher(pub usecase.EventPublisher) { n.events = pub }

func (n *DigestNotifier) Send(ctx context.Context, userID string) (*usecase.Digest, error) {
	digest, err := n.emailUsecase.BuildDigest(ctx, userID)
	if err != nil {
		return nil, err
	}

	if n.events != nil {
		n.events.SendToUser(userID, "daily_digest", digest)
	}
	sent, err := n.pusher.PushToUser(ctx, userID, DigestNotification(digest))
	if err != nil {
		return digest, fmt.Errorf("failed to push digest: %w", err)
	}
	log.Printf("[Digest] Digest for user %s reached %d devices", userID, sent)
	return digest, nil
}

// SendAll delivers a digest to every user with a connected inbox and returns
// how many were built. One user's failure does not stop the rest.
func (n *DigestNotifier) SendAll(ctx context.Context) (int, error) {
	users, err := n.userRepo.FindMailConnected()
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	built := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return built, ctx.Err()
		}
		digest, err := n.Send(ctx, user.ID)
		if digest != nil {
			built++
		}
		if err != nil {
			log.Printf("[Digest] Digest for user %s failed: %v", user.ID, err)
		}
	}
	log.Printf("[Digest] Sent %d of %d digests", built, len(users))
	return built, nil
}
