package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	authdomain "navigator-backend/internal/auth/domain"
	authrepo "navigator-backend/internal/auth/repository"
	"navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/gmail"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on every mailbox change
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// SyncQueue accepts background sync requests
type SyncQueue interface {
	QueueSync(userID string) bool
}

// GmailWatcher registers a mailbox for push notifications
type GmailWatcher interface {
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh gmail.TokenUpdateFunc) (uint64, error)
}

// Service listens for Gmail push notifications and turns each new
// historyId into a queued sync for the mailbox owner.
type Service struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	queue        SyncQueue
	events       usecase.EventPublisher
	watcher      GmailWatcher
	topicPath    string
	topicName    string
	subName      string

	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

// TopicName strips "projects/<p>/topics/" from a full topic resource name
func TopicName(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return topic
}

// NewService creates the Pub/Sub listener for Gmail push notifications
func NewService(ctx context.Context, projectID, topic, credentialsFile string, userRepo authrepo.UserRepository, queue SyncQueue) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	s := newService(userRepo, queue)
	s.pubsubClient = client
	s.topicName = TopicName(topic)
	if s.topicName == "" {
		s.topicName = "gmail-updates"
	}
	s.topicPath = fmt.Sprintf("projects/%s/topics/%s", projectID, s.topicName)
	s.subName = s.topicName + "-sub"
	return s, nil
}

func newService(userRepo authrepo.UserRepository, queue SyncQueue) *Service {
	return &Service{
		userRepo:      userRepo,
		queue:         queue,
		lastHistoryID: make(map[string]uint64),
	}
}

func (s *Service) SetEventPublisher(pub usecase.EventPublisher) { s.events = pub }
func (s *Service) SetGmailWatcher(w GmailWatcher)              { s.watcher = w }

// Start blocks receiving messages until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.HandleMessage(msg.Data)
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

// Close releases the pubsub client
func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

// HandleMessage processes one notification and reports whether a sync was queued.
// Stale or repeated historyIds are ignored.
func (s *Service) HandleMessage(data []byte) bool {
	var n GmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return false
	}
	log.Printf("[PubSub] Notification for %s (historyId: %d)", n.EmailAddress, n.HistoryID)

	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(n.EmailAddress)))
	if err != nil {
		log.Printf("[PubSub] Error finding user %s: %v", n.EmailAddress, err)
		return false
	}
	if user == nil || user.MailProvider != authdomain.MailProviderGoogle {
		log.Printf("[PubSub] No Gmail user for %s", n.EmailAddress)
		return false
	}

	if !s.advance(user, n.HistoryID) {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d)", user.ID, n.HistoryID)
		return false
	}
	if err := s.userRepo.UpdateHistoryID(user.ID, n.HistoryID); err != nil {
		log.Printf("[PubSub] Failed to persist historyId for %s: %v", user.ID, err)
	}

	if s.events != nil {
		s.events.SendToUser(user.ID, "email_update", map[string]interface{}{
			"historyId": n.HistoryID,
			"timestamp": time.Now(),
		})
	}

	queued := s.queue.QueueSync(user.ID)
	log.Printf("[PubSub] Sync for user %s queued: %v", user.ID, queued)
	return queued
}

// advance records historyID for the user if it is newer than anything seen,
// including the value persisted before a restart.
func (s *Service) advance(user *authdomain.User, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastHistoryID[user.ID]
	if !ok {
		last = user.GmailHistoryID
	}
	if historyID <= last {
		return false
	}
	s.lastHistoryID[user.ID] = historyID
	return true
}

// WatchUser asks Gmail to publish the user's inbox changes to the topic
func (s *Service) WatchUser(ctx context.Context, userID string) error {
	if s.watcher == nil {
		return nil
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.MailProvider != authdomain.MailProviderGoogle {
		return nil
	}

	historyID, err := s.watcher.Watch(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, s.topicPath, usecase.TokenSaver(s.userRepo, userID))
	if err != nil {
		return fmt.Errorf("failed to watch mailbox: %w", err)
	}

	s.mu.Lock()
	if historyID > s.lastHistoryID[userID] {
		s.lastHistoryID[userID] = historyID
	}
	s.mu.Unlock()

	log.Printf("[PubSub] Watching mailbox of user %s from historyId %d", userID, historyID)
	return s.userRepo.UpdateHistoryID(userID, historyID)
}
