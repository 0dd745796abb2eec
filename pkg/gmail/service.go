package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is called whenever the OAuth token is refreshed
type TokenUpdateFunc func(token *oauth2.Token) error

const (
	user           = "me"
	maxListResults = 500
	fetchWorkers   = 10
)

// Service wraps the Gmail API for a single OAuth client
type Service struct {
	clientID     string
	clientSecret string
	endpoint     string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// NewService creates a new Gmail service
func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// WithEndpoint points the client at a different API root (used by tests)
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// HTTPClient returns an OAuth client for the user's Google token. Any
// refresh is reported through onTokenRefresh. The calendar connector shares it.
func (s *Service) HTTPClient(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) *http.Client {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}
	return oauth2.NewClient(ctx, wrappedSource)
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(s.HTTPClient(ctx, accessToken, refreshToken, onTokenRefresh))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListEmails runs a Gmail search query and returns up to maxResults full messages,
// newest first. Messages that fail to load are skipped.
func (s *Service) ListEmails(ctx context.Context, accessToken, refreshToken, query string, maxResults int64, onTokenRefresh TokenUpdateFunc) ([]*emaildomain.Email, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > maxListResults {
		maxResults = maxListResults
	}

	listQuery := srv.Users.Messages.List(user).MaxResults(maxResults).Context(ctx)
	if query != "" {
		listQuery = listQuery.Q(query)
	}
	resp, err := listQuery.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}
	if len(resp.Messages) == 0 {
		return []*emaildomain.Email{}, nil
	}

	type emailResult struct {
		email *emaildomain.Email
		err   error
	}
	results := make(chan emailResult, len(resp.Messages))
	semaphore := make(chan struct{}, fetchWorkers)

	for _, msg := range resp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			full, err := srv.Users.Messages.Get(user, msgID).Format("full").Context(ctx).Do()
			if err != nil {
				results <- emailResult{err: fmt.Errorf("message %s: %w", msgID, err)}
				return
			}
			results <- emailResult{email: ConvertMessage(full)}
		}(msg.Id)
	}

	emails := make([]*emaildomain.Email, 0, len(resp.Messages))
	for range resp.Messages {
		r := <-results
		if r.err != nil {
			log.Printf("[Gmail] Skipping message: %v", r.err)
			continue
		}
		emails = append(emails, r.email)
	}

	// Parallel fetch returns in arbitrary order
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].Date.After(emails[j].Date)
	})
	return emails, nil
}

// GetEmail retrieves a specific email by ID
func (s *Service) GetEmail(ctx context.Context, accessToken, refreshToken, emailID string, onTokenRefresh TokenUpdateFunc) (*emaildomain.Email, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, emailID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}
	return ConvertMessage(msg), nil
}

// GetAttachment downloads and decodes one attachment of a message
func (s *Service) GetAttachment(ctx context.Context, accessToken, refreshToken, messageID, attachmentID string, onTokenRefresh TokenUpdateFunc) ([]byte, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	part, err := srv.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve attachment: %w", err)
	}
	data, err := decodeBase64URL(part.Data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode attachment data: %w", err)
	}
	return data, nil
}

// Watch sets up push notifications for the user's inbox on a Pub/Sub topic
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (uint64, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return 0, err
	}

	// Only one push client is allowed per mailbox; clear any previous one
	_ = srv.Users.Stop(user).Context(ctx).Do()

	resp, err := srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch started on %s, expires %d, history %d", topicName, resp.Expiration, resp.HistoryId)
	return resp.HistoryId, nil
}

// Stop stops push notifications for the user's mailbox
func (s *Service) Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop(user).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// ConvertMessage maps a full Gmail message onto the connector-neutral Email.
// HTML bodies are reduced to plain text.
func ConvertMessage(msg *gmail.Message) *emaildomain.Email {
	email := &emaildomain.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Date:     time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload == nil {
		return email
	}

	email.Subject = getHeader(msg.Payload.Headers, "Subject")
	email.From = getHeader(msg.Payload.Headers, "From")

	body, isHTML := getEmailBody(msg.Payload)
	if isHTML {
		body = emaildomain.StripHTML(body)
	}
	email.Body = strings.TrimSpace(body)
	email.Attachments = getAttachments(msg.Payload)
	return email
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func decodeBase64URL(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	// Gmail sometimes omits padding
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

// getEmailBody prefers text/plain over text/html when both exist
func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if len(payload.Parts) == 0 && payload.Body != nil && payload.Body.Data != "" {
		data, err := decodeBase64URL(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
				data, err := decodeBase64URL(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/plain":
						if plainBody == "" {
							plainBody = string(data)
						}
					case "text/html":
						if htmlBody == "" {
							htmlBody = string(data)
						}
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, htmlBody != ""
}

func getAttachments(payload *gmail.MessagePart) []emaildomain.Attachment {
	var attachments []emaildomain.Attachment

	var findAttachments func(parts []*gmail.MessagePart)
	findAttachments = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				attachments = append(attachments, emaildomain.Attachment{
					ID:       part.Body.AttachmentId,
					Filename: part.Filename,
					Size:     part.Body.Size,
					MimeType: part.MimeType,
				})
			}
			if len(part.Parts) > 0 {
				findAttachments(part.Parts)
			}
		}
	}
	findAttachments(payload.Parts)
	return attachments
}
