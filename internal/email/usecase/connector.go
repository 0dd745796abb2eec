package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	authdomain "navigator-backend/internal/auth/domain"
	authrepo "navigator-backend/internal/auth/repository"
	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/calendar"
	"navigator-backend/pkg/classroom"
	"navigator-backend/pkg/gmail"
	"navigator-backend/pkg/imap"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// GmailClient is the subset of pkg/gmail the connector uses
type GmailClient interface {
	ListEmails(ctx context.Context, accessToken, refreshToken, query string, maxResults int64, onTokenRefresh gmail.TokenUpdateFunc) ([]*emaildomain.Email, error)
	GetEmail(ctx context.Context, accessToken, refreshToken, emailID string, onTokenRefresh gmail.TokenUpdateFunc) (*emaildomain.Email, error)
	GetAttachment(ctx context.Context, accessToken, refreshToken, messageID, attachmentID string, onTokenRefresh gmail.TokenUpdateFunc) ([]byte, error)
	HTTPClient(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) *http.Client
}

// IMAPClient is the subset of pkg/imap the connector uses
type IMAPClient interface {
	FetchEmails(ctx context.Context, creds imap.Credentials, query string, maxResults int) ([]*emaildomain.Email, error)
	FetchEmail(ctx context.Context, creds imap.Credentials, emailID string) (*emaildomain.Email, error)
	FetchAttachment(ctx context.Context, creds imap.Credentials, emailID, attachmentID string) ([]byte, error)
}

// mailConnector implements MailConnector over Gmail and IMAP
type mailConnector struct {
	userRepo authrepo.UserRepository
	gmail    GmailClient
	imap     IMAPClient
}

// NewMailConnector routes each call to the provider the user connected.
// Either client may be nil when that provider is not configured.
func NewMailConnector(userRepo authrepo.UserRepository, gmailClient GmailClient, imapClient IMAPClient) MailConnector {
	return &mailConnector{userRepo: userRepo, gmail: gmailClient, imap: imapClient}
}

func (m *mailConnector) user(userID string) (*authdomain.User, error) {
	user, err := m.userRepo.FindByID(userID)
	if err != nil {
		return nil, storeErr("load user", err)
	}
	if user == nil || !user.MailConnected() {
		return nil, ErrUserNotConnected
	}
	switch user.MailProvider {
	case authdomain.MailProviderGoogle:
		if m.gmail == nil {
			return nil, fmt.Errorf("%w: gmail connector not configured", ErrUserNotConnected)
		}
	case authdomain.MailProviderIMAP:
		if m.imap == nil {
			return nil, fmt.Errorf("%w: imap connector not configured", ErrUserNotConnected)
		}
	}
	return user, nil
}

// IMAPCredentials extracts the stored IMAP login of a user
func IMAPCredentials(user *authdomain.User) imap.Credentials {
	return imap.Credentials{
		Host:     user.ImapHost,
		Port:     user.ImapPort,
		Username: user.ImapUsername,
		Password: user.ImapPassword,
		UseTLS:   user.ImapUseTLS,
	}
}

// TokenSaver persists refreshed Google tokens for the user
func TokenSaver(userRepo authrepo.UserRepository, userID string) func(*oauth2.Token) error {
	return func(t *oauth2.Token) error {
		log.Printf("[Gmail] Token refreshed for user %s", userID)
		return userRepo.UpdateGoogleToken(userID, t.AccessToken, t.RefreshToken, t.Expiry)
	}
}

func (m *mailConnector) FetchEmails(ctx context.Context, userID, query string, maxResults int) ([]*emaildomain.Email, error) {
	user, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	if user.MailProvider == authdomain.MailProviderIMAP {
		return m.imap.FetchEmails(ctx, IMAPCredentials(user), query, maxResults)
	}
	return m.gmail.ListEmails(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, query, int64(maxResults), TokenSaver(m.userRepo, userID))
}

func (m *mailConnector) FetchEmail(ctx context.Context, userID, emailID string) (*emaildomain.Email, error) {
	user, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	if user.MailProvider == authdomain.MailProviderIMAP {
		return m.imap.FetchEmail(ctx, IMAPCredentials(user), emailID)
	}
	return m.gmail.GetEmail(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, emailID, TokenSaver(m.userRepo, userID))
}

func (m *mailConnector) FetchAttachment(ctx context.Context, userID, emailID, attachmentID string) ([]byte, error) {
	user, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	if user.MailProvider == authdomain.MailProviderIMAP {
		return m.imap.FetchAttachment(ctx, IMAPCredentials(user), emailID, attachmentID)
	}
	return m.gmail.GetAttachment(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, emailID, attachmentID, TokenSaver(m.userRepo, userID))
}

// calendarConnector implements CalendarService for Google users
type calendarConnector struct {
	userRepo authrepo.UserRepository
	gmail    GmailClient
	calendar *calendar.Service
}

// NewCalendarConnector creates events with the user's Google token. Users
// connected over IMAP have no calendar.
func NewCalendarConnector(userRepo authrepo.UserRepository, gmailClient GmailClient, cal *calendar.Service) CalendarService {
	return &calendarConnector{userRepo: userRepo, gmail: gmailClient, calendar: cal}
}

func (c *calendarConnector) CreateEvent(ctx context.Context, userID string, event CalendarEvent) (string, error) {
	user, err := c.userRepo.FindByID(userID)
	if err != nil {
		return "", storeErr("load user", err)
	}
	if user == nil || user.MailProvider != authdomain.MailProviderGoogle || !user.MailConnected() {
		return "", ErrCalendarUnavailable
	}

	client := c.gmail.HTTPClient(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, TokenSaver(c.userRepo, userID))
	return c.calendar.CreateEvent(ctx, client, calendar.Event{
		Title:       event.Title,
		Description: event.Description,
		Course:      event.Course,
		Start:       event.Start,
	})
}

// classroomConnector implements ClassroomService for Google users
type classroomConnector struct {
	userRepo  authrepo.UserRepository
	gmail     GmailClient
	classroom *classroom.Service
}

// NewClassroomConnector reads Classroom with the user's Google token
func NewClassroomConnector(userRepo authrepo.UserRepository, gmailClient GmailClient, svc *classroom.Service) ClassroomService {
	return &classroomConnector{userRepo: userRepo, gmail: gmailClient, classroom: svc}
}

func (c *classroomConnector) httpClient(ctx context.Context, userID string) (*http.Client, error) {
	user, err := c.userRepo.FindByID(userID)
	if err != nil {
		return nil, storeErr("load user", err)
	}
	if user == nil || user.MailProvider != authdomain.MailProviderGoogle || !user.MailConnected() {
		return nil, ErrClassroomUnavailable
	}
	return c.gmail.HTTPClient(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, TokenSaver(c.userRepo, userID)), nil
}

func (c *classroomConnector) ListCourses(ctx context.Context, userID string) ([]*classroom.Course, error) {
	client, err := c.httpClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := c.classroom.ListCourses(ctx, client)
	return courses, classroomErr(err)
}

func (c *classroomConnector) ListAssignments(ctx context.Context, userID, courseID string) ([]*classroom.Assignment, error) {
	client, err := c.httpClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	assignments, err := c.classroom.ListAssignments(ctx, client, courseID)
	return assignments, classroomErr(err)
}

func (c *classroomConnector) ListMaterials(ctx context.Context, userID, courseID string) ([]*classroom.Material, error) {
	client, err := c.httpClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	materials, err := c.classroom.ListMaterials(ctx, client, courseID)
	return materials, classroomErr(err)
}

// Tokens granted before the Classroom scopes were added come back 403.
func classroomErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusForbidden || gerr.Code == http.StatusUnauthorized) {
		return fmt.Errorf("%w: %w", ErrClassroomUnavailable, err)
	}
	return err
}
