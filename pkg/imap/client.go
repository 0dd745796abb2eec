package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const (
	idPrefix         = "imap-"
	attachmentPrefix = "part-"
	mailbox          = "INBOX"
	dialTimeout      = 10 * time.Second
	commandTimeout   = 2 * time.Minute
)

var (
	ErrConnectionFailed = errors.New("imap connection failed")
	ErrMessageNotFound  = errors.New("imap message not found")

	afterPattern = regexp.MustCompile(`after:(\d+)`)
)

// Credentials identify one IMAP mailbox
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Service reads mailboxes over IMAP
type Service struct {
	dialTimeout time.Duration
}

// NewService creates a new IMAP service
func NewService() *Service {
	return &Service{dialTimeout: dialTimeout}
}

// ParseAfter extracts the "after:<unix>" bound from a Gmail-style query
func ParseAfter(query string) (time.Time, bool) {
	m := afterPattern.FindStringSubmatch(query)
	if m == nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// EmailID and ParseEmailID convert between IMAP UIDs and email IDs
func EmailID(uid uint32) string {
	return fmt.Sprintf("%s%d", idPrefix, uid)
}

func ParseEmailID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(strings.TrimPrefix(id, idPrefix), 10, 32)
	if err != nil || !strings.HasPrefix(id, idPrefix) {
		return 0, fmt.Errorf("not an imap email id: %q", id)
	}
	return uint32(uid), nil
}

func (s *Service) connect(ctx context.Context, creds Credentials) (*client.Client, func(), error) {
	addr := net.JoinHostPort(creds.Host, strconv.Itoa(creds.Port))
	dialer := &net.Dialer{Timeout: s.dialTimeout}

	var conn net.Conn
	var err error
	if creds.UseTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: creds.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.Timeout = commandTimeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	// go-imap v1 has no context support; tear the connection down on cancel
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Terminate()
		case <-done:
		}
	}()
	closeFn := func() {
		close(done)
		if err := c.Logout(); err != nil {
			log.Printf("[IMAP] Logout failed: %v", err)
		}
	}
	return c, closeFn, nil
}

// Verify logs in and selects INBOX without fetching anything
func (s *Service) Verify(ctx context.Context, creds Credentials) error {
	c, closeFn, err := s.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer closeFn()
	if _, err := c.Select(mailbox, true); err != nil {
		return fmt.Errorf("unable to select %s: %w", mailbox, err)
	}
	return nil
}

// FetchEmails returns up to maxResults INBOX messages newer than the query's
// "after:" bound, newest first.
func (s *Service) FetchEmails(ctx context.Context, creds Credentials, query string, maxResults int) ([]*emaildomain.Email, error) {
	c, closeFn, err := s.connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if _, err := c.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("unable to select %s: %w", mailbox, err)
	}

	criteria := goimap.NewSearchCriteria()
	after, hasAfter := ParseAfter(query)
	if hasAfter {
		// SINCE has day granularity; exact filtering happens after fetch
		criteria.Since = time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, time.UTC)
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(uids) == 0 {
		return []*emaildomain.Email{}, nil
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if maxResults > 0 && len(uids) > maxResults {
		uids = uids[len(uids)-maxResults:]
	}

	raw, err := fetchRaw(c, uids)
	if err != nil {
		return nil, err
	}

	emails := make([]*emaildomain.Email, 0, len(raw))
	for uid, body := range raw {
		email, _, err := ParseMessage(uid, body)
		if err != nil {
			log.Printf("[IMAP] Skipping uid %d: %v", uid, err)
			continue
		}
		if hasAfter && !email.Date.IsZero() && !email.Date.After(after) {
			continue
		}
		emails = append(emails, email)
	}

	sort.Slice(emails, func(i, j int) bool {
		return emails[i].Date.After(emails[j].Date)
	})
	log.Printf("[IMAP] Fetched %d emails for %s", len(emails), creds.Username)
	return emails, nil
}

// FetchEmail re-fetches one message by email ID
func (s *Service) FetchEmail(ctx context.Context, creds Credentials, emailID string) (*emaildomain.Email, error) {
	email, _, err := s.fetchOne(ctx, creds, emailID)
	return email, err
}

// FetchAttachment returns the decoded bytes of one attachment part
func (s *Service) FetchAttachment(ctx context.Context, creds Credentials, emailID, attachmentID string) ([]byte, error) {
	_, parts, err := s.fetchOne(ctx, creds, emailID)
	if err != nil {
		return nil, err
	}
	data, ok := parts[attachmentID]
	if !ok {
		return nil, fmt.Errorf("%w: attachment %s", ErrMessageNotFound, attachmentID)
	}
	return data, nil
}

func (s *Service) fetchOne(ctx context.Context, creds Credentials, emailID string) (*emaildomain.Email, map[string][]byte, error) {
	uid, err := ParseEmailID(emailID)
	if err != nil {
		return nil, nil, err
	}

	c, closeFn, err := s.connect(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	defer closeFn()

	if _, err := c.Select(mailbox, true); err != nil {
		return nil, nil, fmt.Errorf("unable to select %s: %w", mailbox, err)
	}
	raw, err := fetchRaw(c, []uint32{uid})
	if err != nil {
		return nil, nil, err
	}
	body, ok := raw[uid]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMessageNotFound, emailID)
	}
	return ParseMessage(uid, body)
}

func fetchRaw(c *client.Client, uids []uint32) (map[uint32][]byte, error) {
	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchUid, section.FetchItem()}

	messages := make(chan *goimap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	raw := make(map[uint32][]byte, len(uids))
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		body, err := io.ReadAll(literal)
		if err != nil {
			log.Printf("[IMAP] Failed to read uid %d: %v", msg.Uid, err)
			continue
		}
		raw[msg.Uid] = body
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	return raw, nil
}

// ParseMessage parses an RFC 822 message into an Email plus its attachment
// bodies keyed by attachment ID ("part-1", "part-2", ...).
func ParseMessage(uid uint32, raw []byte) (*emaildomain.Email, map[string][]byte, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse message: %w", err)
	}
	defer mr.Close()

	email := &emaildomain.Email{ID: EmailID(uid)}
	email.Subject, _ = mr.Header.Subject()
	if date, err := mr.Header.Date(); err == nil {
		email.Date = date.UTC()
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].String()
	}
	if msgID, err := mr.Header.MessageID(); err == nil {
		email.ThreadID = msgID
	}

	var plainBody, htmlBody string
	parts := map[string][]byte{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[IMAP] Stopped reading parts of uid %d: %v", uid, err)
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/plain":
				if plainBody == "" {
					plainBody = string(b)
				}
			case "text/html":
				if htmlBody == "" {
					htmlBody = string(b)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			id := fmt.Sprintf("%s%d", attachmentPrefix, len(parts)+1)
			parts[id] = b
			email.Attachments = append(email.Attachments, emaildomain.Attachment{
				ID:       id,
				Filename: filename,
				MimeType: contentType,
				Size:     int64(len(b)),
			})
		}
	}

	if plainBody != "" {
		email.Body = strings.TrimSpace(plainBody)
	} else {
		email.Body = emaildomain.StripHTML(htmlBody)
	}
	email.Snippet = snippet(email.Body)
	return email, parts, nil
}

func snippet(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if r := []rune(s); len(r) > 200 {
		return string(r[:200])
	}
	return s
}
