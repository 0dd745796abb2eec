package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/gmail/v1"

	emaildomain "navigator-backend/internal/email/domain"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessage(t *testing.T) {
	received := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		Snippet:      "Homework 3 is due",
		InternalDate: received.UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "CS101 Homework 3"},
				{Name: "From", Value: "Prof <prof@uni.edu>"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Homework 3 is due Friday.")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>Homework 3 is due <b>Friday</b>.</p>")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "hw3.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
				},
			},
		},
	}

	got := ConvertMessage(msg)
	want := &emaildomain.Email{
		ID:       "m1",
		ThreadID: "t1",
		Subject:  "CS101 Homework 3",
		From:     "Prof <prof@uni.edu>",
		Date:     received,
		Snippet:  "Homework 3 is due",
		Body:     "Homework 3 is due Friday.",
		Attachments: []emaildomain.Attachment{
			{ID: "att-1", Filename: "hw3.pdf", MimeType: "application/pdf", Size: 2048},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ConvertMessage() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertMessageHTMLOnly(t *testing.T) {
	msg := &gmail.Message{
		Id: "m2",
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: b64("<style>p{}</style><p>Lab&nbsp;moved to <i>Room 204</i></p>")},
		},
	}
	got := ConvertMessage(msg)
	if got.Body != "Lab moved to Room 204" {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestListEmails(t *testing.T) {
	older := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages"):
			gotQuery = r.URL.Query().Get("q")
			_ = json.NewEncoder(w).Encode(gmail.ListMessagesResponse{
				Messages: []*gmail.Message{{Id: "a"}, {Id: "b"}, {Id: "broken"}},
			})
		case strings.HasSuffix(r.URL.Path, "/messages/a"):
			_ = json.NewEncoder(w).Encode(gmail.Message{Id: "a", InternalDate: older.UnixMilli(), Snippet: "first"})
		case strings.HasSuffix(r.URL.Path, "/messages/b"):
			_ = json.NewEncoder(w).Encode(gmail.Message{Id: "b", InternalDate: newer.UnixMilli(), Snippet: "second"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := NewService("id", "secret").WithEndpoint(server.URL + "/")
	emails, err := svc.ListEmails(context.Background(), "access", "", "after:123", 10, nil)
	if err != nil {
		t.Fatalf("ListEmails() error = %v", err)
	}
	if gotQuery != "after:123" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(emails) != 2 {
		t.Fatalf("got %d emails, want 2", len(emails))
	}
	if emails[0].ID != "b" || emails[1].ID != "a" {
		t.Errorf("order = %s,%s, want newest first", emails[0].ID, emails[1].ID)
	}
}
