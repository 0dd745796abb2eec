package imap

import (
	"strings"
	"testing"
	"time"
)

const multipartMessage = "From: Prof Smith <smith@uni.edu>\r\n" +
	"To: student@uni.edu\r\n" +
	"Subject: CS101 Homework 3\r\n" +
	"Date: Sat, 01 Mar 2025 09:00:00 +0000\r\n" +
	"Message-ID: <abc@uni.edu>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Homework 3 is due Friday.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"hw3.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake\r\n" +
	"--BOUNDARY--\r\n"

func TestParseMessage(t *testing.T) {
	email, parts, err := ParseMessage(42, []byte(multipartMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if email.ID != "imap-42" {
		t.Errorf("ID = %q", email.ID)
	}
	if email.Subject != "CS101 Homework 3" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if !strings.Contains(email.From, "smith@uni.edu") {
		t.Errorf("From = %q", email.From)
	}
	if want := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC); !email.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", email.Date, want)
	}
	if email.Body != "Homework 3 is due Friday." {
		t.Errorf("Body = %q", email.Body)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(email.Attachments))
	}
	att := email.Attachments[0]
	if att.ID != "part-1" || att.Filename != "hw3.pdf" || att.MimeType != "application/pdf" {
		t.Errorf("attachment = %+v", att)
	}
	if got := string(parts["part-1"]); !strings.HasPrefix(got, "%PDF-1.4") {
		t.Errorf("attachment body = %q", got)
	}
}

func TestParseMessageHTML(t *testing.T) {
	raw := "Subject: Lab moved\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Lab moved to <b>Room 204</b></p>\r\n"
	email, _, err := ParseMessage(7, []byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if email.Body != "Lab moved to Room 204" {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestParseAfter(t *testing.T) {
	got, ok := ParseAfter("after:1740819600 in:inbox")
	if !ok || got.Unix() != 1740819600 {
		t.Errorf("ParseAfter() = %v, %v", got, ok)
	}
	if _, ok := ParseAfter("from:prof"); ok {
		t.Error("ParseAfter() matched a query without a bound")
	}
}

func TestParseEmailID(t *testing.T) {
	uid, err := ParseEmailID(EmailID(99))
	if err != nil || uid != 99 {
		t.Errorf("round trip = %d, %v", uid, err)
	}
	for _, bad := range []string{"99", "imap-", "gmail-1", "imap-x"} {
		if _, err := ParseEmailID(bad); err == nil {
			t.Errorf("ParseEmailID(%q) should fail", bad)
		}
	}
}
