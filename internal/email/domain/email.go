package domain

import (
	"regexp"
	"strings"
	"time"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	htmlScriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// Email is a message as returned by a mail connector. It is never persisted;
// EmailEmbedding is the stored form.
type Email struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	Date        time.Time    `json:"date"`
	Snippet     string       `json:"snippet,omitempty"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
}

// Text returns the body, or the snippet when the body is empty.
func (e *Email) Text() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return e.Snippet
}

// HasUsableText reports whether there is anything to classify or embed.
func (e *Email) HasUsableText() bool {
	return strings.TrimSpace(e.Subject) != "" || strings.TrimSpace(e.Text()) != ""
}

// StripHTML drops tags, scripts and styles and collapses whitespace
func StripHTML(s string) string {
	s = htmlScriptPattern.ReplaceAllString(s, " ")
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
