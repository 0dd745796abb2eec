package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/fuzzy"
	"navigator-backend/pkg/textutil"
)

const (
	classifyBodyChars = 500
	deadlineBodyChars = 1000
	alertDetailsChars = 200
	reminderDescChars = 500
	courseMatchEdits  = 2
)

// classifyCourse asks the model which course an email belongs to. Any
// provider failure degrades to "no course".
func (u *emailUsecase) classifyCourse(ctx context.Context, userID string, email *emaildomain.Email) *string {
	prompt := fmt.Sprintf(`Analyze this email and identify the course name. Look for:
- Course codes (e.g., CS-101, MATH-204, ENG201)
- Course names (e.g., "Introduction to Computer Science", "Organic Chemistry")
- Department abbreviations

Return ONLY the course name/code, nothing else. If no course is identifiable, return "null".

From: %s
Subject: %s
Content: %s`, email.From, email.Subject, textutil.Truncate(email.Text(), classifyBodyChars))

	ctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()

	answer, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		err = ai.Classify("llm", err)
		log.Printf("[Pipeline] Classification failed for %s (%s): %v", email.ID, ai.KindOf(err), err)
		return nil
	}

	label := strings.Trim(strings.TrimSpace(answer), "\"'`")
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "null") || strings.EqualFold(label, "none") {
		return nil
	}
	if idx := strings.IndexByte(label, '\n'); idx >= 0 {
		label = strings.TrimSpace(label[:idx])
	}

	known, err := u.repos.Embeddings.CourseNames(userID)
	if err != nil {
		log.Printf("[Pipeline] Could not load known courses for %s: %v", userID, err)
	} else {
		label = fuzzy.CanonicalCourse(label, known, courseMatchEdits)
	}
	return &label
}

type extractedDeadline struct {
	Title  string  `json:"title"`
	Date   string  `json:"date"`
	Time   *string `json:"time"`
	Type   string  `json:"type"`
	Course string  `json:"course"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseDueDate(date string, clock *string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	var due time.Time
	parsed := false
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			due = t.UTC()
			parsed = true
			break
		}
	}
	if !parsed {
		return time.Time{}, false
	}

	if clock != nil {
		if hm, err := time.Parse("15:04", strings.TrimSpace(*clock)); err == nil {
			due = time.Date(due.Year(), due.Month(), due.Day(), hm.Hour(), hm.Minute(), 0, 0, time.UTC)
		}
	}
	return due, true
}

// extractDeadlines is the deadline agent. It returns an error only for
// provider or parse failures; an email with no deadlines yields an empty slice.
func (u *emailUsecase) extractDeadlines(ctx context.Context, email *emaildomain.Email, course *string) ([]*emaildomain.Deadline, error) {
	log.Printf("[Deadline Agent] Processing email: %s", email.ID)
	now := u.now()

	prompt := fmt.Sprintf(`Extract all deadlines, due dates, and exam dates from this college email.
Today is %s (%s).

Return ONLY a JSON array, no other text:
[
  {
    "title": "Assignment title or exam name",
    "date": "YYYY-MM-DD",
    "time": "HH:MM" or null,
    "type": "assignment" | "exam" | "project" | "submission",
    "course": "course code or name, or empty string"
  }
]

Resolve relative dates ("Friday", "next week") against today's date.
If no deadlines are found, return [].

Subject: %s
Text: %s`, now.Format("2006-01-02"), now.Weekday(), email.Subject, textutil.Truncate(email.Text(), deadlineBodyChars))

	ctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()

	answer, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, ai.Classify("llm", err)
	}

	block, err := ai.ExtractJSONArray(answer)
	if err != nil {
		return nil, ai.Classify("llm", err)
	}
	var raw []extractedDeadline
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, ai.Classify("llm", fmt.Errorf("failed to parse deadline JSON: %w", err))
	}

	deadlines := make([]*emaildomain.Deadline, 0, len(raw))
	for _, d := range raw {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			continue
		}
		due, ok := parseDueDate(d.Date, d.Time)
		if !ok {
			log.Printf("[Deadline Agent] Skipping %q: unparseable date %q", title, d.Date)
			continue
		}

		deadline := &emaildomain.Deadline{
			ID:          fmt.Sprintf("%s_deadline_%d", email.ID, len(deadlines)),
			EmailID:     email.ID,
			Title:       title,
			Course:      firstNonEmpty(strings.TrimSpace(d.Course), deref(course), emaildomain.UnknownCourse),
			DueDate:     due,
			Description: "From email: " + email.Subject,
			Type:        emaildomain.ParseDeadlineType(strings.ToLower(strings.TrimSpace(d.Type))),
			Priority:    PriorityFor(due, now),
		}
		if d.Time != nil {
			deadline.DueTime = strings.TrimSpace(*d.Time)
		}
		deadlines = append(deadlines, deadline)
	}

	log.Printf("[Deadline Agent] Extracted %d deadlines", len(deadlines))
	return deadlines, nil
}

type alertRule struct {
	Type    emaildomain.AlertType
	Pattern *regexp.Regexp
}

// Checked in this order; every matching rule yields its own alert.
var alertRules = []alertRule{
	{emaildomain.AlertCancelled, regexp.MustCompile(`(?i)cancel{1,2}ed|class cancel{1,2}ed`)},
	{emaildomain.AlertRescheduled, regexp.MustCompile(`(?i)reschedule[d]?|moved to|new time`)},
	{emaildomain.AlertRoomChange, regexp.MustCompile(`(?i)room change|new location|moved to room`)},
	{emaildomain.AlertUrgent, regexp.MustCompile(`(?i)urgent|important notice|immediate attention`)},
}

// MatchAlertTypes returns every alert type whose keywords appear in the text
func MatchAlertTypes(subject, body string) []emaildomain.AlertType {
	text := subject + "\n" + body
	var types []emaildomain.AlertType
	for _, rule := range alertRules {
		if rule.Pattern.MatchString(text) {
			types = append(types, rule.Type)
		}
	}
	return types
}

// detectAlerts is the alert agent. Keyword matching gates the LLM: an email
// without any keyword never reaches the model.
func (u *emailUsecase) detectAlerts(ctx context.Context, email *emaildomain.Email, course *string) ([]*emaildomain.ScheduleChange, error) {
	log.Printf("[Alert Agent] Processing email: %s", email.ID)
	text := email.Text()

	types := MatchAlertTypes(email.Subject, text)
	if len(types) == 0 {
		log.Printf("[Alert Agent] Detected 0 alerts")
		return []*emaildomain.ScheduleChange{}, nil
	}

	now := u.now()
	occurrence := now
	if date, err := u.alertOccurrence(ctx, email, now); err != nil {
		log.Printf("[Alert Agent] Date enrichment failed for %s (%s): %v", email.ID, ai.KindOf(err), err)
	} else if date != nil {
		occurrence = *date
	}

	alerts := make([]*emaildomain.ScheduleChange, 0, len(types))
	for _, t := range types {
		alerts = append(alerts, &emaildomain.ScheduleChange{
			ID:      fmt.Sprintf("%s_alert_%s", email.ID, t),
			EmailID: email.ID,
			Type:    t,
			Course:  firstNonEmpty(deref(course), emaildomain.UnknownCourse),
			Message: email.Subject,
			Date:    occurrence,
			Details: textutil.Truncate(text, alertDetailsChars),
		})
	}

	log.Printf("[Alert Agent] Detected %d alerts", len(alerts))
	return alerts, nil
}

func (u *emailUsecase) alertOccurrence(ctx context.Context, email *emaildomain.Email, now time.Time) (*time.Time, error) {
	prompt := fmt.Sprintf(`This email announces a change to a class session (cancellation, new time, new room, or urgent notice).
Today is %s (%s).
Return ONLY a JSON object: {"date": "YYYY-MM-DD"} for the date of the affected session, or {"date": null} if it is not stated.

Subject: %s
Text: %s`, now.Format("2006-01-02"), now.Weekday(), email.Subject, textutil.Truncate(email.Text(), deadlineBodyChars))

	ctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()

	answer, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, ai.Classify("llm", err)
	}
	block, err := ai.ExtractJSONObject(answer)
	if err != nil {
		return nil, ai.Classify("llm", err)
	}
	var parsed struct {
		Date *string `json:"date"`
	}
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, ai.Classify("llm", err)
	}
	if parsed.Date == nil {
		return nil, nil
	}
	date, ok := parseDueDate(*parsed.Date, nil)
	if !ok {
		return nil, nil
	}
	return &date, nil
}

var documentTypes = map[string]emaildomain.DocumentType{
	".pdf":  emaildomain.DocumentPDF,
	".doc":  emaildomain.DocumentDOCX,
	".docx": emaildomain.DocumentDOCX,
	".ppt":  emaildomain.DocumentPPT,
	".pptx": emaildomain.DocumentPPT,
	".xls":  emaildomain.DocumentXLSX,
	".xlsx": emaildomain.DocumentXLSX,
}

// DocumentTypeFor maps a filename to a catalogued type; ok is false for
// anything that is not a course document.
func DocumentTypeFor(filename string) (emaildomain.DocumentType, bool) {
	t, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	return t, ok
}

// DocumentCategoryFor guesses what a document is from its filename
func DocumentCategoryFor(filename string) emaildomain.DocumentCategory {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "assignment") || strings.Contains(name, "hw") || strings.Contains(name, "homework"):
		return emaildomain.CategoryAssignment
	case strings.Contains(name, "lecture") || strings.Contains(name, "slides"):
		return emaildomain.CategoryLecture
	case strings.Contains(name, "notes"):
		return emaildomain.CategoryNotes
	case strings.Contains(name, "syllabus"):
		return emaildomain.CategorySyllabus
	}
	return emaildomain.CategoryNotes
}

var courseCodePattern = regexp.MustCompile(`(?i)([A-Z]{2,4})[-\s]?(\d{3,4})`)

// CourseCodeIn returns the first course code in text, normalised to "CS101" form
func CourseCodeIn(text string) string {
	m := courseCodePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1]) + m[2]
}

// extractDocuments is the document agent. It never calls a provider.
func (u *emailUsecase) extractDocuments(email *emaildomain.Email, course *string) []*emaildomain.Document {
	log.Printf("[Document Agent] Processing email: %s", email.ID)

	docs := make([]*emaildomain.Document, 0, len(email.Attachments))
	for i, att := range email.Attachments {
		docType, ok := DocumentTypeFor(att.Filename)
		if !ok {
			continue
		}

		suffix := att.ID
		if suffix == "" {
			suffix = strconv.Itoa(i)
		}
		docCourse := firstNonEmpty(CourseCodeIn(att.Filename), CourseCodeIn(email.Subject), deref(course), emaildomain.UnknownCourse)

		docs = append(docs, &emaildomain.Document{
			ID:           fmt.Sprintf("%s_doc_%s", email.ID, suffix),
			EmailID:      email.ID,
			Filename:     att.Filename,
			Course:       docCourse,
			Type:         docType,
			Category:     DocumentCategoryFor(att.Filename),
			URL:          att.URL,
			AttachmentID: att.ID,
			MimeType:     att.MimeType,
			Size:         att.Size,
		})
	}

	log.Printf("[Document Agent] Extracted %d documents", len(docs))
	return docs
}

var reminderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)`),
	regexp.MustCompile(`(?i)(\d{1,2})\s*(am|pm)`),
	regexp.MustCompile(`(?i)(tomorrow|today|next week|monday|tuesday|wednesday|thursday|friday|saturday|sunday)`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
}

// DetectReminder is the reminder agent: the first time phrase found, if any
func DetectReminder(email *emaildomain.Email) *ReminderSuggestion {
	text := email.Subject + "\n" + email.Text()
	for _, pattern := range reminderPatterns {
		if match := pattern.FindString(text); match != "" {
			return &ReminderSuggestion{
				Title:         email.Subject,
				Description:   textutil.Truncate(email.Text(), reminderDescChars),
				EmailID:       email.ID,
				ExtractedTime: match,
			}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
