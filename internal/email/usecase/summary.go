package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/textutil"

	"gorm.io/datatypes"
)

const (
	summaryBodyChars     = 6000
	summaryFallbackChars = 500
)

type analyzedEmail struct {
	Summary     string `json:"summary"`
	HasDeadline bool   `json:"hasDeadline"`
	Deadlines   []struct {
		Title       string  `json:"title"`
		Date        string  `json:"date"`
		Time        *string `json:"time"`
		Description string  `json:"description"`
	} `json:"deadlines"`
}

func (u *emailUsecase) SummarizeEmail(ctx context.Context, userID, emailID string, refresh bool) (*emaildomain.EmailSummary, error) {
	if !refresh {
		cached, err := u.repos.Summaries.GetSummary(userID, emailID)
		if err != nil {
			return nil, storeErr("load summary", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	email, err := u.loadEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}

	summary, err := u.AnalyzeEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	summary.UserID = userID
	summary.EmailID = emailID
	if err := u.repos.Summaries.SaveSummary(summary); err != nil {
		return nil, storeErr("save summary", err)
	}
	log.Printf("[Summary] Cached summary for %s (deadlines: %d)", emailID, len(summary.Deadlines))
	return summary, nil
}

// loadEmail prefers the ingested copy and only asks the provider for mail
// that was never synced.
func (u *emailUsecase) loadEmail(ctx context.Context, userID, emailID string) (*emaildomain.Email, error) {
	row, err := u.repos.Embeddings.FindByID(userID, emailID)
	if err != nil {
		return nil, storeErr("load email", err)
	}
	if row != nil {
		return &emaildomain.Email{
			ID:      row.EmailID,
			Subject: row.Subject,
			From:    row.From,
			Date:    row.Date,
			Snippet: row.Snippet,
			Body:    row.Body,
		}, nil
	}

	email, err := u.connector.FetchEmail(ctx, userID, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email: %w", err)
	}
	if email == nil {
		return nil, ErrNotFound
	}
	return email, nil
}

// AnalyzeEmail summarises one email and lists its deadlines in a single
// model call. Nothing is stored.
func (u *emailUsecase) AnalyzeEmail(ctx context.Context, email *emaildomain.Email) (*emaildomain.EmailSummary, error) {
	if email == nil || !email.HasUsableText() {
		return nil, ErrNoUsableText
	}

	prompt := fmt.Sprintf(`Analyze this email and provide:
1. A brief summary (2-3 sentences)
2. Any deadlines/due dates found

Email Subject: %s
From: %s
Content: %s

Respond in JSON format:
{
  "summary": "Brief summary here",
  "hasDeadline": true/false,
  "deadlines": [
    {
      "title": "Assignment/task name",
      "date": "YYYY-MM-DD",
      "time": "HH:MM" or null,
      "description": "Brief description"
    }
  ]
}`, email.Subject, email.From, textutil.Truncate(email.Text(), summaryBodyChars))

	genCtx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()

	answer, err := u.generator.Generate(genCtx, prompt)
	if err != nil {
		return nil, ai.Classify("llm", err)
	}

	summary := &emaildomain.EmailSummary{
		EmailID:   email.ID,
		Subject:   email.Subject,
		Deadlines: datatypes.NewJSONSlice([]emaildomain.SummaryDeadline{}),
	}

	var parsed analyzedEmail
	block, err := ai.ExtractJSONObject(answer)
	if err == nil {
		err = json.Unmarshal([]byte(block), &parsed)
	}
	if err != nil {
		log.Printf("[Summary] Unstructured answer for %s: %v", email.ID, err)
		summary.Summary = textutil.Truncate(strings.TrimSpace(answer), summaryFallbackChars)
		return summary, nil
	}

	summary.Summary = strings.TrimSpace(parsed.Summary)
	for _, d := range parsed.Deadlines {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			continue
		}
		due, ok := parseDueDate(d.Date, d.Time)
		if !ok {
			log.Printf("[Summary] Skipping %q: unparseable date %q", title, d.Date)
			continue
		}
		deadline := emaildomain.SummaryDeadline{
			Title:       title,
			Date:        due.Format("2006-01-02"),
			Description: strings.TrimSpace(d.Description),
		}
		if d.Time != nil {
			deadline.Time = strings.TrimSpace(*d.Time)
		}
		summary.Deadlines = append(summary.Deadlines, deadline)
	}
	summary.HasDeadline = parsed.HasDeadline || len(summary.Deadlines) > 0
	return summary, nil
}
