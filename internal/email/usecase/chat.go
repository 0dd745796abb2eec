package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/textutil"
)

const chatContextChars = 500

// Ask answers a question from the user's most relevant emails
func (u *emailUsecase) Ask(ctx context.Context, userID, question string, topK int) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if topK <= 0 {
		topK = 5
	}

	sources, err := u.Search(ctx, userID, question, topK)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &ChatAnswer{Answer: "I don't see that information in your emails yet. Try syncing your inbox first.", Sources: sources}, nil
	}

	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] Subject: %s\nFrom: %s\nDate: %s\n%s\n\n",
			i+1, s.Subject, s.From, s.Date.Format("2006-01-02"), textutil.Truncate(s.Body, chatContextChars))
	}

	prompt := fmt.Sprintf(`You are an intelligent email assistant for college students. You can answer questions about their emails, assignments, deadlines, professors, courses, and documents.

User's Question: %s

Email Context:
%s
Instructions:
1. Answer the question based ONLY on the email context provided above
2. If the answer is not in the emails, say "I don't see that information in your emails"
3. Be specific: mention email subjects, dates, senders when relevant
4. Keep answers concise (2-4 sentences)

Answer:`, question, b.String())

	genCtx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()
	answer, err := u.generator.Generate(genCtx, prompt)
	if err != nil {
		err = ai.Classify("llm", err)
		log.Printf("[Chat] Generation failed (%s): %v", ai.KindOf(err), err)
		return nil, err
	}

	return &ChatAnswer{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}
