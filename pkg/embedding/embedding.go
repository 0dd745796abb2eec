package embedding

import (
	"context"
	"fmt"
	"strings"

	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/gemini"
	"navigator-backend/pkg/textutil"
)

// TaskType distinguishes stored documents from search queries; providers
// embed the two sides of a retrieval pair differently.
type TaskType string

const (
	TaskDocument TaskType = "document"
	TaskQuery    TaskType = "query"
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
}

// Input builds the text that represents an email in vector space.
func Input(subject, body string) string {
	return subject + "\n\n" + body
}

// Config selects and configures the embedding provider
type Config struct {
	Provider     string // "nomic" or "gemini"
	NomicAPIKey  string
	GeminiAPIKey string
}

// New creates the embedder named by cfg.Provider
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini embeddings")
		}
		return NewGeminiEmbedder(gemini.NewGeminiService(cfg.GeminiAPIKey)), nil
	case "nomic", "":
		if cfg.NomicAPIKey == "" {
			return nil, fmt.Errorf("NOMIC_API_KEY is required for Nomic embeddings")
		}
		return NewNomicClient(cfg.NomicAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

type geminiEmbedder struct {
	svc *gemini.GeminiService
}

// NewGeminiEmbedder creates an Embedder backed by the Gemini API
func NewGeminiEmbedder(svc *gemini.GeminiService) Embedder {
	return &geminiEmbedder{svc: svc}
}

func (g *geminiEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	taskType := gemini.TaskRetrievalDocument
	if task == TaskQuery {
		taskType = gemini.TaskRetrievalQuery
	}
	vec, err := g.svc.Embed(ctx, textutil.Truncate(text, maxInputChars), taskType)
	if err != nil {
		return nil, ai.Classify("gemini", err)
	}
	return vec, nil
}

