package ai

import (
	"fmt"

	"navigator-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	GeminiAPIKey            string
	GeminiModel             string
	GeminiRequestsPerMinute int

	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewGenerator creates a Generator based on the config.
// Gemini is always wrapped in a rate limiter; "auto" falls back to Ollama.
func NewGenerator(cfg Config) (Generator, error) {
	newGemini := func() Generator {
		svc := gemini.NewGeminiService(cfg.GeminiAPIKey).WithModel(cfg.GeminiModel)
		return NewRateLimitedGenerator(svc, cfg.GeminiRequestsPerMinute)
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return newGemini(), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		ollama := NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(newGemini(), ollama), nil
		}
		return ollama, nil
	}
}
