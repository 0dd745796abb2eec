package ai

import (
	"context"
	"fmt"
	"log"
)

// FallbackService implements smart AI provider routing with fallback.
// The primary provider (Gemini) answers first; quota or connection failures
// move the prompt to the secondary (Ollama). If the secondary is unreachable
// the primary is retried once.
type FallbackService struct {
	primary       Generator
	secondary     Generator
	primaryName   string
	secondaryName string
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primary, secondary Generator) *FallbackService {
	return &FallbackService{
		primary:       primary,
		secondary:     secondary,
		primaryName:   string(ProviderGemini),
		secondaryName: string(ProviderOllama),
	}
}

func (f *FallbackService) Generate(ctx context.Context, prompt string) (string, error) {
	var primaryErr error
	if f.primary != nil {
		result, err := f.primary.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		primaryErr = Classify(f.primaryName, err)

		if IsQuota(primaryErr) {
			log.Printf("[AI] %s quota exhausted: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		} else {
			log.Printf("[AI] %s error: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		}
	}

	if f.secondary != nil {
		result, err := f.secondary.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		secondaryErr := Classify(f.secondaryName, err)

		// Primary may have been a transient failure
		if IsUnavailable(secondaryErr) && f.primary != nil && !IsQuota(primaryErr) {
			log.Printf("[AI] %s connection failed: %v, retrying %s", f.secondaryName, err, f.primaryName)
			result, err := f.primary.Generate(ctx, prompt)
			if err != nil {
				return "", Classify(f.primaryName, err)
			}
			return result, nil
		}
		return "", secondaryErr
	}

	if primaryErr != nil {
		return "", primaryErr
	}
	return "", &ProviderError{Provider: "ai", Kind: KindUnavailable, Err: fmt.Errorf("no AI provider available")}
}
