package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedGenerator spaces calls to the wrapped Generator so a whole
// process stays under the provider's requests-per-minute allowance.
type RateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator wraps next with a requests-per-minute limit
func NewRateLimitedGenerator(next Generator, requestsPerMinute int) *RateLimitedGenerator {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (r *RateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{Provider: "ai", Kind: KindUnavailable, Err: err}
	}
	return r.next.Generate(ctx, prompt)
}
