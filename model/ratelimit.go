package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedModel delays each generation until the limiter grants a token.
type RateLimitedModel struct {
	Model
	limiter *rate.Limiter
}

// WithRateLimit wraps m so that calls are admitted at most rps per second
// with the given burst. A non-positive rps returns m unchanged.
func WithRateLimit(m Model, rps float64, burst int) Model {
	if rps <= 0 {
		return m
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimitedModel{Model: m, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Generate waits for the limiter and delegates to the wrapped model.
func (r *RateLimitedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := r.limiter.Wait(ctx); err != nil {
		respCh := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- fmt.Errorf("rate limit wait: %w", err)
		close(respCh)
		close(errCh)

		return respCh, errCh
	}

	return r.Model.Generate(ctx, req)
}
