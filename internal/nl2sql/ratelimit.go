package nl2sql

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited keeps a model backend within its request budget. A request that
// cannot get a token before its context ends is reported as unavailable so the
// caller falls back instead of queueing.
type RateLimited struct {
	Next    Generator
	Limiter *rate.Limiter
}

func NewRateLimited(next Generator, requestsPerMinute, burst int) *RateLimited {
	if requestsPerMinute <= 0 {
		return &RateLimited{Next: next}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		Next:    next,
		Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

func (r *RateLimited) Generate(ctx context.Context, req Request) (Candidate, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return Candidate{}, unavailable(fmt.Errorf("model request budget exhausted: %w", err))
		}
	}
	return r.Next.Generate(ctx, req)
}
