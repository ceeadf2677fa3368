// Package ratelimit provides fixed-window request limiting with a Redis
// primary store and an in-memory fallback for store outages.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether the keyed caller may make one more request in
// the current window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
