// Package ratelimit bounds requests per client over a sliding window.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r *Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Store counts requests per key. Allow records the request only when it is
// within limit.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
