package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	stamps []time.Time
	window time.Duration
}

// InMemory is a per-process sliding window store. StartCleanup evicts keys
// whose window has fully elapsed.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows: make(map[string]memoryWindow),
		now:     time.Now,
	}
}

func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := prune(s.windows[key].stamps, now.Add(-window))

	allowed := len(stamps) < limit
	if allowed {
		stamps = append(stamps, now)
	}
	if len(stamps) == 0 {
		delete(s.windows, key)
	} else {
		s.windows[key] = memoryWindow{stamps: stamps, window: window}
	}

	resetAt := now.Add(window)
	if len(stamps) > 0 {
		resetAt = stamps[0].Add(window)
	}
	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-len(stamps), 0),
		ResetAt:   resetAt,
	}, nil
}

// StartCleanup evicts idle keys every interval until ctx is cancelled.
func (s *InMemory) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RemoveExpiredAt(s.now())
		case <-ctx.Done():
			return nil
		}
	}
}

// RemoveExpiredAt deletes keys with no request inside their window as of now
// and reports how many it removed.
func (s *InMemory) RemoveExpiredAt(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, w := range s.windows {
		newest := w.stamps[len(w.stamps)-1]
		if !newest.Add(w.window).After(now) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// prune drops timestamps at or before cutoff. stamps is ordered oldest first.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
