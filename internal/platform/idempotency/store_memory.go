package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// InMemory keeps records in a process-local map. An expired entry is replaced
// when its key is reused; StartCleanup removes the rest.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]memoryEntry), now: time.Now}
}

// StartCleanup removes expired entries every interval until ctx is cancelled.
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

// RemoveExpiredAt deletes entries expired as of now and reports how many it
// removed.
func (s *InMemory) RemoveExpiredAt(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *InMemory) Reserve(_ context.Context, key, fingerprint string, lease time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		if entry.record.Pending {
			return nil, ErrInFlight
		}
		record := entry.record
		return &record, nil
	}
	s.entries[key] = memoryEntry{
		record:    Record{Fingerprint: fingerprint, Pending: true, CreatedAt: now},
		expiresAt: now.Add(lease),
	}
	return nil, nil
}

func (s *InMemory) Complete(_ context.Context, key string, record Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Pending = false
	s.entries[key] = memoryEntry{record: record, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemory) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
