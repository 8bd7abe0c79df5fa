// Package idempotency replays the stored response of an unsafe request
// repeated with the same Idempotency-Key header.
//
// A key moves through two states. Reserve marks it in flight for a short
// lease; Complete stores the response for the TTL; Release forgets it so the
// client may retry after a server error. A second request arriving while the
// first is in flight is rejected with a conflict rather than executed twice.
// A reservation whose owner never finishes expires with its lease.
package idempotency

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Header is the request header carrying the client's key.
const Header = "Idempotency-Key"

// ReplayedHeader marks a replayed response.
const ReplayedHeader = "Idempotent-Replayed"

// MaxKeyLength bounds accepted keys.
const MaxKeyLength = 255

// DefaultLease bounds how long a reservation stays in flight when its owner
// never completes or releases it.
const DefaultLease = 2 * time.Minute

var (
	// ErrInFlight is returned by Reserve while another request holds the key.
	ErrInFlight = errors.New("idempotency key in flight")
)

// Record is a completed response kept for replay.
type Record struct {
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status"`
	Header      http.Header `json:"header,omitempty"`
	Body        []byte      `json:"body,omitempty"`
	Pending     bool        `json:"pending,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Store keeps idempotency records.
type Store interface {
	// Reserve claims key for a new request. It returns the completed record
	// when the key was already used, ErrInFlight when another request holds
	// it, and nil, nil when the caller now owns the key for lease.
	Reserve(ctx context.Context, key, fingerprint string, lease time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, record Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
