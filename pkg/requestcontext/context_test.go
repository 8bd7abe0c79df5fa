package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, Subject(ctx))
	assert.False(t, HasRole(ctx, "admin"))

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx = WithTime(WithRequestID(ctx, "req-1"), fixed)
	ctx = WithPrincipal(ctx, "ops@example.com", []string{"admin"})
	ctx = WithIdempotencyKey(ctx, "key-1")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, "ops@example.com", Subject(ctx))
	assert.True(t, HasRole(ctx, "admin"))
	assert.False(t, HasRole(ctx, "viewer"))
	assert.Equal(t, "key-1", IdempotencyKey(ctx))
}
