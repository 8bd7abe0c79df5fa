package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemory()
	store.now = func() time.Time { return now }

	record, err := store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, record, "first reservation owns the key")

	_, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, store.Complete(ctx, "k1", Record{Fingerprint: "fp", Status: 201, Body: []byte(`{}`)}, time.Minute))
	record, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 201, record.Status)
	assert.False(t, record.Pending)

	now = now.Add(2 * time.Minute)
	record, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, record, "expired records are forgotten")

	require.NoError(t, store.Release(ctx, "k1"))
	record, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestInMemoryReservationUsesLease(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemory()
	store.now = func() time.Time { return now }

	_, err := store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	record, err := store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, record, "an abandoned reservation expires with its lease")
}

func TestInMemoryRemoveExpiredAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemory()
	store.now = func() time.Time { return now }

	_, err := store.Reserve(ctx, "abandoned", "fp", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "done", Record{Fingerprint: "fp", Status: 200}, time.Hour))

	assert.Zero(t, store.RemoveExpiredAt(now))
	assert.Equal(t, 1, store.RemoveExpiredAt(now.Add(time.Minute)))
	assert.NotContains(t, store.entries, "abandoned")
	assert.Contains(t, store.entries, "done")
	assert.Equal(t, 1, store.RemoveExpiredAt(now.Add(time.Hour)))
	assert.Empty(t, store.entries)
}
