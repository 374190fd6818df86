package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProcessedStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryProcessedStore(time.Minute, time.Hour)
	store.now = func() time.Time { return now }

	ok, err := store.Acquire(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.False(t, ok, "leased")

	done, err := store.Done(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.False(t, done, "a lease is not a done mark")

	ok, err = store.Acquire(ctx, "bookings", "evt-1")
	require.NoError(t, err)
	assert.True(t, ok, "leases are per consumer")

	require.NoError(t, store.Release(ctx, "flights", "evt-1"))
	ok, err = store.Acquire(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Complete(ctx, "flights", "evt-1"))
	require.NoError(t, store.Release(ctx, "flights", "evt-1"))
	done, err = store.Done(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.True(t, done, "release leaves the done mark alone")

	now = now.Add(2 * time.Minute)
	ok, err = store.Acquire(ctx, "bookings", "evt-1")
	require.NoError(t, err)
	assert.True(t, ok, "an expired lease can be taken again")

	done, err = store.Done(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.True(t, done, "done marks outlive leases")

	now = now.Add(2 * time.Hour)
	done, err = store.Done(ctx, "flights", "evt-1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:flights", flightsKey())
	assert.Equal(t, "processed:flights:evt-1", processedKey("flights", "evt-1"))
}
