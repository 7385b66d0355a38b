package staging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoPendingOrder)

	require.NoError(t, store.Put(ctx, &PendingOrder{UserID: "user-1", GatewayOrderID: "order_1", Total: 100}))
	require.NoError(t, store.Put(ctx, &PendingOrder{UserID: "user-1", GatewayOrderID: "order_2", Total: 200}))

	pending, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "order_2", pending.GatewayOrderID)

	require.NoError(t, store.Clear(ctx, "user-1"))
	_, err = store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoPendingOrder)

	// Clearing an already-empty slot is a no-op.
	require.NoError(t, store.Clear(ctx, "user-1"))
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, &PendingOrder{UserID: "a", GatewayOrderID: "order_a"}))
	require.NoError(t, store.Put(ctx, &PendingOrder{UserID: "b", GatewayOrderID: "order_b"}))

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "order_a", a.GatewayOrderID)
}

func TestMemoryReplayGuard(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryReplayGuard()

	// Checking never marks; only Mark does.
	seen, err := guard.Seen(ctx, "payment.captured:pay_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.Seen(ctx, "payment.captured:pay_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, guard.Mark(ctx, "payment.captured:pay_1"))

	seen, err = guard.Seen(ctx, "payment.captured:pay_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = guard.Seen(ctx, "payment.captured:pay_2")
	require.NoError(t, err)
	assert.False(t, seen)
}
