package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetNXAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.SetClock(func() time.Time { return now })

	ok, err := m.SetNX(ctx, "k", "v", time.Minute).Result()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.SetNX(ctx, "k", "other", time.Minute).Result()
	assert.False(t, ok)

	v, err := m.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k").Result()
	assert.ErrorIs(t, err, redis.Nil)

	ok, _ = m.SetNX(ctx, "k", "again", 0).Result()
	assert.True(t, ok)
	n, _ := m.Del(ctx, "k", "missing").Result()
	assert.Equal(t, int64(1), n)
}

func TestIdempotency_ClaimCompleteReplay(t *testing.T) {
	ctx := context.Background()
	idem := NewIdempotency(NewMemory(), 0)

	_, claimed, err := idem.Claim(ctx, "u1", "abc")
	require.NoError(t, err)
	assert.True(t, claimed)

	_, _, err = idem.Claim(ctx, "u1", "abc")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, idem.Complete(ctx, "u1", "abc", "order-1"))
	id, claimed, err := idem.Claim(ctx, "u1", "abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-1", id)
}

func TestIdempotency_AbandonFreesKey(t *testing.T) {
	ctx := context.Background()
	idem := NewIdempotency(NewMemory(), time.Hour)

	_, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, idem.Abandon(ctx, "u1", "k1"))

	_, claimed, err = idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotency_KeysAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	idem := NewIdempotency(NewMemory(), 0)

	_, claimed, err := idem.Claim(ctx, "u1", "same")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, idem.Complete(ctx, "u1", "same", "order-u1"))

	id, claimed, err := idem.Claim(ctx, "u2", "same")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, id)
}

func TestIdempotency_StaleClaimExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemory()
	mem.SetClock(func() time.Time { return now })
	idem := NewIdempotency(mem, time.Hour).WithPendingTTL(10 * time.Second)

	_, claimed, err := idem.Claim(ctx, "u1", "crashy")
	require.NoError(t, err)
	require.True(t, claimed)

	now = now.Add(5 * time.Second)
	_, _, err = idem.Claim(ctx, "u1", "crashy")
	assert.ErrorIs(t, err, ErrInFlight)

	// holder never completed: the claim lapses long before the 1h TTL
	now = now.Add(10 * time.Second)
	_, claimed, err = idem.Claim(ctx, "u1", "crashy")
	require.NoError(t, err)
	assert.True(t, claimed)

	// a completed key lives for the full TTL
	require.NoError(t, idem.Complete(ctx, "u1", "crashy", "order-9"))
	now = now.Add(30 * time.Minute)
	id, claimed, err := idem.Claim(ctx, "u1", "crashy")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-9", id)
}

func TestDedup_FirstOnlyOnce(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	d := NewDedup(mem, "notifier", 0)

	first, err := d.First(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	first, _ = d.First(ctx, "evt-1")
	assert.False(t, first)

	// other services keep their own marks
	other := NewDedup(mem, "audit", 0)
	first, _ = other.First(ctx, "evt-1")
	assert.True(t, first)

	require.NoError(t, d.Forget(ctx, "evt-1"))
	first, _ = d.First(ctx, "evt-1")
	assert.True(t, first)
}
