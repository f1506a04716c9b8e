package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored while the first request for a key is still running.
const pendingMarker = "pending"

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency remembers which order a create-order key produced. Keys are
// scoped per user, so two callers never see each other's orders.
type Idempotency struct {
	rdb     Cmdable
	ttl     time.Duration
	pending time.Duration
}

func NewIdempotency(rdb Cmdable, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &Idempotency{rdb: rdb, ttl: ttl, pending: TTLIdempotencyPending}
}

// WithPendingTTL sets how long an unfinished claim blocks the key.
func (i *Idempotency) WithPendingTTL(d time.Duration) *Idempotency {
	if d > 0 {
		i.pending = d
	}
	return i
}

func idemKey(userID, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, userID, key)
}

// Claim reserves key for userID. When the key already produced an order,
// its id is returned with claimed=false. ErrInFlight is returned while
// another holder has not called Complete or Abandon; an abandoned-by-crash
// claim expires after the pending TTL.
func (i *Idempotency) Claim(ctx context.Context, userID, key string) (orderID string, claimed bool, err error) {
	k := idemKey(userID, key)
	ok, err := i.rdb.SetNX(ctx, k, pendingMarker, i.pending).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}
	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; treat as in flight so the client retries
		return "", false, ErrInFlight
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == pendingMarker {
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Complete stores the order id produced for key, with the full TTL.
func (i *Idempotency) Complete(ctx context.Context, userID, key, orderID string) error {
	return i.rdb.Set(ctx, idemKey(userID, key), orderID, i.ttl).Err()
}

// Abandon frees key after a failed attempt so the client may retry.
func (i *Idempotency) Abandon(ctx context.Context, userID, key string) error {
	return i.rdb.Del(ctx, idemKey(userID, key)).Err()
}

// Dedup marks ids as processed for one service.
type Dedup struct {
	rdb     Cmdable
	service string
	ttl     time.Duration
}

func NewDedup(rdb Cmdable, service string, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &Dedup{rdb: rdb, service: service, ttl: ttl}
}

// First reports whether id is seen for the first time and marks it.
func (d *Dedup) First(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.service, id), "1", d.ttl).Result()
}

// Forget clears the mark so a failed id can be processed again.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.service, id)).Err()
}
