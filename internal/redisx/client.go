package redisx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cmdable is the part of the Redis API this service uses. *redis.Client
// satisfies it; so does Memory.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ Cmdable = (*redis.Client)(nil)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Ping checks connectivity at startup.
func Ping(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

// Memory is an in-process Cmdable for single-instance runs and tests.
// Values are stored as strings; expired keys vanish on access.
type Memory struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	val string
	exp time.Time
}

var _ Cmdable = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry), now: time.Now}
}

// SetClock replaces the clock used for expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) lookup(key string) (memEntry, bool) {
	e, ok := m.data[key]
	if ok && !e.exp.IsZero() && !m.now().Before(e.exp) {
		delete(m.data, key)
		return memEntry{}, false
	}
	return e, ok
}

func (m *Memory) entry(value any, ttl time.Duration) memEntry {
	e := memEntry{val: toString(value)}
	if ttl > 0 {
		e.exp = m.now().Add(ttl)
	}
	return e
}

func (m *Memory) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(e.val, nil)
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = m.entry(value, ttl)
	return redis.NewStatusResult("OK", nil)
}

func (m *Memory) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = m.entry(value, ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *Memory) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.lookup(k); ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
