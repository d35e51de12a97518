// Package idempotency guards invoice creation against duplicate submissions
// carrying the same client-supplied key.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "invoice:idem:"
	keyTTL    = 24 * time.Hour

	// pending marks a claimed key whose run has not produced an invoice yet
	pending = "pending"
)

// Guard records which idempotency keys have been used
type Guard interface {
	// Claim reserves key, returning false if it was already claimed
	Claim(ctx context.Context, key string) (bool, error)

	// Complete binds a claimed key to the invoice it produced
	Complete(ctx context.Context, key, invoiceID string) error

	// Release frees key so the client may retry
	Release(ctx context.Context, key string) error

	// Lookup returns the invoice bound to key, or "" while it is pending or unknown
	Lookup(ctx context.Context, key string) (string, error)
}

// RedisGuard keeps keys in Redis so duplicate detection spans processes
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, ttl: keyTTL}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, pending, g.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (g *RedisGuard) Complete(ctx context.Context, key, invoiceID string) error {
	return g.client.Set(ctx, keyPrefix+key, invoiceID, redis.KeepTTL).Err()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, keyPrefix+key).Err()
}

func (g *RedisGuard) Lookup(ctx context.Context, key string) (string, error) {
	v, err := g.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if v == pending {
		return "", nil
	}
	return v, nil
}

// MemoryGuard is a process-local Guard for single instance deployments and tests
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]memoryEntry),
		ttl:     keyTTL,
		now:     time.Now,
	}
}

// live returns the unexpired entry for key. Callers hold g.mu.
func (g *MemoryGuard) live(key string) (memoryEntry, bool) {
	e, ok := g.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !g.now().Before(e.expires) {
		delete(g.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.live(key); ok {
		return false, nil
	}
	g.entries[key] = memoryEntry{value: pending, expires: g.now().Add(g.ttl)}
	return true, nil
}

func (g *MemoryGuard) Complete(ctx context.Context, key, invoiceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.live(key); ok {
		e.value = invoiceID
		g.entries[key] = e
	}
	return nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	delete(g.entries, key)
	g.mu.Unlock()
	return nil
}

func (g *MemoryGuard) Lookup(ctx context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok || e.value == pending {
		return "", nil
	}
	return e.value, nil
}
