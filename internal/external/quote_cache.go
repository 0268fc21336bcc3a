package external

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Quoter is satisfied by JupiterClient and CachedQuoter.
type Quoter interface {
	Quote(ctx context.Context, mint string, amount decimal.Decimal) (decimal.Decimal, error)
}

// QuoteCache stores recent quotes keyed by mint and size.
type QuoteCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Set(ctx context.Context, key string, price decimal.Decimal)
}

// CachedQuoter is a read-through cache in front of a Quoter. Failed lookups
// are never cached.
type CachedQuoter struct {
	primary Quoter
	cache   QuoteCache
}

func NewCachedQuoter(primary Quoter, cache QuoteCache) *CachedQuoter {
	return &CachedQuoter{primary: primary, cache: cache}
}

func (c *CachedQuoter) Quote(ctx context.Context, mint string, amount decimal.Decimal) (decimal.Decimal, error) {
	key := quoteKey(mint, amount)
	if price, ok := c.cache.Get(ctx, key); ok {
		return price, nil
	}

	price, err := c.primary.Quote(ctx, mint, amount)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.Set(ctx, key, price)
	return price, nil
}

func quoteKey(mint string, amount decimal.Decimal) string {
	return fmt.Sprintf("quote:%s:%s", mint, amount.String())
}

// --- in-process ---

type memoryEntry struct {
	price   decimal.Decimal
	expires time.Time
}

type MemoryQuoteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryQuoteCache(ttl time.Duration) *MemoryQuoteCache {
	return &MemoryQuoteCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryQuoteCache) Get(_ context.Context, key string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return decimal.Zero, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return decimal.Zero, false
	}
	return e.price, true
}

// Set is a no-op when the TTL is not positive.
func (m *MemoryQuoteCache) Set(_ context.Context, key string, price decimal.Decimal) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{price: price, expires: m.now().Add(m.ttl)}
}

// --- redis ---

// RedisQuoteCache shares quotes between replicas. Redis errors degrade to
// cache misses.
type RedisQuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisQuoteCache(rdb *redis.Client, ttl time.Duration) *RedisQuoteCache {
	return &RedisQuoteCache{rdb: rdb, ttl: ttl}
}

func (r *RedisQuoteCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	v, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			fmt.Printf("[CACHE] Redis get %s: %v\n", key, err)
		}
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// Set is a no-op when the TTL is not positive; a zero expiry would make
// Redis keep the quote forever.
func (r *RedisQuoteCache) Set(ctx context.Context, key string, price decimal.Decimal) {
	if r.ttl <= 0 {
		return
	}
	if err := r.rdb.Set(ctx, key, price.String(), r.ttl).Err(); err != nil {
		fmt.Printf("[CACHE] Redis set %s: %v\n", key, err)
	}
}

// DialRedis parses a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
