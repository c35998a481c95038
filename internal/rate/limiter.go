package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
	Prefix      string
}

// Limiter enforces fixed-window request budgets per scope and key
// (typically an auth endpoint and a client IP).
type Limiter struct {
	redis  redis.UniversalClient
	config Config

	mu     sync.Mutex
	memory map[string]*window
	now    func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

// New creates a rate [Limiter] backed by the given Redis client. A nil client
// keeps counters in process memory.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "grl"
	}
	l := &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
	if redisClient == nil {
		l.memory = make(map[string]*window)
	}
	return l
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxRequests > 0 && l.config.Window > 0
}

// Allow consumes one unit of budget for scope+key and returns ErrRateLimited
// once the window budget is exhausted.
func (l *Limiter) Allow(ctx context.Context, scope, key string) error {
	if !l.Enabled() {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(scope, key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRequests) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for scope+key.
func (l *Limiter) Reset(ctx context.Context, scope, key string) error {
	if !l.Enabled() {
		return nil
	}

	k := l.key(scope, key)
	if l.redis == nil {
		l.mu.Lock()
		delete(l.memory, k)
		l.mu.Unlock()
		return nil
	}

	if err := l.redis.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(scope, key string) string {
	return l.config.Prefix + ":" + scope + ":" + key
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if l.redis == nil {
		return l.incrementMemory(key, ttl), nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) incrementMemory(key string, ttl time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.memory[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(ttl)}
		l.memory[key] = w
	}
	w.count++
	return w.count
}
