// Package ratelimit implements a token-bucket limiter for the public
// endpoints that trigger outbound email. The bucket state lives in
// process memory; each instance enforces its own budget, which is
// acceptable because the limit exists to stop abuse, not to meter usage
// precisely.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig indicates a non-positive capacity, rate, or interval.
var ErrInvalidConfig = errors.New("ratelimit: invalid configuration")

// Config defines the bucket shape.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"5"`        // Capacity is the burst budget per key.
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"`     // RefillRate is tokens added per interval.
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1m"` // RefillInterval is how often tokens are added.
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one admission check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the request may proceed.
func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long the caller should wait, zero when allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Limiter is a keyed token-bucket limiter safe for concurrent use.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// New creates a limiter from config.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}, nil
}

// Allow consumes one token for the key. A Result with Remaining < 0 means
// the request must be rejected; the token was not consumed.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.cfg.Capacity, lastRefill: now}
		l.buckets[key] = b
	}

	intervals := int(now.Sub(b.lastRefill) / l.cfg.RefillInterval)
	if intervals > 0 {
		b.tokens = min(l.cfg.Capacity, b.tokens+intervals*l.cfg.RefillRate)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * l.cfg.RefillInterval)
	}

	resetAt := b.lastRefill.Add(l.cfg.RefillInterval)
	if b.tokens <= 0 {
		return Result{Limit: l.cfg.Capacity, Remaining: -1, ResetAt: resetAt}, nil
	}
	b.tokens--
	return Result{Limit: l.cfg.Capacity, Remaining: b.tokens, ResetAt: resetAt}, nil
}
