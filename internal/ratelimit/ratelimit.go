// Package ratelimit provides an advisory sliding-window attempt counter
// persisted in a storage.Store under rate_limit_<key>.
//
// The limiter reads, prunes and writes back without isolation, so two
// processes sharing a store can both squeeze in an attempt at the limit.
// It guards the user experience (resend buttons, repeated code entry), not
// the server.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/storage"
)

const (
	// KeyPrefix namespaces limiter records in the shared store.
	KeyPrefix = "rate_limit_"

	DefaultWindow      = time.Minute
	DefaultMaxAttempts = 5
)

// Limiter counts attempts per key over a rolling window.
type Limiter struct {
	store       storage.Store
	now         func() time.Time
	window      time.Duration
	maxAttempts int
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithDefaults sets the window and attempt budget used when callers pass zero.
func WithDefaults(window time.Duration, maxAttempts int) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
		if maxAttempts > 0 {
			l.maxAttempts = maxAttempts
		}
	}
}

// New creates a limiter over store.
func New(store storage.Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		now:         time.Now,
		window:      DefaultWindow,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRateLimited reports whether key already has maxAttempts attempts inside
// window. When it does not, the current attempt is recorded. Zero values
// select the limiter defaults. Storage failures are logged and treated as
// not limited.
func (l *Limiter) IsRateLimited(ctx context.Context, key string, window time.Duration, maxAttempts int) bool {
	window, maxAttempts = l.resolve(window, maxAttempts)
	now := l.now()

	attempts, err := l.load(ctx, key, now, window)
	if err != nil {
		logger.Warn("Rate limit check failed, allowing attempt", "key", key, "error", err)
		return false
	}

	if len(attempts) >= maxAttempts {
		return true
	}

	attempts = append(attempts, now.UnixMilli())
	if err := l.save(ctx, key, attempts); err != nil {
		logger.Warn("Rate limit record not persisted, allowing attempt", "key", key, "error", err)
	}
	return false
}

// Remaining returns how many attempts key has left in the window without
// recording one. Storage failures report the full budget.
func (l *Limiter) Remaining(ctx context.Context, key string, window time.Duration, maxAttempts int) int {
	window, maxAttempts = l.resolve(window, maxAttempts)

	attempts, err := l.load(ctx, key, l.now(), window)
	if err != nil {
		logger.Warn("Rate limit lookup failed", "key", key, "error", err)
		return maxAttempts
	}
	if left := maxAttempts - len(attempts); left > 0 {
		return left
	}
	return 0
}

// RetryAfter returns how long until the oldest attempt in the window
// expires, or zero when key is not at its limit.
func (l *Limiter) RetryAfter(ctx context.Context, key string, window time.Duration, maxAttempts int) time.Duration {
	window, maxAttempts = l.resolve(window, maxAttempts)
	now := l.now()

	attempts, err := l.load(ctx, key, now, window)
	if err != nil || len(attempts) < maxAttempts {
		return 0
	}
	// Records are appended in time order, so the first one frees up first.
	oldest := time.UnixMilli(attempts[len(attempts)-maxAttempts])
	if wait := oldest.Add(window).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Reset forgets all attempts for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Remove(ctx, KeyPrefix+key); err != nil {
		return fmt.Errorf("failed to reset rate limit %q: %w", key, err)
	}
	return nil
}

func (l *Limiter) resolve(window time.Duration, maxAttempts int) (time.Duration, int) {
	if window <= 0 {
		window = l.window
	}
	if maxAttempts <= 0 {
		maxAttempts = l.maxAttempts
	}
	return window, maxAttempts
}

// load returns the stored timestamps newer than now-window.
func (l *Limiter) load(ctx context.Context, key string, now time.Time, window time.Duration) ([]int64, error) {
	raw, err := l.store.Get(ctx, KeyPrefix+key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stored []int64
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("corrupt rate limit record: %w", err)
	}

	cutoff := now.Add(-window).UnixMilli()
	recent := stored[:0]
	for _, ts := range stored {
		if ts > cutoff {
			recent = append(recent, ts)
		}
	}
	return recent, nil
}

func (l *Limiter) save(ctx context.Context, key string, attempts []int64) error {
	data, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, KeyPrefix+key, string(data))
}
