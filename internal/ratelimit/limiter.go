// Package ratelimit provides the injected rate limiter that throttles
// outbound calls to the generation provider.
//
// Unlike the HTTP-edge limiter in internal/http/middleware (which protects
// the API surface per client), this limiter protects the provider quota per
// training. It is constructed once at process startup and passed by
// reference to the orchestrator; there is no ambient global state.
//
// Policy: cooperative blocking wait with a bounded timeout. Wait queues the
// caller until a token is available or the timeout elapses, in which case
// ErrRateLimited is returned so the caller can surface a retry-later
// message. The limiter is process-local; multi-instance deployments need a
// shared-store limiter in front of it.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when no slot became available within the
// configured wait timeout.
var ErrRateLimited = errors.New("generation rate limit exceeded")

// bucket holds a single limiter and the last time it was used, so idle
// buckets can be evicted.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-key token-bucket limiter with a blocking Wait. Keys are
// typically training IDs; counters update atomically under the internal
// mutex. Safe for concurrent use.
type Limiter struct {
	perMinute   float64
	burst       int
	waitTimeout time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	idleTTL time.Duration
	lookups uint64
}

// New constructs a Limiter allowing perMinute requests per key with the
// given burst, and a bounded Wait of waitTimeout.
//
//   - perMinute: sustained requests per minute per key (values <= 0 are
//     coerced to 1).
//   - burst: bucket size; values <= 0 are coerced to 1.
//   - waitTimeout: how long Wait may queue before giving up; values <= 0
//     default to 15s.
func New(perMinute float64, burst int, waitTimeout time.Duration) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if waitTimeout <= 0 {
		waitTimeout = 15 * time.Second
	}
	return &Limiter{
		perMinute:   perMinute,
		burst:       burst,
		waitTimeout: waitTimeout,
		buckets:     make(map[string]*bucket),
		idleTTL:     30 * time.Minute,
	}
}

// get returns (and updates) the bucket for key, creating it if absent, with
// opportunistic eviction of idle buckets to bound memory.
func (l *Limiter) get(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	// Evict before touching the requested bucket, so a stale bucket can go
	// even when it is the one being fetched.
	l.lookups++
	if l.lookups >= 1000 {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) >= l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lookups = 0
	}

	if b, ok := l.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		l.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rate.Limit(l.perMinute/60.0), l.burst)
	l.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	l.mu.Unlock()
	return lim
}

// Allow reports whether a call for key may proceed right now, consuming a
// token when it may.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a token for key is available, the wait timeout elapses,
// or ctx is done. Timeout maps to ErrRateLimited; context cancellation is
// returned as-is.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	wctx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	err := l.get(key).Wait(wctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Wait failed because the bounded window elapsed (or could never
	// succeed within it).
	return ErrRateLimited
}
