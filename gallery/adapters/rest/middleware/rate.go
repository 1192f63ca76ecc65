package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// RateLimiter hands every session rps tokens per second with a burst of
// one. Requests wait for a token of their session until their context ends.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]chan struct{}
}

// NewRateLimiter refills until ctx is done.
func NewRateLimiter(ctx context.Context, rps int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	rl := &RateLimiter{buckets: make(map[string]chan struct{})}

	interval := time.Second / time.Duration(rps)
	if interval <= 0 {
		interval = time.Nanosecond
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.refill()
			}
		}
	}()

	return rl
}

// refill adds a token to every bucket. Buckets that are already full are
// dropped; bucket recreates them full.
func (l *RateLimiter) refill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, tokens := range l.buckets {
		select {
		case tokens <- struct{}{}:
		default:
			delete(l.buckets, key)
		}
	}
}

func (l *RateLimiter) bucket(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	tokens, ok := l.buckets[key]
	if !ok {
		tokens = make(chan struct{}, 1)
		tokens <- struct{}{}
		l.buckets[key] = tokens
	}
	return tokens
}

func (l *RateLimiter) acquire(ctx context.Context, key string) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.bucket(key):
		return true
	}
}

func (l *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.acquire(r.Context(), SessionFromContext(r.Context())) {
			http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
			return
		}
		next.ServeHTTP(w, r)
	})
}
