package middleware

import (
	"net/http"
	"time"
)

// ConcurrencyLimiter bounds the number of event streams served at once.
// A request waits up to the queue timeout for a free slot.
type ConcurrencyLimiter struct {
	slots chan struct{}
	queue time.Duration
}

func NewConcurrencyLimiter(n int, queue time.Duration) *ConcurrencyLimiter {
	if n <= 0 {
		n = 1
	}
	return &ConcurrencyLimiter{slots: make(chan struct{}, n), queue: queue}
}

func (l *ConcurrencyLimiter) acquire(r *http.Request) bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
	}
	if l.queue <= 0 {
		return false
	}
	timer := time.NewTimer(l.queue)
	defer timer.Stop()
	select {
	case l.slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-r.Context().Done():
		return false
	}
}

func (l *ConcurrencyLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.acquire(r) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer func() { <-l.slots }()
		next.ServeHTTP(w, r)
	})
}
