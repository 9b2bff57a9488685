package remote

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter tracks the service's X-RateLimit-* response headers and acts
// as the pre-flight gate on remote calls.
//
// The pull reconciler fans out one request per collection, so it consults
// Status before issuing anything; when the budget is exhausted the entire
// pull is skipped with no partial network activity.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	remaining int
	reset     time.Time
	tracked   bool

	now func() time.Time // test hook
}

// NewRateLimiter returns a limiter with no recorded state; it allows
// everything until the first response headers arrive.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

// Record updates the limiter from a response's rate-limit headers.
// Responses without the headers leave the state untouched.
func (r *RateLimiter) Record(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.remaining = remaining
	r.tracked = true
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		r.limit = limit
	}
	if resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		r.reset = time.Unix(resetUnix, 0)
	}
}

// Status reports whether a remote request may be issued now, with a
// user-facing message either way.
func (r *RateLimiter) Status() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tracked {
		return true, "rate limit not yet reported by service"
	}

	now := r.now()
	if r.remaining > 0 || now.After(r.reset) {
		return true, fmt.Sprintf("%d of %d requests remaining", r.remaining, r.limit)
	}

	wait := r.reset.Sub(now).Round(time.Second)
	return false, fmt.Sprintf("rate limit exhausted; resets in %s", wait)
}
