package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Limiter throttles outgoing requests. It combines a proactive token bucket
// with the quota GitHub reports in response headers: once the reported
// remaining quota hits zero, Wait blocks until the advertised reset time.
type Limiter struct {
	bucket *rate.Limiter

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	now       func() time.Time
}

// New creates a Limiter allowing perSecond requests with the given burst.
// perSecond <= 0 disables the token bucket; the header quota still applies.
func New(perSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		bucket:    rate.NewLimiter(limit, burst),
		remaining: -1,
		now:       time.Now,
	}
}

// Wait blocks until a request may be sent or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	exhausted := l.remaining == 0
	wait := l.resetAt.Sub(l.now())
	l.mu.Unlock()

	if !exhausted || wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe records the quota headers of a response
func (l *Limiter) Observe(h http.Header) {
	remaining, errR := strconv.Atoi(h.Get(HeaderRemaining))
	reset, errT := strconv.ParseInt(h.Get(HeaderReset), 10, 64)

	l.mu.Lock()
	defer l.mu.Unlock()
	if errR == nil {
		l.remaining = remaining
	}
	if errT == nil {
		l.resetAt = time.Unix(reset, 0)
	}
}

// Remaining returns the last reported quota, or -1 when none was seen
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

// ResetAt returns the last reported quota reset time
func (l *Limiter) ResetAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetAt
}
