package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "ghmirror/pkg/errors"
)

// BackoffStrategy computes the delay before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at MaxDelay
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor in [0,1] spreads delays to avoid synchronized retries
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += rand.Float64()*2*jitter - jitter
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// ConstantBackoff waits the same Delay between every attempt
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// ErrorTypeBackoff picks a strategy by the typed error of the failed attempt.
// Rate limit failures wait considerably longer than network blips.
type ErrorTypeBackoff struct {
	RateLimit BackoffStrategy
	Default   BackoffStrategy
}

// NewErrorTypeBackoff builds an ErrorTypeBackoff around base
func NewErrorTypeBackoff(base BackoffStrategy) *ErrorTypeBackoff {
	return &ErrorTypeBackoff{
		RateLimit: &ExponentialBackoff{
			BaseDelay:    30 * time.Second,
			MaxDelay:     5 * time.Minute,
			Multiplier:   1.5,
			JitterFactor: 0.3,
		},
		Default: base,
	}
}

// For returns the strategy to use after err
func (b *ErrorTypeBackoff) For(err error) BackoffStrategy {
	if errs.TypeOf(err) == errs.ErrorTypeRateLimit && b.RateLimit != nil {
		return b.RateLimit
	}
	return b.Default
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
