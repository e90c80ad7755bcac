package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "ghmirror/pkg/errors"
	"ghmirror/pkg/logger"
)

// Config holds retry configuration
type Config struct {
	// MaxAttempts counts the first try; 1 disables retrying
	MaxAttempts int
	Backoff     *ErrorTypeBackoff
	// RetryIf decides whether a failure is worth another attempt
	RetryIf func(error) bool
	// OnRetry is called before sleeping ahead of each retry
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// NewConfig builds a Config with the default predicate. A multiplier above 1
// grows the delay exponentially; otherwise every retry waits initial.
func NewConfig(maxAttempts int, initial, max time.Duration, multiplier float64) *Config {
	var base BackoffStrategy = ConstantBackoff{Delay: initial}
	if multiplier > 1 {
		base = &ExponentialBackoff{
			BaseDelay:    initial,
			MaxDelay:     max,
			Multiplier:   multiplier,
			JitterFactor: 0.1,
		}
	}
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     NewErrorTypeBackoff(base),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// NoRetry is a Config that performs a single attempt
func NoRetry() *Config {
	return &Config{MaxAttempts: 1, RetryIf: DefaultRetryIf, Logger: logger.NewNopLogger()}
}

// DefaultRetryIf retries typed errors whose type is retryable and never
// retries context cancellation. Untyped errors are not retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apiErr, ok := errs.As(err); ok {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

// Do runs op until it succeeds, fails with a non-retryable error, exhausts
// MaxAttempts or ctx is cancelled.
func Do(ctx context.Context, cfg *Config, op func(context.Context) error) error {
	if cfg == nil {
		cfg = NoRetry()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			if cfg.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			if strategy := cfg.Backoff.For(err); strategy != nil {
				delay = strategy.NextDelay(attempt)
			}
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, cfg *Config, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
