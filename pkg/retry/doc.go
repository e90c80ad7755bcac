// Package retry wraps transport calls with bounded, backoff-spaced retries.
//
// Only typed errors from ghmirror/pkg/errors whose type is retryable
// (network, rate_limit, server_error) are retried; everything else is
// returned on first failure. A Config with MaxAttempts 1 performs exactly
// one attempt, which is what the GitHub executor uses unless retries are
// configured.
//
//	cfg := retry.NewConfig(3, time.Second, 30*time.Second, 2)
//	page, err := retry.DoWithResult(ctx, cfg, fetchPage)
package retry
