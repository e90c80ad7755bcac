// Package ratelimit provides the client-side request throttle used by the
// GitHub executor: a golang.org/x/time/rate token bucket plus a pause when
// the server-reported quota is exhausted.
package ratelimit
