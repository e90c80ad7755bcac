package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "auth error (code 401): bad credentials", New(ErrorTypeAuth, 401, "bad credentials").Error())
	assert.Equal(t, "graphql error: Could not resolve", New(ErrorTypeGraphQL, 0, "Could not resolve").Error())
}

func TestWrapAndAs(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("page 2: %w", Wrap(ErrorTypeNetwork, cause, "request failed"))

	typed, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeNetwork, typed.Type)
	assert.Equal(t, "request failed: connection reset", typed.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeNetwork, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(cause))
}

func TestFromStatus(t *testing.T) {
	tests := map[int]ErrorType{
		401: ErrorTypeAuth,
		403: ErrorTypeRateLimit,
		429: ErrorTypeRateLimit,
		404: ErrorTypeNotFound,
		502: ErrorTypeServerError,
		418: ErrorTypeUnknown,
	}
	for code, want := range tests {
		assert.Equal(t, want, FromStatus(code), "status %d", code)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeGraphQL))
	assert.False(t, IsRetryable(ErrorTypeParsing))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(503))
	assert.False(t, IsRetryableStatusCode(404))
}
