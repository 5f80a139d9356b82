package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(TypeRateLimit, "too many requests", nil)
	assert.Equal(t, "RATE_LIMIT: too many requests", err.Error())

	wrapped := err.WithError(errors.New("429"))
	assert.Equal(t, "RATE_LIMIT: too many requests (429)", wrapped.Error())
	assert.Equal(t, "429", errors.Unwrap(wrapped).Error())
}

func TestAppError_WithContext(t *testing.T) {
	base := NewAppError(TypePublish, "publish failed", nil)
	withCtx := base.WithContext("file", "main.go")

	assert.Nil(t, base.Context)
	assert.Equal(t, "main.go", withCtx.Context["file"])
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeAuth, TypeOf(ErrAuthenticationFailed))
	assert.Equal(t, TypeInternal, TypeOf(errors.New("plain")))

	// wrapped AppErrors keep their type
	wrapped := fmt.Errorf("calling oracle: %w", ErrRequestTimeout)
	assert.Equal(t, TypeTimeout, TypeOf(wrapped))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", ErrRateLimitExceeded, true},
		{"transient", ErrTransientService, true},
		{"timeout", ErrRequestTimeout, true},
		{"auth", ErrAuthenticationFailed, false},
		{"schema", ErrInvalidSuggestionSchema, false},
		{"plain error", errors.New("boom"), false},
		{"nil-type publish", ErrPublishFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrAuthenticationFailed))
	assert.True(t, IsFatal(ErrRateLimitExceeded))
	assert.True(t, IsFatal(ErrRequestTimeout))
	assert.False(t, IsFatal(ErrInvalidSuggestionSchema))
	assert.False(t, IsFatal(ErrPositionUnresolvable))
	assert.False(t, IsFatal(ErrPublishFailed))
}
