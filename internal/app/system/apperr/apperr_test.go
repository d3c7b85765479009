package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"not found", apperr.NotFound("x"), apperr.KindNotFound},
		{"wrapped conflict", fmt.Errorf("join: %w", apperr.Conflict("full")), apperr.KindConflict},
		{"deadline", context.DeadlineExceeded, apperr.KindUnavailable},
		{"plain", errors.New("boom"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestIsMatchesKindAndMessage(t *testing.T) {
	sentinel := apperr.Conflict("Initiative is full")
	err := fmt.Errorf("wrapped: %w", apperr.Conflict("Initiative is full"))

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, apperr.Conflict("Already joined this initiative")))
	assert.False(t, errors.Is(err, apperr.Validation("Initiative is full")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, apperr.Wrap(nil, "x"))

	nf := apperr.NotFound("User not found")
	assert.Same(t, nf, apperr.Wrap(nf, "ignored"))

	cause := errors.New("socket closed")
	err := apperr.Wrap(cause, "Error joining initiative")
	var e *apperr.E
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apperr.KindInternal, e.Kind)
	assert.Equal(t, "Error joining initiative", e.Message)
	assert.ErrorIs(t, err, cause)

	timeout := apperr.Wrap(fmt.Errorf("find: %w", context.DeadlineExceeded), "x")
	assert.True(t, apperr.Is(timeout, apperr.KindUnavailable))
}

func TestMessageHidesCause(t *testing.T) {
	err := apperr.Internal("Server error", errors.New("mongo: connection refused"))
	assert.Equal(t, "Server error", apperr.Message(err))
	assert.Equal(t, "Server error", apperr.Message(errors.New("raw")))
}
