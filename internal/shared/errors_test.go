package shared_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappbot/internal/shared"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		expected string
	}{
		{name: "simple error", err: errors.New("original"), context: "wrapper", expected: "wrapper: original"},
		{name: "empty context", err: errors.New("original"), context: "", expected: "original"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.Wrap(tt.err, tt.context)
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result.Error())
			assert.True(t, errors.Is(result, tt.err))
		})
	}

	assert.Nil(t, shared.Wrap(nil, "ctx"))
	assert.Nil(t, shared.Wrapf(nil, "ctx %d", 1))
	assert.Equal(t, "send 42: boom", shared.Wrapf(errors.New("boom"), "send %d", 42).Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want shared.Kind
	}{
		{"nil", nil, shared.KindUnknown},
		{"plain", errors.New("x"), shared.KindUnknown},
		{"not found", fmt.Errorf("visitor 1: %w", shared.ErrNotFound), shared.KindNotFound},
		{"validation", shared.ErrValidation, shared.KindValidation},
		{"unauthorized", shared.ErrUnauthorized, shared.KindUnauthorized},
		{"dependency", shared.Wrap(shared.ErrDependencyFailure, "send"), shared.KindDependencyFailure},
		{"canceled", context.Canceled, shared.KindCanceled},
		{"deadline", context.DeadlineExceeded, shared.KindTimeout},
		{"net timeout", timeoutErr{}, shared.KindTimeout},
		{"joined picks priority", errors.Join(shared.ErrInternal, shared.ErrNotFound), shared.KindNotFound},
		{"canceled beats timeout", errors.Join(context.DeadlineExceeded, context.Canceled), shared.KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shared.KindOf(tt.err))
			assert.True(t, shared.HasKind(tt.err, tt.want))
		})
	}
}

func TestMarkKind(t *testing.T) {
	orig := errors.New("401 from api")

	marked := shared.MarkKind(orig, shared.KindUnauthorized)
	assert.True(t, errors.Is(marked, orig))
	assert.True(t, shared.IsUnauthorized(marked))
	assert.Equal(t, shared.KindUnauthorized, shared.KindOf(marked))

	// already marked errors are returned as is
	assert.Same(t, marked, shared.MarkKind(marked, shared.KindUnauthorized))

	assert.Equal(t, shared.ErrNotFound, shared.MarkKind(nil, shared.KindNotFound))
	assert.Nil(t, shared.MarkKind(nil, shared.KindCanceled))
	assert.Equal(t, orig, shared.MarkKind(orig, shared.KindUnknown))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "DependencyFailure", shared.KindDependencyFailure.String())
	assert.Equal(t, "Canceled", shared.KindCanceled.String())
	assert.Equal(t, "Unknown", shared.Kind(99).String())
}
