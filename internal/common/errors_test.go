package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad", nil), KindValidation},
		{"conflict", Conflict("dup", ErrAlreadyExists), KindConflict},
		{"unauthenticated", Unauthenticated("no", nil), KindUnauthenticated},
		{"forbidden", Forbidden("no"), KindForbidden},
		{"not found", NotFound("gone", ErrorNotFound), KindNotFound},
		{"internal", Internal("boom", errors.New("x")), KindInternal},
		{"wrapped", fmt.Errorf("op: %w", Forbidden("no")), KindForbidden},
		{"plain error", errors.New("raw"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_UnwrapKeepsSentinel(t *testing.T) {
	err := Conflict("User already exists", ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "conflict: User already exists")
}

func TestError_ErrorWithoutCause(t *testing.T) {
	assert.Equal(t, "forbidden: nope", Forbidden("nope").Error())
}
