package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	conflict := &ConflictError{Resource: "invoice", Key: "202503-0007", Reason: "already issued"}
	wrapped := fmt.Errorf("failed to commit: %w", conflict)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrValidation))

	var ce *ConflictError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "202503-0007", ce.Key)
}

func TestDependencyKeepsExistingKind(t *testing.T) {
	invalid := Invalid("amount", "must be positive")
	assert.Same(t, invalid, Dependency("insert payment", invalid))

	raw := errors.New("connection refused")
	dep := Dependency("insert payment", raw)
	assert.True(t, errors.Is(dep, ErrDependency))
	assert.True(t, errors.Is(dep, raw))
	assert.Nil(t, Dependency("noop", nil))
}

func TestNotFound(t *testing.T) {
	err := NotFound("member", "42")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "member 42: not found", err.Error())
}
