package qgerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindOf(t *testing.T) {
	err := New(NotFound, "project %q", "abc")
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Conflict))
	assert.Equal(t, InternalError, KindOf(errors.New("plain")))
}

func TestErrorIsComparesByKind(t *testing.T) {
	a := New(Conflict, "session busy")
	b := New(Conflict, "different message entirely")
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, New(NotFound, "x")))
}

func TestWrapPreservesSameKind(t *testing.T) {
	inner := New(ToolFailure, "exit 1")
	wrapped := Wrap(ToolFailure, inner, "module %s failed", "lint")
	require.Same(t, inner, wrapped)

	other := errors.New("boom")
	wrapped2 := Wrap(InternalError, other, "orchestrator panic")
	assert.ErrorIs(t, wrapped2, other)
	assert.Equal(t, InternalError, KindOf(wrapped2))
}

func TestWithComponentDoesNotMutateOriginal(t *testing.T) {
	base := New(InvalidInput, "bad path")
	tagged := base.WithComponent("session")
	assert.Empty(t, base.Component)
	assert.Equal(t, "session", tagged.Component)
}
