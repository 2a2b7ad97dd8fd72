package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches own code", func(t *testing.T) {
		err := New(CodeInvalidTransition, "document already submitted")
		assert.True(t, HasCode(err, CodeInvalidTransition))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		cause := New(CodeMalformedResponse, "no JSON object in classifier output")
		err := Wrap(cause, CodeExtractionFailed, "document extraction failed")
		assert.True(t, HasCode(err, CodeExtractionFailed))
		assert.True(t, HasCode(err, CodeMalformedResponse))
	})

	t.Run("nil and plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause returns nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("preserves cause for errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(fmt.Errorf("dial classifier: %w", cause), CodeTimeout, "classifier unreachable")
		assert.True(t, errors.Is(err, cause))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConcurrentModification, CodeOf(New(CodeConcurrentModification, "racing confirm")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("untyped")))
}
