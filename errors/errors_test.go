package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCallSite(t *testing.T) {
	err := New("tool %q missing", "maps_service")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "[errors_test.go:"), err.Error())
	assert.Contains(t, err.Error(), `tool "maps_service" missing`)
}

func TestWrapfKeepsChain(t *testing.T) {
	base := Plain("boom")
	err := Wrapf(base, "calling model")
	require.Error(t, err)
	assert.True(t, Is(err, base))
	assert.Contains(t, err.Error(), "calling model: boom")
	assert.Nil(t, Wrapf(nil, "ignored"))
}

type kindError struct{ kind string }

func (e *kindError) Error() string { return e.kind }

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", &kindError{kind: "upstream"})
	var target *kindError
	require.True(t, As(err, &target))
	assert.Equal(t, "upstream", target.kind)
}
