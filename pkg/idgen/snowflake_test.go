package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonic(t *testing.T) {
	require.NoError(t, Init(1))

	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		assert.Greater(t, next, prev)
		prev = next
	}
}
