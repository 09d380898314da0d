package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytesLengthAndUniqueness(t *testing.T) {
	b1, err := RandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, b1, 32)

	b2, err := RandomBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
}

func TestRandomBytesZeroLength(t *testing.T) {
	b, err := RandomBytes(0)
	require.NoError(t, err)
	assert.Len(t, b, 0)
}
