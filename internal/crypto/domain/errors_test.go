package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapsSentinel(t *testing.T) {
	err := NewError(KindAlgorithmSymmetric, "Decrypt", PresetNormal, ErrDecryptionFailed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
	assert.Contains(t, err.Error(), "Decrypt")
	assert.Contains(t, err.Error(), "normal")
}

func TestErrorIsComparesKindAndSentinel(t *testing.T) {
	a := NewError(KindAlgorithmSymmetric, "Decrypt", PresetNormal, ErrDecryptionFailed)
	b := NewError(KindAlgorithmSymmetric, "DecryptWithGracePeriod", PresetHighSecurity, ErrDecryptionFailed)
	c := NewError(KindAlgorithmAsymmetric, "Decrypt", PresetNormal, ErrDecryptionFailed)

	assert.True(t, errors.Is(a, b), "same kind and sentinel should match regardless of op/preset")
	assert.False(t, errors.Is(a, c), "different kind should not match")
}

func TestErrorUnwrap(t *testing.T) {
	err := NewError(KindConfiguration, "Load", PresetNormal, ErrInvalidConfig)
	assert.Equal(t, ErrInvalidConfig, errors.Unwrap(err))
}
