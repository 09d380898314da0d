package primitives

import (
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSessionKeyIsDeterministic(t *testing.T) {
	ikm := []byte("a shared secret from KEM encapsulation")

	k1, err := DeriveSessionKey(sha256.New, ikm, 32)
	require.NoError(t, err)
	k2, err := DeriveSessionKey(sha256.New, ikm, 32)
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "same ikm must derive the same session key so the decrypter can reconstruct it")
	assert.Len(t, k1, 32)
}

func TestDeriveSessionKeyDiffersByIKM(t *testing.T) {
	k1, err := DeriveSessionKey(sha256.New, []byte("secret one"), 32)
	require.NoError(t, err)
	k2, err := DeriveSessionKey(sha256.New, []byte("secret two"), 32)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestDeriveSessionKeyHighSecurityUsesSHA512Salt(t *testing.T) {
	ikm := []byte("shared secret")

	normalKey, err := DeriveSessionKey(sha256.New, ikm, 32)
	require.NoError(t, err)
	highKey, err := DeriveSessionKey(sha512.New, ikm, 64)
	require.NoError(t, err)

	assert.NotEqual(t, normalKey, highKey, "different hash/salt length must derive a different key")
}

func TestDeterministicSaltTruncation(t *testing.T) {
	salt := deterministicSalt(sha256.New, []byte("ikm"), 16)
	assert.Len(t, salt, 16)

	fullSalt := deterministicSalt(sha256.New, []byte("ikm"), 32)
	assert.Equal(t, salt, fullSalt[:16], "truncated salt must be a prefix of the full hash output")
}
