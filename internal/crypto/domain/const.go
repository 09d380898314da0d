// Package domain defines the core types of the hybrid encryption engine:
// presets, key pairs, envelopes, rotation state and history, and the error
// taxonomy shared by every other crypto package.
package domain

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// Preset names a bundle of algorithm parameter choices. It is the only
// algorithm identifier an envelope carries.
type Preset string

const (
	// PresetNormal selects ML-KEM-768 with SHA-256 key derivation.
	PresetNormal Preset = "normal"

	// PresetHighSecurity selects ML-KEM-1024 with SHA-512 key derivation.
	PresetHighSecurity Preset = "high_security"
)

// NonceSize is the AES-GCM nonce length, fixed across both presets.
const NonceSize = 12

// sharedSecretSize is the ML-KEM shared secret length, fixed across both presets.
const sharedSecretSize = 32

// PresetParams holds the byte-size and hash parameters a preset selects.
type PresetParams struct {
	Preset            Preset
	PublicKeySize     int
	SecretKeySize     int
	KEMCiphertextSize int
	SharedSecretSize  int
	SaltSize          int
	HashNew           func() hash.Hash
}

var presetParams = map[Preset]PresetParams{
	PresetNormal: {
		Preset:            PresetNormal,
		PublicKeySize:     1184,
		SecretKeySize:     2400,
		KEMCiphertextSize: 1088,
		SharedSecretSize:  sharedSecretSize,
		SaltSize:          32,
		HashNew:           sha256.New,
	},
	PresetHighSecurity: {
		Preset:            PresetHighSecurity,
		PublicKeySize:     1568,
		SecretKeySize:     3168,
		KEMCiphertextSize: 1568,
		SharedSecretSize:  sharedSecretSize,
		SaltSize:          64,
		HashNew:           sha512.New,
	},
}

// ParamsFor returns the byte-size and hash parameters for preset.
func ParamsFor(preset Preset) (PresetParams, error) {
	p, ok := presetParams[preset]
	if !ok {
		return PresetParams{}, NewError(KindConfiguration, "ParamsFor", preset, ErrUnknownPreset)
	}
	return p, nil
}

// ValidPreset reports whether preset is one of the known presets.
func ValidPreset(preset Preset) bool {
	_, ok := presetParams[preset]
	return ok
}

// Algorithm names a symmetric AEAD cipher. AESGCM is the only algorithm the
// hybrid engine's presets select; ChaCha20 exists as a documented extension
// point behind the same AEAD interface.
type Algorithm string

const (
	AESGCM   Algorithm = "aes-gcm"
	ChaCha20 Algorithm = "chacha20-poly1305"
)
