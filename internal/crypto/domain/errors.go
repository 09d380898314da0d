package domain

import (
	stderrors "errors"
	"fmt"

	"github.com/allisson/hybridkem/internal/errors"
)

// Kind classifies a domain error independently of the sentinel it wraps,
// so callers can branch on what went wrong without string matching.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindAlgorithmAsymmetric Kind = "algorithm_asymmetric"
	KindAlgorithmSymmetric  Kind = "algorithm_symmetric"
	KindKeyDerivation       Kind = "key_derivation"
	KindFormatConversion    Kind = "format_conversion"
	KindKeyManager          Kind = "key_manager"
	KindConfiguration       Kind = "configuration"
)

// Base sentinel errors. Every domain.Error wraps exactly one of these, so
// errors.Is(err, domain.ErrDecryptionFailed) keeps working across the kind
// taxonomy.
var (
	ErrUnknownPreset       = errors.Wrap(errors.ErrInvalidInput, "unknown preset")
	ErrInvalidKeySize      = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
	ErrInvalidCiphertext   = errors.Wrap(errors.ErrInvalidInput, "invalid ciphertext size")
	ErrDecryptionFailed    = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
	ErrEncryptionFailed    = errors.Wrap(errors.ErrInvalidInput, "encryption failed")
	ErrKeyDerivationFailed = errors.Wrap(errors.ErrInvalidInput, "key derivation failed")
	ErrSerializationFailed = errors.Wrap(errors.ErrInvalidInput, "serialization failed")
	ErrInvalidEnvelope     = errors.Wrap(errors.ErrInvalidInput, "invalid envelope")
	ErrInvalidConfig       = errors.Wrap(errors.ErrInvalidInput, "invalid configuration")
	ErrNoKeys              = errors.Wrap(errors.ErrNotFound, "no keys available")
	ErrCorruptKeyState     = errors.Wrap(errors.ErrInvalidInput, "corrupt on-disk key state")
	ErrNotInitialized      = errors.Wrap(errors.ErrInvalidInput, "key manager not initialized")
	ErrRotationFailed      = errors.Wrap(errors.ErrInvalidInput, "rotation failed")
)

// Error is the error type every crypto package returns. It carries enough
// structure for a caller to branch on Kind while still composing with the
// standard errors.Is/errors.As sentinel chain via Unwrap.
type Error struct {
	Kind   Kind
	Op     string
	Preset Preset
	Err    error
}

// NewError builds a domain.Error wrapping a base sentinel with operation context.
func NewError(kind Kind, op string, preset Preset, err error) *Error {
	return &Error{Kind: kind, Op: op, Preset: preset, Err: err}
}

func (e *Error) Error() string {
	if e.Preset != "" {
		return fmt.Sprintf("%s: preset=%s: %v", e.Op, e.Preset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, someDomainError) compare two *Error values by kind
// and underlying sentinel, not by pointer identity.
func (e *Error) Is(target error) bool {
	var other *Error
	if stderrors.As(target, &other) {
		return e.Kind == other.Kind && stderrors.Is(e.Err, other.Err)
	}
	return stderrors.Is(e.Err, target)
}
