// Package lifecycle implements key pair generation, expiry, and validation
// independent of how a key pair is stored or rotated.
package lifecycle

import (
	"time"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/primitives"
)

// Generate creates a new key pair for preset, stamped with version and an
// expiry expiryMonths from now.
func Generate(preset domain.Preset, version int, expiryMonths int, now time.Time) (*domain.KeyPair, error) {
	const op = "lifecycle.Generate"

	scheme, err := primitives.SchemeFor(preset)
	if err != nil {
		return nil, err
	}

	pub, sec, err := scheme.Generate()
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmAsymmetric, op, preset, err)
	}

	return &domain.KeyPair{
		PublicKey: pub,
		SecretKey: sec,
		Metadata: domain.Metadata{
			Preset:    preset,
			Version:   version,
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, expiryMonths, 0),
		},
	}, nil
}

// Validate checks kp's key material matches its preset's expected sizes.
// A key pair loaded from disk that fails this is corrupt state, not a
// missing-keys condition.
func Validate(kp *domain.KeyPair) error {
	const op = "lifecycle.Validate"

	if kp == nil {
		return domain.NewError(domain.KindValidation, op, "", domain.ErrNoKeys)
	}

	params, err := domain.ParamsFor(kp.Metadata.Preset)
	if err != nil {
		return err
	}
	if len(kp.PublicKey) != params.PublicKeySize {
		return domain.NewError(domain.KindValidation, op, kp.Metadata.Preset, domain.ErrInvalidKeySize)
	}
	if len(kp.SecretKey) != params.SecretKeySize {
		return domain.NewError(domain.KindValidation, op, kp.Metadata.Preset, domain.ErrInvalidKeySize)
	}
	if kp.Metadata.Version <= 0 {
		return domain.NewError(domain.KindValidation, op, kp.Metadata.Preset, domain.ErrInvalidConfig)
	}
	if !kp.Metadata.ExpiresAt.After(kp.Metadata.CreatedAt) {
		return domain.NewError(domain.KindValidation, op, kp.Metadata.Preset, domain.ErrInvalidConfig)
	}
	return nil
}

// IsExpired reports whether kp's expiry has passed as of now.
func IsExpired(kp *domain.KeyPair, now time.Time) bool {
	if kp == nil {
		return true
	}
	return !now.Before(kp.Metadata.ExpiresAt)
}

// Zeroize overwrites kp's secret key bytes in place.
func Zeroize(kp *domain.KeyPair) {
	kp.Zeroize()
}
