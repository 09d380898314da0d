// Package hybrid implements the encrypt/decrypt pipeline that fuses an
// ML-KEM key encapsulation with AES-256-GCM via an HKDF-derived session
// key, and assembles/validates the resulting envelope.
package hybrid

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/primitives"
	"github.com/allisson/hybridkem/internal/crypto/serialize"
)

// Engine orchestrates the hybrid encrypt/decrypt pipelines. It has no
// dependency on key storage or rotation — callers supply the key material,
// which keeps the engine independently testable.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Encrypt serializes value, encapsulates a fresh shared secret against
// publicKey, derives a session key, and seals the serialized value with
// AES-256-GCM. Every step's secrets are zeroized before returning, success
// or failure.
func (e *Engine) Encrypt(ctx context.Context, value serialize.Value, publicKey []byte, preset domain.Preset) (domain.EncryptedEnvelope, error) {
	const op = "encrypt"

	params, err := domain.ParamsFor(preset)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}
	if len(publicKey) != params.PublicKeySize {
		return domain.EncryptedEnvelope{}, wrap(op, preset, domain.NewError(domain.KindAlgorithmAsymmetric, op, preset, domain.ErrInvalidKeySize))
	}

	serialized, err := serialize.Marshal(value)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}

	scheme, err := primitives.SchemeFor(preset)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}

	sharedSecret, kemCiphertext, err := scheme.Encapsulate(publicKey)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}
	defer domain.Zero(sharedSecret)

	symKey, err := primitives.DeriveSessionKey(params.HashNew, sharedSecret, params.SaltSize)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}
	defer domain.Zero(symKey)

	aead, err := primitives.NewAEAD(domain.AESGCM, symKey)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}

	ciphertext, nonce, err := aead.Encrypt(serialized, nil)
	if err != nil {
		return domain.EncryptedEnvelope{}, wrap(op, preset, err)
	}

	return domain.EncryptedEnvelope{
		Preset:           preset,
		EncryptedContent: base64.StdEncoding.EncodeToString(ciphertext),
		CipherText:       base64.StdEncoding.EncodeToString(kemCiphertext),
		Nonce:            base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt reverses Encrypt using a single secret key. The envelope's own
// preset wins over any caller assumption about which parameter set applies.
func (e *Engine) Decrypt(ctx context.Context, envelope domain.EncryptedEnvelope, secretKey []byte) (serialize.Value, error) {
	const op = "decrypt"

	preset := envelope.Preset
	params, err := domain.ParamsFor(preset)
	if err != nil {
		return nil, wrap(op, preset, domain.NewError(domain.KindValidation, op, preset, domain.ErrInvalidEnvelope))
	}

	kemCiphertext, err := decodeField(op, preset, envelope.CipherText)
	if err != nil {
		return nil, err
	}
	nonce, err := decodeField(op, preset, envelope.Nonce)
	if err != nil {
		return nil, err
	}
	ciphertext, err := decodeField(op, preset, envelope.EncryptedContent)
	if err != nil {
		return nil, err
	}

	if len(kemCiphertext) != params.KEMCiphertextSize {
		return nil, wrap(op, preset, domain.NewError(domain.KindValidation, op, preset, domain.ErrInvalidEnvelope))
	}
	if len(nonce) != domain.NonceSize {
		return nil, wrap(op, preset, domain.NewError(domain.KindValidation, op, preset, domain.ErrInvalidEnvelope))
	}

	if len(secretKey) != params.SecretKeySize {
		return nil, wrap(op, preset, domain.NewError(domain.KindAlgorithmAsymmetric, op, preset, domain.ErrInvalidKeySize))
	}

	scheme, err := primitives.SchemeFor(preset)
	if err != nil {
		return nil, wrap(op, preset, err)
	}

	sharedSecret, err := scheme.Decapsulate(secretKey, kemCiphertext)
	if err != nil {
		return nil, wrap(op, preset, err)
	}
	defer domain.Zero(sharedSecret)

	symKey, err := primitives.DeriveSessionKey(params.HashNew, sharedSecret, params.SaltSize)
	if err != nil {
		return nil, wrap(op, preset, err)
	}
	defer domain.Zero(symKey)

	aead, err := primitives.NewAEAD(domain.AESGCM, symKey)
	if err != nil {
		return nil, wrap(op, preset, err)
	}

	serialized, err := aead.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return nil, wrap(op, preset, domain.NewError(domain.KindAlgorithmSymmetric, op, preset, domain.ErrDecryptionFailed))
	}

	value, err := serialize.Unmarshal(serialized)
	if err != nil {
		return nil, wrap(op, preset, err)
	}
	return value, nil
}

// DecryptWithGracePeriod tries each secret key in order, returning the
// first successful decryption. secretKeys must be non-empty; passing an
// empty slice is a programmer error and returns a Validation error rather
// than panicking.
func (e *Engine) DecryptWithGracePeriod(ctx context.Context, envelope domain.EncryptedEnvelope, secretKeys [][]byte) (serialize.Value, error) {
	const op = "decryptWithGracePeriod"

	if len(secretKeys) == 0 {
		return nil, wrap(op, envelope.Preset, domain.NewError(domain.KindValidation, op, envelope.Preset, domain.ErrInvalidConfig))
	}

	var lastErr error
	for i, key := range secretKeys {
		value, err := e.Decrypt(ctx, envelope, key)
		if err == nil {
			if i > 0 {
				e.logger.Debug("grace-period decrypt succeeded with a non-current key", slog.Int("keyIndex", i))
			}
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func decodeField(op string, preset domain.Preset, field string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return nil, wrap(op, preset, domain.NewError(domain.KindFormatConversion, op, preset, domain.ErrInvalidEnvelope))
	}
	return b, nil
}

// wrap adds operation context to err unless it is already a *domain.Error,
// per the propagation policy: the engine only annotates errors that don't
// already carry it.
func wrap(op string, preset domain.Preset, err error) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*domain.Error); ok {
		if de.Op == "" {
			de.Op = op
		}
		if de.Preset == "" {
			de.Preset = preset
		}
		return de
	}
	return domain.NewError(domain.KindValidation, op, preset, err)
}
