// Package primitives wraps the vetted cryptographic building blocks the
// hybrid engine composes: the KEM, the AEAD cipher, HKDF, and the small
// utilities (constant-time compare, secure random) every layer above needs.
package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// AEAD is an authenticated symmetric cipher: Encrypt produces ciphertext
// with the authentication tag appended; Decrypt verifies the tag before
// returning plaintext. A tag mismatch is the authoritative "wrong key or
// tampered ciphertext" signal (§7 AlgorithmSymmetric).
type AEAD interface {
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
	NonceSize() int
}

// AESGCMCipher implements AEAD using AES-256-GCM, the only cipher either
// preset's table selects.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher. key must be exactly 32 bytes.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != 32 {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "NewAESGCM", "", domain.ErrInvalidKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "NewAESGCM", "", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "NewAESGCM", "", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with a fresh random nonce.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmSymmetric, "AESGCMCipher.Encrypt", "", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext with the given nonce and AAD, verifying the tag.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "AESGCMCipher.Decrypt", "", domain.ErrDecryptionFailed)
	}
	return plaintext, nil
}

// NonceSize returns the nonce length AES-GCM expects (12 bytes).
func (a *AESGCMCipher) NonceSize() int {
	return a.aead.NonceSize()
}

// ChaCha20Poly1305Cipher implements AEAD using ChaCha20-Poly1305. Neither
// preset selects it today; it exists as the extension point the design
// keeps open for algorithms beyond AES-GCM, behind the same interface.
type ChaCha20Poly1305Cipher struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher. key must be
// exactly 32 bytes.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "NewChaCha20Poly1305", "", err)
	}

	return &ChaCha20Poly1305Cipher{aead: aead}, nil
}

func (c *ChaCha20Poly1305Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmSymmetric, "ChaCha20Poly1305Cipher.Encrypt", "", err)
	}

	ciphertext = c.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

func (c *ChaCha20Poly1305Cipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, domain.NewError(domain.KindAlgorithmSymmetric, "ChaCha20Poly1305Cipher.Decrypt", "", domain.ErrDecryptionFailed)
	}
	return plaintext, nil
}

func (c *ChaCha20Poly1305Cipher) NonceSize() int {
	return c.aead.NonceSize()
}

// NewAEAD builds the AEAD implementation named by alg.
func NewAEAD(alg domain.Algorithm, key []byte) (AEAD, error) {
	switch alg {
	case domain.AESGCM, "":
		return NewAESGCM(key)
	case domain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, domain.NewError(domain.KindConfiguration, "NewAEAD", "", domain.ErrInvalidConfig)
	}
}
