package primitives

import (
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// sessionKeyInfo is the HKDF info parameter fixed by the design (§4.1); it
// binds derived keys to this protocol version so a future wire format
// cannot silently reuse the same derivation.
const sessionKeyInfo = "HybridEncryption-v2.0"

// DeriveSessionKey derives a 32-byte AES-256 key from a KEM shared secret.
// The salt is deterministic — H(ikm || "salt") truncated to saltLen — so
// the decrypter can reconstruct it without the envelope carrying a salt
// field (see design notes on why a random salt would add nothing here).
func DeriveSessionKey(hashNew func() hash.Hash, ikm []byte, saltLen int) ([]byte, error) {
	salt := deterministicSalt(hashNew, ikm, saltLen)

	reader := hkdf.New(hashNew, ikm, salt, []byte(sessionKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, domain.NewError(domain.KindKeyDerivation, "DeriveSessionKey", "", domain.ErrKeyDerivationFailed)
	}
	return key, nil
}

// deterministicSalt computes H(ikm || "salt") and truncates to saltLen.
func deterministicSalt(hashNew func() hash.Hash, ikm []byte, saltLen int) []byte {
	h := hashNew()
	h.Write(ikm)
	h.Write([]byte("salt"))
	sum := h.Sum(nil)
	if saltLen > len(sum) {
		saltLen = len(sum)
	}
	return sum[:saltLen]
}
