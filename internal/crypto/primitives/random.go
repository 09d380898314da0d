package primitives

import (
	"crypto/rand"
	"io"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// randReader returns the cryptographically secure randomness source every
// primitive in this package draws from.
func randReader() io.Reader {
	return rand.Reader
}

// randomFill fills b with cryptographically secure random bytes.
func randomFill(b []byte) error {
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return domain.NewError(domain.KindAlgorithmAsymmetric, "randomFill", "", err)
	}
	return nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := randomFill(b); err != nil {
		return nil, err
	}
	return b, nil
}
