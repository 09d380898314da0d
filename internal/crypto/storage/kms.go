package storage

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers so a keyURI scheme picks the right
	// one at runtime without the caller importing it directly.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// KMSSecretKeeper wraps secret.key at rest through a gocloud.dev/secrets
// Keeper, opened once from a key URI such as hashivault://my-key or
// awskms://alias/my-key. It implements FileStore's SecretKeeper interface.
type KMSSecretKeeper struct {
	keyURI string
	keeper *secrets.Keeper
}

// OpenKMSSecretKeeper opens the keeper for keyURI eagerly, so a
// misconfigured URI fails at startup rather than at the first rotation.
func OpenKMSSecretKeeper(ctx context.Context, keyURI string) (*KMSSecretKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "OpenKMSSecretKeeper", "", fmt.Errorf("opening KMS keeper: %w", err))
	}
	return &KMSSecretKeeper{keyURI: keyURI, keeper: keeper}, nil
}

// Close releases the underlying Keeper's connection.
func (k *KMSSecretKeeper) Close() error {
	return k.keeper.Close()
}

// Wrap encrypts plaintext through the KMS keeper and returns the keeper's
// key URI alongside the ciphertext. FileStore records a masked form of that
// URI in the secret.key.kms marker; Unwrap does not use it to pick a key.
func (k *KMSSecretKeeper) Wrap(ctx context.Context, plaintext []byte) ([]byte, string, error) {
	ciphertext, err := k.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, "", domain.NewError(domain.KindKeyManager, "KMSSecretKeeper.Wrap", "", err)
	}
	return ciphertext, k.keyURI, nil
}

// Unwrap decrypts wrapped back to the plaintext secret key. uri is
// currently informational only: a single KMSSecretKeeper always decrypts
// with the keeper it was opened with.
func (k *KMSSecretKeeper) Unwrap(ctx context.Context, wrapped []byte, uri string) ([]byte, error) {
	plaintext, err := k.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, domain.NewError(domain.KindKeyManager, "KMSSecretKeeper.Unwrap", "", err)
	}
	return plaintext, nil
}
