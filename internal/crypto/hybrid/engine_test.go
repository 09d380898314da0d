package hybrid

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/primitives"
)

func generatePair(t *testing.T, preset domain.Preset) (pub, sec []byte) {
	t.Helper()
	scheme, err := primitives.SchemeFor(preset)
	require.NoError(t, err)
	pub, sec, err = scheme.Generate()
	require.NoError(t, err)
	return pub, sec
}

// S1 — round-trip Normal preset.
func TestEncryptDecryptRoundTripNormal(t *testing.T) {
	pub, sec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	value := map[string]any{"user": "alice", "balance": float64(1000)}

	envelope, err := engine.Encrypt(ctx, value, pub, domain.PresetNormal)
	require.NoError(t, err)

	got, err := engine.Decrypt(ctx, envelope, sec)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestEncryptDecryptRoundTripHighSecurity(t *testing.T) {
	pub, sec := generatePair(t, domain.PresetHighSecurity)
	engine := New(nil)
	ctx := context.Background()

	value := []any{"a", "b", float64(3)}

	envelope, err := engine.Encrypt(ctx, value, pub, domain.PresetHighSecurity)
	require.NoError(t, err)

	got, err := engine.Decrypt(ctx, envelope, sec)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestEncryptNullAndEmptyMap(t *testing.T) {
	pub, sec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	for _, v := range []any{nil, map[string]any{}} {
		envelope, err := engine.Encrypt(ctx, v, pub, domain.PresetNormal)
		require.NoError(t, err)
		got, err := engine.Decrypt(ctx, envelope, sec)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

// Invariant 2: envelope byte lengths match the preset table.
func TestEnvelopeByteLengths(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	envelope, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetNormal)
	require.NoError(t, err)

	params, err := domain.ParamsFor(domain.PresetNormal)
	require.NoError(t, err)

	ct, err := decodeField("", "", envelope.CipherText)
	require.NoError(t, err)
	assert.Equal(t, params.KEMCiphertextSize, len(ct))

	nonce, err := decodeField("", "", envelope.Nonce)
	require.NoError(t, err)
	assert.Equal(t, domain.NonceSize, len(nonce))
}

// Invariant 3: two encryptions of the same value differ.
func TestTwoEncryptionsProduceDifferentEnvelopes(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	value := map[string]any{"same": "value"}
	e1, err := engine.Encrypt(ctx, value, pub, domain.PresetNormal)
	require.NoError(t, err)
	e2, err := engine.Encrypt(ctx, value, pub, domain.PresetNormal)
	require.NoError(t, err)

	assert.NotEqual(t, e1.CipherText, e2.CipherText)
	assert.NotEqual(t, e1.Nonce, e2.Nonce)
	assert.NotEqual(t, e1.EncryptedContent, e2.EncryptedContent)
}

// Invariant 4: decrypting with the wrong secret key fails AlgorithmSymmetric.
func TestDecryptWithWrongSecretKeyFails(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetNormal)
	_, wrongSec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	envelope, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetNormal)
	require.NoError(t, err)

	_, err = engine.Decrypt(ctx, envelope, wrongSec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

// S2 — wrong preset key: HighSecurity envelope decrypted with a Normal-length key.
func TestDecryptWrongPresetSecretKeyLength(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetHighSecurity)
	_, normalSec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	envelope, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetHighSecurity)
	require.NoError(t, err)

	_, err = engine.Decrypt(ctx, envelope, normalSec)
	require.Error(t, err)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindAlgorithmAsymmetric, de.Kind)
}

// Invariant 5 / S5 — single-bit flip in any field fails AlgorithmSymmetric or validation.
func TestTamperedEnvelopeFieldsFail(t *testing.T) {
	pub, sec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	base, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetNormal)
	require.NoError(t, err)

	flipBit := func(s string) string {
		b, err := decodeField("", "", s)
		require.NoError(t, err)
		b[len(b)/2] ^= 1
		return base64.StdEncoding.EncodeToString(b)
	}

	t.Run("encryptedContent", func(t *testing.T) {
		e := base
		e.EncryptedContent = flipBit(e.EncryptedContent)
		_, err := engine.Decrypt(ctx, e, sec)
		assert.Error(t, err)
	})

	t.Run("cipherText", func(t *testing.T) {
		e := base
		e.CipherText = flipBit(e.CipherText)
		_, err := engine.Decrypt(ctx, e, sec)
		assert.Error(t, err)
	})

	t.Run("nonce", func(t *testing.T) {
		e := base
		e.Nonce = flipBit(e.Nonce)
		_, err := engine.Decrypt(ctx, e, sec)
		assert.Error(t, err)
	})
}

func TestDecryptRejectsMalformedEnvelope(t *testing.T) {
	_, sec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	_, err := engine.Decrypt(ctx, domain.EncryptedEnvelope{Preset: domain.PresetNormal, CipherText: "not-base64!!"}, sec)
	assert.Error(t, err)

	_, err = engine.Decrypt(ctx, domain.EncryptedEnvelope{Preset: "bogus"}, sec)
	assert.Error(t, err)
}

func TestDecryptWithGracePeriodTriesInOrder(t *testing.T) {
	pub, sec := generatePair(t, domain.PresetNormal)
	_, oldSec := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	envelope, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetNormal)
	require.NoError(t, err)

	value, err := engine.DecryptWithGracePeriod(ctx, envelope, [][]byte{oldSec, sec})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1)}, value)
}

func TestDecryptWithGracePeriodFailsWhenAllFail(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetNormal)
	_, wrong1 := generatePair(t, domain.PresetNormal)
	_, wrong2 := generatePair(t, domain.PresetNormal)
	engine := New(nil)
	ctx := context.Background()

	envelope, err := engine.Encrypt(ctx, map[string]any{"x": float64(1)}, pub, domain.PresetNormal)
	require.NoError(t, err)

	_, err = engine.DecryptWithGracePeriod(ctx, envelope, [][]byte{wrong1, wrong2})
	assert.Error(t, err)
}

func TestDecryptWithGracePeriodRejectsEmptyKeyList(t *testing.T) {
	engine := New(nil)
	_, err := engine.DecryptWithGracePeriod(context.Background(), domain.EncryptedEnvelope{Preset: domain.PresetNormal}, nil)
	assert.Error(t, err)
}

func TestEncryptRejectsWrongPublicKeyLength(t *testing.T) {
	pub, _ := generatePair(t, domain.PresetNormal)
	engine := New(nil)

	_, err := engine.Encrypt(context.Background(), map[string]any{"x": float64(1)}, pub[:len(pub)-1], domain.PresetNormal)
	require.Error(t, err)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindAlgorithmAsymmetric, de.Kind)
}
