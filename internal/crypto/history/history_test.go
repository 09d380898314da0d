package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/storage"
)

func sampleKeyPair(version int) *domain.KeyPair {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.KeyPair{
		PublicKey: []byte("pub"),
		SecretKey: []byte("sec"),
		Metadata: domain.Metadata{
			Preset:    domain.PresetNormal,
			Version:   version,
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 1, 0),
		},
	}
}

func TestNextVersionStartsAtOneWhenEmpty(t *testing.T) {
	h := New(storage.NewMemoryHistoryStore())
	v, err := h.NextVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAppendThenNextVersionIncrements(t *testing.T) {
	h := New(storage.NewMemoryHistoryStore())
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, sampleKeyPair(1), domain.ReasonInitial, time.Now()))
	v, err := h.NextVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	require.NoError(t, h.Append(ctx, sampleKeyPair(2), domain.ReasonScheduled, time.Now()))
	v, err = h.NextVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestAppendPersistsToUnderlyingStore(t *testing.T) {
	store := storage.NewMemoryHistoryStore()
	h := New(store)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, sampleKeyPair(1), domain.ReasonManual, time.Now()))

	persisted, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, persisted.Entries, 1)
	assert.Equal(t, domain.ReasonManual, persisted.Entries[0].Reason)
}

func TestLoadPopulatesCacheFromExistingStore(t *testing.T) {
	store := storage.NewMemoryHistoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.RotationHistory{
		TotalRotations: 2,
		Entries: []domain.RotationHistoryEntry{
			{Version: 1, Reason: domain.ReasonInitial},
			{Version: 2, Reason: domain.ReasonScheduled},
		},
	}))

	h := New(store)
	hist, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, hist.TotalRotations)

	v, err := h.NextVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestLoadBypassesCacheWhenStoreIsNewer(t *testing.T) {
	store := storage.NewMemoryHistoryStore()
	ctx := context.Background()
	h := New(store)

	require.NoError(t, h.Append(ctx, sampleKeyPair(1), domain.ReasonInitial, time.Now()))

	// Simulate an out-of-band writer (another process, a restored backup)
	// persisting a newer history directly to the store, bypassing h.
	newer := time.Now().Add(time.Hour)
	require.NoError(t, store.Save(ctx, &domain.RotationHistory{
		TotalRotations: 5,
		Entries: []domain.RotationHistoryEntry{
			{Version: 1, Reason: domain.ReasonInitial},
			{Version: 2, Reason: domain.ReasonScheduled},
		},
		LastUpdated: newer,
	}))

	hist, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, hist.TotalRotations)
}
