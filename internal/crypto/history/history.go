// Package history maintains the append-only rotation history log, caching
// it in memory but always reconciling against the store's LastUpdated so a
// history written out of band is never missed.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/storage"
)

// History wraps a storage.HistoryStore with an in-memory cache so repeated
// reads (status checks, next-version lookups) don't hit disk every time.
type History struct {
	store storage.HistoryStore

	mu    sync.Mutex
	cache *domain.RotationHistory
}

// New creates a History backed by store. The cache is empty until the
// first Load or Update call.
func New(store storage.HistoryStore) *History {
	return &History{store: store}
}

// Load returns the rotation history, populating the cache from store on
// first use.
func (h *History) Load(ctx context.Context) (*domain.RotationHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

// loadLocked returns the cache, but first checks the store for a history
// whose LastUpdated is newer than the cache's — a history written out of
// band (another process, a restored backup) must win over a stale cache.
func (h *History) loadLocked(ctx context.Context) (*domain.RotationHistory, error) {
	persisted, ok, err := h.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if !ok {
		if h.cache == nil {
			now := timeNow()
			h.cache = &domain.RotationHistory{CreatedAt: now, LastUpdated: now}
		}
		return h.cache, nil
	}

	if h.cache == nil || persisted.LastUpdated.After(h.cache.LastUpdated) {
		h.cache = persisted
	}
	return h.cache, nil
}

// NextVersion returns the version number the next generated key pair
// should carry.
func (h *History) NextVersion(ctx context.Context) (int, error) {
	hist, err := h.Load(ctx)
	if err != nil {
		return 0, err
	}
	return hist.NextVersion(), nil
}

// Append records a newly generated key pair's lifecycle facts and persists
// the updated history, invalidating nothing: the cache is updated in
// place so the next Load sees it without a round trip to the store.
func (h *History) Append(ctx context.Context, kp *domain.KeyPair, reason domain.RotationReason, rotatedAt time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist, err := h.loadLocked(ctx)
	if err != nil {
		return err
	}

	updated := &domain.RotationHistory{
		TotalRotations: hist.TotalRotations + 1,
		Entries: append(append([]domain.RotationHistoryEntry(nil), hist.Entries...), domain.RotationHistoryEntry{
			Version:   kp.Metadata.Version,
			CreatedAt: kp.Metadata.CreatedAt,
			ExpiresAt: kp.Metadata.ExpiresAt,
			Preset:    kp.Metadata.Preset,
			RotatedAt: rotatedAt,
			Reason:    reason,
		}),
		CreatedAt:   hist.CreatedAt,
		LastUpdated: rotatedAt,
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = rotatedAt
	}

	if err := h.store.Save(ctx, updated); err != nil {
		return err
	}
	h.cache = updated
	return nil
}

func timeNow() time.Time {
	return time.Now()
}
