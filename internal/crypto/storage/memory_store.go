package storage

import (
	"context"
	"sync"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// MemoryStore is a Store that keeps the current key pair in process memory
// only. It is selected when file backup is disabled; every rotation loses
// its predecessor once the process exits, so BackupExpired and
// CleanupOldBackups are no-ops rather than errors.
type MemoryStore struct {
	mu      sync.RWMutex
	current *domain.KeyPair
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) EnsureDirectory() error { return nil }

func (m *MemoryStore) Load(ctx context.Context) (*domain.KeyPair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, false, nil
	}
	return m.current.Clone(), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, keyPair *domain.KeyPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = keyPair.Clone()
	return nil
}

func (m *MemoryStore) BackupExpired(ctx context.Context, previous *domain.KeyPair) error {
	return nil
}

func (m *MemoryStore) CleanupOldBackups(ctx context.Context) error {
	return nil
}

// MemoryHistoryStore is a HistoryStore backed by an in-process value,
// selected alongside MemoryStore when file backup is disabled.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	history *domain.RotationHistory
}

// NewMemoryHistoryStore creates an empty in-memory HistoryStore.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

func (m *MemoryHistoryStore) Load(ctx context.Context) (*domain.RotationHistory, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.history == nil {
		return nil, false, nil
	}
	cp := *m.history
	cp.Entries = append([]domain.RotationHistoryEntry(nil), m.history.Entries...)
	return &cp, true, nil
}

func (m *MemoryHistoryStore) Save(ctx context.Context, history *domain.RotationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *history
	cp.Entries = append([]domain.RotationHistoryEntry(nil), history.Entries...)
	m.history = &cp
	return nil
}
