// Package storage persists key pairs and rotation history to disk, or to
// memory when file backup is disabled. Writes are atomic (temp file plus
// rename); the secret key file is permission-restricted on POSIX systems.
package storage

import (
	"context"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// Store persists the current key pair and its metadata.
type Store interface {
	// EnsureDirectory creates and permission-restricts the storage
	// location if applicable. No-op for in-memory stores.
	EnsureDirectory() error

	// Load returns the persisted key pair, or ok=false if none exists yet.
	// Partial/corrupt on-disk state is an error, never a silent "none".
	Load(ctx context.Context) (keyPair *domain.KeyPair, ok bool, err error)

	// Save atomically persists keyPair as the current key pair.
	Save(ctx context.Context, keyPair *domain.KeyPair) error

	// BackupExpired copies previous's key material aside before it is
	// overwritten by a newly rotated-in pair.
	BackupExpired(ctx context.Context, previous *domain.KeyPair) error

	// CleanupOldBackups removes backups older than the retention window.
	CleanupOldBackups(ctx context.Context) error
}

// HistoryStore persists the rotation history log.
type HistoryStore interface {
	Load(ctx context.Context) (*domain.RotationHistory, bool, error)
	Save(ctx context.Context, history *domain.RotationHistory) error
}
