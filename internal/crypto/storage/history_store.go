package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

const historyFile = "rotation-history.json"

// FileHistoryStore persists the rotation history log as JSON under the same
// certPath a FileStore uses for key material.
type FileHistoryStore struct {
	certPath string
}

// NewFileHistoryStore creates a FileHistoryStore rooted at certPath. Call
// this with the same (already-resolved) path a FileStore.EnsureDirectory
// produced.
func NewFileHistoryStore(certPath string) *FileHistoryStore {
	return &FileHistoryStore{certPath: certPath}
}

func (s *FileHistoryStore) Load(ctx context.Context) (*domain.RotationHistory, bool, error) {
	path := filepath.Join(s.certPath, historyFile)
	if !fileExists(path) {
		return nil, false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileHistoryStore.Load", "", err)
	}

	var history domain.RotationHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileHistoryStore.Load", "", domain.ErrCorruptKeyState)
	}
	return &history, true, nil
}

func (s *FileHistoryStore) Save(ctx context.Context, history *domain.RotationHistory) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return domain.NewError(domain.KindKeyManager, "FileHistoryStore.Save", "", err)
	}
	if err := atomicWrite(filepath.Join(s.certPath, historyFile), data, publicPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileHistoryStore.Save", "", err)
	}
	return nil
}
