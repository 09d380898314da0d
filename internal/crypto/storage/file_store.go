package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

const (
	publicKeyFile = "public.key"
	secretKeyFile = "secret.key"
	metadataFile  = "metadata.json"
	backupDir     = "backup"

	dirPerm    = 0o700
	secretPerm = 0o600
	publicPerm = 0o644

	backupRetention = 3 * 30 * 24 * time.Hour // ~3 months
)

// FileStore persists key material under certPath using write-to-temp-then-
// rename for atomicity. When keeper is non-nil, secret.key is wrapped
// through it before being written and unwrapped on load.
type FileStore struct {
	certPath    string
	allowAnyPath bool
	keeper      SecretKeeper
}

// SecretKeeper wraps/unwraps the persisted secret key bytes at rest. A nil
// SecretKeeper means secret.key holds plaintext bytes, matching the base
// on-disk format.
type SecretKeeper interface {
	Wrap(ctx context.Context, plaintext []byte) (wrapped []byte, uri string, err error)
	Unwrap(ctx context.Context, wrapped []byte, uri string) (plaintext []byte, err error)
}

// NewFileStore creates a FileStore rooted at certPath. allowAnyPath disables
// the working-directory containment guard (§9 design notes: kept as
// defense-in-depth by default, overridable in production contexts).
func NewFileStore(certPath string, allowAnyPath bool, keeper SecretKeeper) *FileStore {
	return &FileStore{certPath: certPath, allowAnyPath: allowAnyPath, keeper: keeper}
}

// ResolvedPath returns the absolute certPath EnsureDirectory resolved to.
// Call after EnsureDirectory; a HistoryStore sharing the same directory
// needs this rather than the possibly-relative path NewFileStore was given.
func (f *FileStore) ResolvedPath() string {
	return f.certPath
}

// EnsureDirectory creates certPath (and its backup subdirectory) if absent,
// rejecting any path that escapes the process working directory unless
// allowAnyPath is set.
func (f *FileStore) EnsureDirectory() error {
	abs, err := filepath.Abs(f.certPath)
	if err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.EnsureDirectory", "", err)
	}

	if !f.allowAnyPath {
		wd, err := os.Getwd()
		if err != nil {
			return domain.NewError(domain.KindKeyManager, "FileStore.EnsureDirectory", "", err)
		}
		rel, err := filepath.Rel(wd, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return domain.NewError(domain.KindConfiguration, "FileStore.EnsureDirectory", "", domain.ErrInvalidConfig)
		}
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.EnsureDirectory", "", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, backupDir), dirPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.EnsureDirectory", "", err)
	}
	f.certPath = abs
	return nil
}

type onDiskMetadata struct {
	Preset    domain.Preset `json:"preset"`
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Load reads public.key, secret.key, and metadata.json. Any one of the
// three missing (with the others also missing) reports ok=false; a partial
// set present is corrupt on-disk state and returns an error rather than
// silently treating it as absent.
func (f *FileStore) Load(ctx context.Context) (*domain.KeyPair, bool, error) {
	pubPath := filepath.Join(f.certPath, publicKeyFile)
	secPath := filepath.Join(f.certPath, secretKeyFile)
	metaPath := filepath.Join(f.certPath, metadataFile)

	pubExists := fileExists(pubPath)
	secExists := fileExists(secPath)
	metaExists := fileExists(metaPath)

	if !pubExists && !secExists && !metaExists {
		return nil, false, nil
	}
	if !pubExists || !secExists || !metaExists {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileStore.Load", "", domain.ErrCorruptKeyState)
	}

	pub, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileStore.Load", "", err)
	}

	secRaw, err := os.ReadFile(secPath)
	if err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileStore.Load", "", err)
	}

	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileStore.Load", "", err)
	}
	var meta onDiskMetadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false, domain.NewError(domain.KindKeyManager, "FileStore.Load", "", domain.ErrCorruptKeyState)
	}

	sec, err := f.unwrapSecret(ctx, secRaw)
	if err != nil {
		return nil, false, err
	}

	return &domain.KeyPair{
		PublicKey: pub,
		SecretKey: sec,
		Metadata: domain.Metadata{
			Preset:    meta.Preset,
			Version:   meta.Version,
			CreatedAt: meta.CreatedAt,
			ExpiresAt: meta.ExpiresAt,
		},
	}, true, nil
}

// Save atomically writes keyPair's three files via temp-then-rename.
func (f *FileStore) Save(ctx context.Context, keyPair *domain.KeyPair) error {
	secOnDisk, err := f.wrapSecret(ctx, keyPair.SecretKey)
	if err != nil {
		return err
	}

	if err := atomicWrite(filepath.Join(f.certPath, publicKeyFile), keyPair.PublicKey, publicPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.Save", "", err)
	}
	if err := atomicWrite(filepath.Join(f.certPath, secretKeyFile), secOnDisk, secretPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.Save", "", err)
	}

	meta := onDiskMetadata{
		Preset:    keyPair.Metadata.Preset,
		Version:   keyPair.Metadata.Version,
		CreatedAt: keyPair.Metadata.CreatedAt,
		ExpiresAt: keyPair.Metadata.ExpiresAt,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.Save", "", err)
	}
	if err := atomicWrite(filepath.Join(f.certPath, metadataFile), metaBytes, publicPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.Save", "", err)
	}
	return nil
}

// BackupExpired copies previous's current on-disk files into backup/,
// tagged with the retiring month and version, before Save overwrites them.
func (f *FileStore) BackupExpired(ctx context.Context, previous *domain.KeyPair) error {
	if previous == nil {
		return nil
	}
	tag := fmt.Sprintf("expired-%s-v%d", time.Now().Format("2006-01"), previous.Metadata.Version)
	dir := filepath.Join(f.certPath, backupDir, tag)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return domain.NewError(domain.KindKeyManager, "FileStore.BackupExpired", "", err)
	}

	for _, name := range []string{publicKeyFile, secretKeyFile, metadataFile} {
		src := filepath.Join(f.certPath, name)
		if !fileExists(src) {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return domain.NewError(domain.KindKeyManager, "FileStore.BackupExpired", "", err)
		}
		perm := os.FileMode(publicPerm)
		if name == secretKeyFile {
			perm = secretPerm
		}
		if err := atomicWrite(filepath.Join(dir, name), data, perm); err != nil {
			return domain.NewError(domain.KindKeyManager, "FileStore.BackupExpired", "", err)
		}
	}
	return nil
}

// CleanupOldBackups removes backup/<tag> directories older than the
// retention window, inferred from the directory's modification time.
func (f *FileStore) CleanupOldBackups(ctx context.Context) error {
	dir := filepath.Join(f.certPath, backupDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return domain.NewError(domain.KindKeyManager, "FileStore.CleanupOldBackups", "", err)
	}

	cutoff := time.Now().Add(-backupRetention)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

func (f *FileStore) wrapSecret(ctx context.Context, plaintext []byte) ([]byte, error) {
	if f.keeper == nil {
		return plaintext, nil
	}
	wrapped, uri, err := f.keeper.Wrap(ctx, plaintext)
	if err != nil {
		return nil, domain.NewError(domain.KindKeyManager, "FileStore.wrapSecret", "", err)
	}
	if err := os.WriteFile(filepath.Join(f.certPath, secretKeyFile+".kms"), []byte(maskKeyURI(uri)), publicPerm); err != nil {
		return nil, domain.NewError(domain.KindKeyManager, "FileStore.wrapSecret", "", err)
	}
	return wrapped, nil
}

func (f *FileStore) unwrapSecret(ctx context.Context, stored []byte) ([]byte, error) {
	if f.keeper == nil {
		return stored, nil
	}
	markerPath := filepath.Join(f.certPath, secretKeyFile+".kms")
	marker, err := os.ReadFile(markerPath)
	if err != nil {
		return nil, domain.NewError(domain.KindKeyManager, "FileStore.unwrapSecret", "", err)
	}
	plaintext, err := f.keeper.Unwrap(ctx, stored, string(marker))
	if err != nil {
		return nil, domain.NewError(domain.KindKeyManager, "FileStore.unwrapSecret", "", err)
	}
	return plaintext, nil
}

// maskKeyURI redacts the path/query portion of a KMS key URI before it is
// written to disk or logged, keeping only the scheme and host for
// diagnostics.
func maskKeyURI(uri string) string {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return "***"
	}
	scheme := uri[:idx]
	rest := uri[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return scheme + "://" + rest[:slash] + "/***"
	}
	return scheme + "://***"
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
