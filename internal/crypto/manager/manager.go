// Package manager is the process-wide key manager facade: it owns
// initialization, key accessors, manual rotation, status, and health
// checks on top of storage, lifecycle, history, and rotation.
package manager

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/history"
	"github.com/allisson/hybridkem/internal/crypto/lifecycle"
	"github.com/allisson/hybridkem/internal/crypto/rotation"
	"github.com/allisson/hybridkem/internal/crypto/storage"
	"github.com/allisson/hybridkem/internal/metrics"
)

// Config configures a Manager. It embeds the core, transport-independent
// domain.KeyManagerConfig and adds ambient fields the manager's callers
// (not the core crypto packages) care about.
type Config struct {
	domain.KeyManagerConfig

	Logger  *slog.Logger
	Metrics metrics.KeyManagerMetrics

	// KMSKeeper, if non-nil, wraps secret.key at rest. Construct it with
	// storage.OpenKMSSecretKeeper before building Config.
	KMSKeeper storage.SecretKeeper
}

// Status reports the manager's current state for observability.
type Status struct {
	HasKeys           bool
	KeysValid         bool
	KeysExpired       bool
	IsRotating        bool
	CurrentKeyVersion int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	CertPath          string
	LastRotation      time.Time
}

// HealthIssue names a specific reason HealthCheck can report, so callers
// branch on it rather than string-matching.
type HealthIssue string

const (
	IssueNotInitialized  HealthIssue = "not_initialized"
	IssueNoKeys          HealthIssue = "no_keys"
	IssueValidationFailed HealthIssue = "validation_failed"
	IssueRotationNeeded  HealthIssue = "rotation_needed"
)

// Health is the result of HealthCheck.
type Health struct {
	Healthy bool
	Issues  []HealthIssue
}

// Manager is the process-wide key manager singleton. Every public method
// is individually atomic with respect to the others via mu.
type Manager struct {
	cfg Config

	store        storage.Store
	historyStore storage.HistoryStore
	history      *history.History
	orchestrator *rotation.Orchestrator
	logger       *slog.Logger
	metrics      metrics.KeyManagerMetrics

	mu          sync.Mutex
	initialized bool
	current     *domain.KeyPair
	lastRotation time.Time
}

var (
	instanceMu sync.Mutex
	instance   *Manager
)

// GetInstance lazily constructs the process-wide Manager on first call.
// Subsequent calls ignore cfg and return the existing instance.
func GetInstance(cfg *Config) (*Manager, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}
	if cfg == nil {
		return nil, domain.NewError(domain.KindConfiguration, "GetInstance", "", domain.ErrInvalidConfig)
	}

	m, err := newManager(*cfg)
	if err != nil {
		return nil, err
	}
	instance = m
	return instance, nil
}

// ResetInstance zeroizes all held key material, cancels pending cleanup
// timers, and clears the singleton. Intended for tests or controlled
// teardown.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return
	}
	instance.reset()
	instance = nil
}

func newManager(cfg Config) (*Manager, error) {
	if err := cfg.KeyManagerConfig.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store storage.Store
	var historyStore storage.HistoryStore
	if cfg.EnableFileBackup {
		fs := storage.NewFileStore(cfg.CertPath, cfg.AllowAnyPath, cfg.KMSKeeper)
		if err := fs.EnsureDirectory(); err != nil {
			return nil, err
		}
		store = fs
		historyStore = storage.NewFileHistoryStore(fs.ResolvedPath())
	} else {
		store = storage.NewMemoryStore()
		historyStore = storage.NewMemoryHistoryStore()
	}

	h := history.New(historyStore)

	m := &Manager{
		cfg:          cfg,
		store:        store,
		historyStore: historyStore,
		history:      h,
		logger:       logger,
		metrics:      cfg.Metrics,
	}

	m.orchestrator = rotation.New(rotation.Config{
		Preset:       cfg.Preset,
		ExpiryMonths: cfg.KeyExpiryMonths,
		GracePeriod:  time.Duration(cfg.RotationGracePeriodMinutes) * time.Minute,
		Store:        store,
		History:      h,
		Logger:       logger,
		OnPublish: func(r rotation.Result) {
			m.mu.Lock()
			m.current = r.Current
			m.lastRotation = time.Now()
			m.mu.Unlock()
		},
	})

	if m.metrics != nil {
		if err := m.metrics.Bind(m); err != nil {
			return nil, domain.NewError(domain.KindKeyManager, "newManager", cfg.Preset, err)
		}
	}

	return m, nil
}

// Initialize ensures the cert directory exists, loads or generates the
// initial key pair, and marks the manager ready. Idempotent and safe under
// concurrent callers.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "Manager.Initialize"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if err := m.store.EnsureDirectory(); err != nil {
		return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
	}

	loaded, ok, err := m.store.Load(ctx)
	if err != nil {
		return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
	}

	if !ok {
		if !m.cfg.AutoGenerate {
			return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, domain.ErrNoKeys)
		}

		version, err := m.history.NextVersion(ctx)
		if err != nil {
			return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
		}

		now := time.Now()
		generated, err := lifecycle.Generate(m.cfg.Preset, version, m.cfg.KeyExpiryMonths, now)
		if err != nil {
			return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
		}
		if err := m.store.Save(ctx, generated); err != nil {
			return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
		}
		if err := m.history.Append(ctx, generated, domain.ReasonInitial, now); err != nil {
			return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
		}
		loaded = generated
	}

	if err := lifecycle.Validate(loaded); err != nil {
		return domain.NewError(domain.KindKeyManager, op, m.cfg.Preset, err)
	}

	m.current = loaded
	m.initialized = true
	return nil
}

// ensureValid triggers a rotation if the current key pair is missing or
// expired, then returns it.
func (m *Manager) ensureValid(ctx context.Context) (*domain.KeyPair, error) {
	m.mu.Lock()
	initialized := m.initialized
	current := m.current
	m.mu.Unlock()

	if !initialized {
		return nil, domain.NewError(domain.KindKeyManager, "Manager.ensureValid", m.cfg.Preset, domain.ErrNotInitialized)
	}

	if rotation.NeedsRotation(current, time.Now()) {
		return m.rotate(ctx, current, domain.ReasonScheduled)
	}
	return current, nil
}

func (m *Manager) rotate(ctx context.Context, current *domain.KeyPair, reason domain.RotationReason) (*domain.KeyPair, error) {
	start := time.Now()
	result, err := m.orchestrator.Rotate(ctx, current, reason)
	status := "success"
	if err != nil {
		status = "error"
	}
	if m.metrics != nil {
		m.metrics.RecordRotation(ctx, string(reason), status)
		m.metrics.RecordRotationDuration(ctx, time.Since(start).Seconds(), status)
	}
	if err != nil {
		return nil, err
	}
	return result.Current, nil
}

// GetKeyPair returns the current key pair, rotating first if it is expired.
func (m *Manager) GetKeyPair(ctx context.Context) (domain.KeyPair, error) {
	kp, err := m.ensureValid(ctx)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return *kp.Clone(), nil
}

// GetPublicKey returns the current public key.
func (m *Manager) GetPublicKey(ctx context.Context) ([]byte, error) {
	kp, err := m.ensureValid(ctx)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), kp.PublicKey...), nil
}

// GetPublicKeyBase64 returns the current public key, base64-encoded.
func (m *Manager) GetPublicKeyBase64(ctx context.Context) (string, error) {
	pub, err := m.GetPublicKey(ctx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// GetSecretKey returns the current secret key. Fails if the manager has no
// secret material, which should never happen post-initialization.
func (m *Manager) GetSecretKey(ctx context.Context) ([]byte, error) {
	kp, err := m.ensureValid(ctx)
	if err != nil {
		return nil, err
	}
	if len(kp.SecretKey) == 0 {
		return nil, domain.NewError(domain.KindKeyManager, "Manager.GetSecretKey", m.cfg.Preset, domain.ErrNoKeys)
	}
	return append([]byte(nil), kp.SecretKey...), nil
}

// GetSecretKeyBase64 returns the current secret key, base64-encoded.
func (m *Manager) GetSecretKeyBase64(ctx context.Context) (string, error) {
	sec, err := m.GetSecretKey(ctx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sec), nil
}

// GetDecryptionKeys returns [current] plus [previous] if still within the
// rotation grace period, in that order — the list grace-period decrypt
// tries.
func (m *Manager) GetDecryptionKeys(ctx context.Context) ([][]byte, error) {
	kp, err := m.ensureValid(ctx)
	if err != nil {
		return nil, err
	}

	keys := [][]byte{append([]byte(nil), kp.SecretKey...)}
	if state := m.orchestrator.State(); state.PreviousKeyPair != nil && m.orchestrator.InGracePeriod(time.Now()) {
		keys = append(keys, append([]byte(nil), state.PreviousKeyPair.SecretKey...))
	}
	return keys, nil
}

// RotateKeys manually triggers a rotation.
func (m *Manager) RotateKeys(ctx context.Context) (domain.KeyPair, error) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return domain.KeyPair{}, domain.NewError(domain.KindKeyManager, "Manager.RotateKeys", m.cfg.Preset, domain.ErrNotInitialized)
	}
	current := m.current
	m.mu.Unlock()

	kp, err := m.rotate(ctx, current, domain.ReasonManual)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return *kp.Clone(), nil
}

// GetStatus reports the manager's current state.
func (m *Manager) GetStatus(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized || m.current == nil {
		return Status{CertPath: m.cfg.CertPath, HasKeys: false}, nil
	}

	now := time.Now()
	err := lifecycle.Validate(m.current)
	return Status{
		HasKeys:           true,
		KeysValid:         err == nil,
		KeysExpired:       lifecycle.IsExpired(m.current, now),
		IsRotating:        m.orchestrator.State().InFlight,
		CurrentKeyVersion: m.current.Metadata.Version,
		CreatedAt:         m.current.Metadata.CreatedAt,
		ExpiresAt:         m.current.Metadata.ExpiresAt,
		CertPath:          m.cfg.CertPath,
		LastRotation:      m.lastRotation,
	}, nil
}

// HealthCheck reports whether the manager is in a usable state and why not
// if it isn't.
func (m *Manager) HealthCheck(ctx context.Context) Health {
	status, _ := m.GetStatus(ctx)

	var issues []HealthIssue
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()

	if !initialized {
		issues = append(issues, IssueNotInitialized)
	}
	if !status.HasKeys {
		issues = append(issues, IssueNoKeys)
	}
	if status.HasKeys && !status.KeysValid {
		issues = append(issues, IssueValidationFailed)
	}
	if status.HasKeys && status.KeysExpired {
		issues = append(issues, IssueRotationNeeded)
	}

	return Health{Healthy: len(issues) == 0, Issues: issues}
}

// CurrentKeyVersion implements metrics.StatusSource.
func (m *Manager) CurrentKeyVersion() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return int64(m.current.Metadata.Version)
}

// KeyAgeSeconds implements metrics.StatusSource.
func (m *Manager) KeyAgeSeconds() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return time.Since(m.current.Metadata.CreatedAt).Seconds()
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orchestrator.Stop()
	if m.current != nil {
		m.current.Zeroize()
	}
	m.current = nil
	m.initialized = false
}
