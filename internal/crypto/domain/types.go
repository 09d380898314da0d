package domain

import "time"

// Metadata describes a KeyPair without exposing its key material.
type Metadata struct {
	Preset    Preset    `json:"preset"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// KeyPair is an ML-KEM key pair owned by the key manager. SecretKey is
// zeroized in place on retirement; callers that need it past that point
// must take their own copy.
type KeyPair struct {
	PublicKey []byte
	SecretKey []byte
	Metadata  Metadata
}

// Zeroize overwrites the secret key bytes in place. Safe to call on a nil
// receiver or a KeyPair whose SecretKey is already nil.
func (k *KeyPair) Zeroize() {
	if k == nil {
		return
	}
	Zero(k.SecretKey)
}

// Clone returns a deep copy of k so the key manager can hand out a pair
// without letting a caller's later Zeroize reach internal state.
func (k *KeyPair) Clone() *KeyPair {
	if k == nil {
		return nil
	}
	clone := &KeyPair{Metadata: k.Metadata}
	if k.PublicKey != nil {
		clone.PublicKey = append([]byte(nil), k.PublicKey...)
	}
	if k.SecretKey != nil {
		clone.SecretKey = append([]byte(nil), k.SecretKey...)
	}
	return clone
}

// EncryptedEnvelope is the self-describing wire format produced by Encrypt
// and consumed by Decrypt. Preset is the only algorithm identifier it
// carries; every other field's length is implied by it.
type EncryptedEnvelope struct {
	Preset           Preset `json:"preset"`
	EncryptedContent string `json:"encryptedContent"`
	CipherText       string `json:"cipherText"`
	Nonce            string `json:"nonce"`
}

// RotationState is in-memory, non-persistent bookkeeping for the grace
// window around the most recent rotation.
type RotationState struct {
	InFlight          bool
	PreviousKeyPair   *KeyPair
	RotationStartedAt time.Time
}

// RotationReason names why a key pair was created.
type RotationReason string

const (
	ReasonInitial   RotationReason = "initial"
	ReasonScheduled RotationReason = "scheduled"
	ReasonManual    RotationReason = "manual"
)

// RotationHistoryEntry records one generated key pair's lifecycle facts.
type RotationHistoryEntry struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Preset    Preset         `json:"preset"`
	RotatedAt time.Time      `json:"rotatedAt"`
	Reason    RotationReason `json:"reason"`
}

// RotationHistory is the append-only persisted rotation log.
type RotationHistory struct {
	TotalRotations int                    `json:"totalRotations"`
	Entries        []RotationHistoryEntry `json:"rotations"`
	CreatedAt      time.Time              `json:"createdAt"`
	LastUpdated    time.Time              `json:"lastUpdated"`
}

// NextVersion returns the next monotonic version number: one past the
// highest version recorded, or 1 if the history is empty.
func (h *RotationHistory) NextVersion() int {
	max := 0
	for _, e := range h.Entries {
		if e.Version > max {
			max = e.Version
		}
	}
	return max + 1
}

// KeyManagerConfig holds the core, transport-independent configuration the
// key manager needs. Ambient fields (logging, metrics, KMS wrapping) live
// alongside this in the manager package's Config, which embeds it.
type KeyManagerConfig struct {
	// Preset selects the default KEM/AEAD parameter bundle for newly
	// generated key pairs.
	Preset Preset

	// CertPath is the directory persisted key material lives under.
	CertPath string

	// KeyExpiryMonths is how long a generated key pair remains valid.
	KeyExpiryMonths int

	// AutoGenerate, if false, makes a missing on-disk key pair a fatal
	// initialization error instead of generating one.
	AutoGenerate bool

	// EnableFileBackup controls whether keys persist to disk at all. When
	// false, storage is an in-memory, process-lifetime-only store.
	EnableFileBackup bool

	// RotationGracePeriodMinutes is how long a retired key pair remains
	// usable for decryption after a rotation.
	RotationGracePeriodMinutes int

	// AllowAnyPath disables the certPath-inside-working-directory guard.
	// Kept as defense-in-depth by default; see design notes on why this
	// exists as an override rather than always-on.
	AllowAnyPath bool
}

// DefaultKeyManagerConfig returns the configuration defaults named in §3.
func DefaultKeyManagerConfig() KeyManagerConfig {
	return KeyManagerConfig{
		Preset:                     PresetNormal,
		CertPath:                   "./config/certs/keys",
		KeyExpiryMonths:            1,
		AutoGenerate:               true,
		EnableFileBackup:           true,
		RotationGracePeriodMinutes: 15,
	}
}

// Validate checks the structural invariants on c that don't require
// touching the filesystem.
func (c KeyManagerConfig) Validate() error {
	if !ValidPreset(c.Preset) {
		return NewError(KindConfiguration, "KeyManagerConfig.Validate", c.Preset, ErrUnknownPreset)
	}
	if c.KeyExpiryMonths <= 0 {
		return NewError(KindConfiguration, "KeyManagerConfig.Validate", c.Preset, ErrInvalidConfig)
	}
	if c.RotationGracePeriodMinutes < 0 {
		return NewError(KindConfiguration, "KeyManagerConfig.Validate", c.Preset, ErrInvalidConfig)
	}
	if c.CertPath == "" {
		return NewError(KindConfiguration, "KeyManagerConfig.Validate", c.Preset, ErrInvalidConfig)
	}
	return nil
}
