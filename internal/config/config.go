// Package config provides application configuration management through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/validation"
)

// Config holds the key manager's configuration, read from the environment.
type Config struct {
	// Preset selects the default KEM/AEAD parameter bundle for newly
	// generated key pairs.
	Preset domain.Preset

	// CertPath is the directory persisted key material lives under.
	CertPath string

	// KeyExpiryMonths is how long a generated key pair remains valid.
	KeyExpiryMonths int

	// AutoGenerate, if false, makes a missing on-disk key pair a fatal
	// initialization error instead of generating one.
	AutoGenerate bool

	// EnableFileBackup controls whether keys persist to disk at all.
	EnableFileBackup bool

	// RotationGracePeriodMinutes is how long a retired key pair remains
	// usable for decryption after a rotation.
	RotationGracePeriodMinutes int

	// AllowAnyPath disables the certPath-inside-working-directory guard.
	AllowAnyPath bool

	// KMSKeyURI, if set, wraps secret.key at rest through a
	// gocloud.dev/secrets keeper opened from this URI (e.g.
	// hashivault://my-key, awskms://alias/my-key, base64key://...).
	KMSKeyURI string

	// MetricsNamespace prefixes every metric this module registers.
	MetricsNamespace string

	// LogLevel controls the ambient slog handler's minimum level.
	LogLevel string
}

// KeyManagerConfig projects Config onto the subset domain.KeyManagerConfig
// validates structurally.
func (c *Config) KeyManagerConfig() domain.KeyManagerConfig {
	return domain.KeyManagerConfig{
		Preset:                     c.Preset,
		CertPath:                   c.CertPath,
		KeyExpiryMonths:            c.KeyExpiryMonths,
		AutoGenerate:               c.AutoGenerate,
		EnableFileBackup:           c.EnableFileBackup,
		RotationGracePeriodMinutes: c.RotationGracePeriodMinutes,
		AllowAnyPath:               c.AllowAnyPath,
	}
}

// Load loads configuration from environment variables.
// It first attempts to load a .env file by searching recursively from the current directory
// up to the root directory. If no .env file is found, it continues with existing environment variables.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		Preset:                     domain.Preset(env.GetString("KEY_MANAGER_PRESET", string(domain.PresetNormal))),
		CertPath:                   env.GetString("KEY_MANAGER_CERT_PATH", "./config/certs/keys"),
		KeyExpiryMonths:            env.GetInt("KEY_MANAGER_EXPIRY_MONTHS", 1),
		AutoGenerate:               env.GetBool("KEY_MANAGER_AUTO_GENERATE", true),
		EnableFileBackup:           env.GetBool("KEY_MANAGER_ENABLE_FILE_BACKUP", true),
		RotationGracePeriodMinutes: env.GetInt("KEY_MANAGER_ROTATION_GRACE_PERIOD_MINUTES", 15),
		AllowAnyPath:               env.GetBool("KEY_MANAGER_ALLOW_ANY_PATH", false),
		KMSKeyURI:                  env.GetString("KEY_MANAGER_KMS_KEY_URI", ""),
		MetricsNamespace:           env.GetString("METRICS_NAMESPACE", "hybridkem"),
		LogLevel:                   env.GetString("LOG_LEVEL", "info"),
	}
}

// Validate runs the field-level validation rules (preset name, cert path
// containment) that Load's env.GetString calls can't enforce on their own,
// ahead of domain.KeyManagerConfig.Validate's structural checks.
func (c *Config) Validate() error {
	if err := validation.Preset.Validate(string(c.Preset)); err != nil {
		return validation.WrapValidationError(err)
	}
	if !c.AllowAnyPath {
		if err := validation.CertPath.Validate(c.CertPath); err != nil {
			return validation.WrapValidationError(err)
		}
	}
	return nil
}

// GracePeriod converts RotationGracePeriodMinutes to a time.Duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.RotationGracePeriodMinutes) * time.Minute
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
