// Package validation provides custom validation rules for the application.
package validation

import (
	"path/filepath"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	apperrors "github.com/allisson/hybridkem/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Preset validates that a string names a known encryption preset.
var Preset = validation.NewStringRuleWithError(
	func(s string) bool {
		return domain.ValidPreset(domain.Preset(s))
	},
	validation.NewError("validation_preset", "must be a known preset (normal, high_security)"),
)

// CertPath validates that a configured key-storage directory does not
// escape the process working directory via "..", unless the caller has
// explicitly opted out (AllowAnyPath in KeyManagerConfig).
var CertPath = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_cert_path_type", "must be a string")
	}
	if s == "" {
		return validation.NewError("validation_cert_path_empty", "must not be blank")
	}

	wd, err := filepathAbs(".")
	if err != nil {
		return nil // cannot resolve working directory; defer to the storage layer
	}
	abs, err := filepathAbs(s)
	if err != nil {
		return validation.NewError("validation_cert_path_invalid", "must be a resolvable path")
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return validation.NewError("validation_cert_path_traversal", "must resolve inside the working directory")
	}
	return nil
})

func filepathAbs(path string) (string, error) {
	return filepath.Abs(path)
}
