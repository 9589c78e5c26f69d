// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/configvault/internal/errors"
)

var (
	// fingerprintRegex matches a full SHA-256 hex digest.
	fingerprintRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// HexFingerprint validates that a string is a full lowercase SHA-256 hex
// digest. Empty strings pass; let Required handle those.
var HexFingerprint = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == "" || fingerprintRegex.MatchString(s)
	},
	validation.NewError("validation_hex_fingerprint", "must be a 64-character lowercase hex digest"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
