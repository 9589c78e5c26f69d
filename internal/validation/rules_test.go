package validation

import (
	"strings"
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/configvault/internal/errors"
)

func TestHexFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid digest", strings.Repeat("ab", 32), false},
		{"empty is allowed", "", false},
		{"too short", "abcdef", true},
		{"uppercase rejected", strings.Repeat("AB", 32), true},
		{"non-hex rejected", strings.Repeat("zz", 32), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, HexFingerprint)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.Validate("value", NotBlank))
	assert.Error(t, validation.Validate("   ", NotBlank))
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
