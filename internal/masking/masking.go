// Package masking classifies configuration field names as sensitive and
// partially redacts their values for display and logging. It is a pure data
// transform: no I/O, deterministic output for a given input.
package masking

import (
	"strings"
)

// sensitiveSubstrings is the process-wide static set of case-insensitive
// substrings that mark a field name as sensitive.
var sensitiveSubstrings = []string{
	"password",
	"secret",
	"token",
	"key",
	"auth",
	"cookie",
	"credit_card",
}

const (
	// redactedMarker fully replaces short sensitive values.
	redactedMarker = "***"
	// ellipsisMarker separates the visible head and tail of long sensitive values.
	ellipsisMarker = "..."
	// shortValueLimit is the length at or below which a sensitive value is
	// fully redacted rather than partially shown.
	shortValueLimit = 8
	// visibleEdge is how many characters remain visible at each end of a
	// long sensitive value. Combined, no policy ever shows more than
	// 2*visibleEdge characters.
	visibleEdge = 4
)

// Classify reports whether a field name is sensitive. The comparison is
// case-insensitive and matches on substrings, so "DB_PASSWORD",
// "ApiToken" and "x-auth-header" all classify as sensitive.
func Classify(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, substr := range sensitiveSubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

// MaskValue redacts a value when its field name is sensitive.
//
// Non-sensitive values are returned unchanged. Sensitive values of 8
// characters or fewer become "***"; longer values keep their first and last
// 4 characters joined by "...". Masking is deterministic: the same value
// always masks to the same output.
func MaskValue(fieldName, value string) string {
	if !Classify(fieldName) {
		return value
	}
	if len(value) <= shortValueLimit {
		return redactedMarker
	}
	return value[:visibleEdge] + ellipsisMarker + value[len(value)-visibleEdge:]
}

// MaskStructure recursively applies masking over nested maps and sequences.
//
// String leaves are masked according to their key's sensitivity; non-string
// leaves are left untouched unless their key is sensitive, in which case
// they are fully redacted. The output mirrors the input's shape.
func MaskStructure(value any) any {
	return maskStructure("", value)
}

func maskStructure(fieldName string, value any) any {
	switch v := value.(type) {
	case map[string]any:
		masked := make(map[string]any, len(v))
		for key, item := range v {
			masked[key] = maskStructure(key, item)
		}
		return masked
	case map[string]string:
		masked := make(map[string]string, len(v))
		for key, item := range v {
			masked[key] = MaskValue(key, item)
		}
		return masked
	case []any:
		masked := make([]any, len(v))
		for i, item := range v {
			masked[i] = maskStructure(fieldName, item)
		}
		return masked
	case string:
		return MaskValue(fieldName, v)
	default:
		if fieldName != "" && Classify(fieldName) {
			return redactedMarker
		}
		return value
	}
}
