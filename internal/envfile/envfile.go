// Package envfile handles the plaintext configuration artifact: a flat text
// bundle of KEY=VALUE lines. It also owns the path conventions for the
// encrypted artifact and the retry-tolerant reader used at process start.
package envfile

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/allisson/configvault/internal/errors"
)

// EncryptedSuffix is the conventional suffix appended to a plaintext
// artifact's name to form the encrypted artifact's name.
const EncryptedSuffix = ".encrypted"

// Parse parses a plaintext configuration bundle into a key/value map.
//
// Rules:
//   - one KEY=VALUE pair per line
//   - blank lines and lines beginning with '#' are ignored
//   - values may be single- or double-quoted; quotes are stripped
//   - whitespace around keys and values is trimmed
//
// Returns ErrInvalidInput for a non-comment line without '='.
func Parse(data []byte) (map[string]string, error) {
	values := make(map[string]string)

	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, found := strings.Cut(trimmed, "=")
		if !found {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "line %d: missing '='", i+1)
		}

		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}

	return values, nil
}

// Serialize renders a key/value map as a plaintext bundle with keys in
// sorted order, so the output is deterministic for a given input.
func Serialize(values map[string]string) []byte {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(fmt.Sprintf("%s=%s\n", key, values[key]))
	}
	return []byte(sb.String())
}

// EncryptedPath returns the conventional encrypted artifact path for a
// plaintext artifact path.
func EncryptedPath(plaintextPath string) string {
	return plaintextPath + EncryptedSuffix
}

// PlaintextPath reverses the suffix convention: it returns the plaintext
// artifact path for an encrypted artifact path. If the path does not carry
// the suffix it is returned unchanged with ok=false.
func PlaintextPath(encryptedPath string) (string, bool) {
	if !strings.HasSuffix(encryptedPath, EncryptedSuffix) {
		return encryptedPath, false
	}
	return strings.TrimSuffix(encryptedPath, EncryptedSuffix), true
}

// unquote strips one level of matching single or double quotes.
func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
