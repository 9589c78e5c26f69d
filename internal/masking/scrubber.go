package masking

import (
	"regexp"
	"strings"
)

// Scrubber redacts sensitive-looking values for outbound telemetry. Unlike
// the field-name heuristics above, it pattern-matches the values themselves:
// card-number-like and phone-like digit sequences are partially masked and
// e-mail addresses keep only the first character of the local part.
//
// Contract: operates on arbitrary nested structures, never fails, and always
// returns output of the same shape as the input.
type Scrubber struct {
	cardPattern  *regexp.Regexp
	phonePattern *regexp.Regexp
	emailPattern *regexp.Regexp
}

// NewScrubber creates a Scrubber with the default value patterns.
func NewScrubber() *Scrubber {
	return &Scrubber{
		// 13-19 digits, optionally separated by spaces or dashes.
		cardPattern: regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
		// 10-11 digits with optional separators and country prefix.
		phonePattern: regexp.MustCompile(`\+?\d{1,3}[ -]?\(?\d{2,3}\)?[ -]?\d{3,5}[ -]?\d{4}\b`),
		emailPattern: regexp.MustCompile(`\b([a-zA-Z0-9._%+\-])([a-zA-Z0-9._%+\-]*)@([a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})\b`),
	}
}

// Scrub walks an arbitrary nested structure and returns a same-shaped copy
// with sensitive-looking values redacted. Unknown leaf types pass through
// unchanged; Scrub never returns an error.
func (s *Scrubber) Scrub(value any) any {
	switch v := value.(type) {
	case map[string]any:
		scrubbed := make(map[string]any, len(v))
		for key, item := range v {
			scrubbed[key] = s.Scrub(item)
		}
		return scrubbed
	case map[string]string:
		scrubbed := make(map[string]string, len(v))
		for key, item := range v {
			scrubbed[key] = s.ScrubString(item)
		}
		return scrubbed
	case []any:
		scrubbed := make([]any, len(v))
		for i, item := range v {
			scrubbed[i] = s.Scrub(item)
		}
		return scrubbed
	case string:
		return s.ScrubString(v)
	default:
		return value
	}
}

// ScrubString redacts card-number-like and phone-like digit runs and
// partially masks e-mail addresses within a single string value.
func (s *Scrubber) ScrubString(value string) string {
	scrubbed := s.cardPattern.ReplaceAllStringFunc(value, maskDigitRun)
	scrubbed = s.phonePattern.ReplaceAllStringFunc(scrubbed, maskDigitRun)
	scrubbed = s.emailPattern.ReplaceAllString(scrubbed, "$1***@$3")
	return scrubbed
}

// maskDigitRun keeps the last four digits of a digit sequence and replaces
// the rest with asterisks, preserving separator positions.
func maskDigitRun(run string) string {
	digitsSeen := 0
	for _, r := range run {
		if r >= '0' && r <= '9' {
			digitsSeen++
		}
	}

	var sb strings.Builder
	remaining := digitsSeen
	for _, r := range run {
		if r >= '0' && r <= '9' {
			if remaining > 4 {
				sb.WriteByte('*')
			} else {
				sb.WriteRune(r)
			}
			remaining--
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
