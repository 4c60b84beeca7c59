package comments

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsIdentifier reports whether v is a UUID in canonical 8-4-4-4-12 form.
// uuid.Validate alone also accepts the braced and urn forms.
func IsIdentifier(v string) bool {
	return len(v) == 36 && uuid.Validate(v) == nil
}

// NormalizeIdentifier returns the trimmed identifier, or "" when v is not one.
func NormalizeIdentifier(v string) string {
	v = strings.TrimSpace(v)
	if !IsIdentifier(v) {
		return ""
	}
	return v
}

// SanitizeText strips ASCII control characters, trims, and bounds v to max
// runes. Empty results become fallback.
func SanitizeText(v string, max int, fallback string) string {
	v = strings.TrimSpace(stripControl(v))
	if v == "" {
		return fallback
	}
	if max > 0 && utf8.RuneCountInString(v) > max {
		v = strings.TrimSpace(string([]rune(v)[:max]))
		if v == "" {
			return fallback
		}
	}
	return v
}

// SanitizeEmail returns the lowercased address, or "" if it is not plausible.
func SanitizeEmail(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || len(v) > MaxEmailLength || !emailPattern.MatchString(v) {
		return ""
	}
	return v
}

func stripControl(v string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
}
