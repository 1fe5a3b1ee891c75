package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/futig/design-agent/internal/entity"
)

const (
	MaxEmailLength       = 254
	MaxURLLength         = 2048
	MaxTextLength        = 5000
	MaxDescriptionLength = 2000
	MaxReferenceEntries  = 3
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// SanitizeText drops NUL and control characters except newline, tab and carriage return, then trims.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// SanitizeForExport is applied to every value leaving the service in a notification.
func SanitizeForExport(s string) string {
	return Truncate(SanitizeText(s), MaxTextLength)
}

// ValidateText returns the sanitized text or an error when it is empty or too long.
func ValidateText(s string, maxLen int) (string, error) {
	sanitized := SanitizeText(s)
	if sanitized == "" {
		return "", entity.ErrMissingField
	}
	if utf8.RuneCountInString(sanitized) > maxLen {
		return "", fmt.Errorf("%w: longer than %d characters", entity.ErrInvalidFormat, maxLen)
	}
	return sanitized, nil
}

// ValidateEmail returns the lowercased address.
func ValidateEmail(s string) (string, error) {
	sanitized := SanitizeText(s)
	if sanitized == "" {
		return "", fmt.Errorf("%w: email", entity.ErrMissingField)
	}
	if len(sanitized) > MaxEmailLength || !emailPattern.MatchString(sanitized) {
		return "", fmt.Errorf("%w: email", entity.ErrInvalidFormat)
	}
	return strings.ToLower(sanitized), nil
}

// ValidateReferenceEntries normalizes every entry and rejects unsafe or malformed ones.
func ValidateReferenceEntries(entries []entity.ReferenceEntry) ([]entity.ReferenceEntry, error) {
	if len(entries) > MaxReferenceEntries {
		return nil, fmt.Errorf("%w: at most %d references", entity.ErrInvalidParameter, MaxReferenceEntries)
	}

	out := make([]entity.ReferenceEntry, 0, len(entries))
	for i, e := range entries {
		u, err := NormalizeSafeURL(e.URL)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i+1, err)
		}
		desc, err := ValidateText(e.Description, MaxDescriptionLength)
		if err != nil {
			return nil, fmt.Errorf("reference %d description: %w", i+1, err)
		}
		out = append(out, entity.ReferenceEntry{URL: u, Description: desc})
	}
	return out, nil
}
