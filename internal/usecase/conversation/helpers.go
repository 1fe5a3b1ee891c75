package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
)

// MultiSelectDelimiter joins selected labels. No option label contains it.
const MultiSelectDelimiter = "|"

const otherPrefix = OptionOther + ": "

var referenceLine = regexp.MustCompile(`^(?:\d+\.\s*)?(.+?)\s+-\s+(.+)$`)

func isOther(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), OptionOther)
}

func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), OptionYes)
}

func isNone(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), OptionNone)
}

func isOtherItem(item string) bool {
	return item == OptionOther || strings.HasPrefix(item, otherPrefix)
}

// ParseMultiSelect splits a stored multi-select value into trimmed, non-empty labels.
func ParseMultiSelect(stored string) []string {
	if stored == "" {
		return nil
	}
	parts := strings.Split(stored, MultiSelectDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func JoinMultiSelect(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, MultiSelectDelimiter)
}

// ToggleMultiSelect adds option to the stored set or removes it when already present.
// Toggling "Other" matches both "Other" and "Other: <text>".
func ToggleMultiSelect(stored, option string) string {
	existing := ParseMultiSelect(stored)

	matches := func(item string) bool {
		if option == OptionOther {
			return isOtherItem(item)
		}
		return item == option
	}

	kept := existing[:0:0]
	removed := false
	for _, item := range existing {
		if matches(item) {
			removed = true
			continue
		}
		kept = append(kept, item)
	}

	if removed {
		return JoinMultiSelect(kept)
	}
	return JoinMultiSelect(append(existing, option))
}

// DisplayMultiSelect maps "Other: <text>" back to the "Other" label.
func DisplayMultiSelect(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if strings.HasPrefix(v, otherPrefix) {
			v = OptionOther
		}
		out[i] = v
	}
	return out
}

// FormatReferences renders entries as "N. url - description" lines.
func FormatReferences(entries []entity.ReferenceEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, e.URL, e.Description)
	}
	return strings.Join(lines, "\n")
}

// ParseReferences reads back the FormatReferences representation.
func ParseReferences(s string) []entity.ReferenceEntry {
	var entries []entity.ReferenceEntry
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := referenceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		u := validator.Truncate(validator.SanitizeText(m[1]), validator.MaxURLLength)
		d := validator.Truncate(validator.SanitizeText(m[2]), validator.MaxDescriptionLength)
		if u != "" && d != "" {
			entries = append(entries, entity.ReferenceEntry{URL: u, Description: d})
		}
	}
	return entries
}
