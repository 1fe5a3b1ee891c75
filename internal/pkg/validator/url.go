package validator

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/futig/design-agent/internal/entity"
)

var (
	schemePattern       = regexp.MustCompile(`(?i)^https?://`)
	bareDomainPattern   = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(/.*)?$`)
	urlInTextPattern    = regexp.MustCompile(`(?i)https?://[^\s,|]+`)
	domainInTextPattern = regexp.MustCompile(`([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(/[^\s,|]*)?`)
)

// NormalizeURL prefixes bare domains with https://. Anything else is returned trimmed.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || schemePattern.MatchString(trimmed) {
		return trimmed
	}
	if bareDomainPattern.MatchString(trimmed) && !strings.Contains(trimmed, " ") {
		return "https://" + trimmed
	}
	return trimmed
}

// ExtractURLs returns every plausible URL or bare domain found in text, deduplicated after normalization.
func ExtractURLs(text string) []string {
	candidates := append(urlInTextPattern.FindAllString(text, -1), domainInTextPattern.FindAllString(text, -1)...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		n := NormalizeURL(c)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, c)
	}
	return out
}

func HasURLs(text string) bool {
	return len(ExtractURLs(text)) > 0
}

// CheckSafeURL rejects URLs that would make a server side fetch hit loopback, private or link-local hosts.
func CheckSafeURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: empty url", entity.ErrInvalidFormat)
	}
	if utf8.RuneCountInString(trimmed) > MaxURLLength {
		return fmt.Errorf("%w: url longer than %d characters", entity.ErrInvalidFormat, MaxURLLength)
	}
	if !schemePattern.MatchString(trimmed) {
		return fmt.Errorf("%w: only http and https are allowed", entity.ErrUnsafeURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", entity.ErrInvalidFormat)
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return fmt.Errorf("%w: %s", entity.ErrUnsafeURL, host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		if !looksNumeric(host) {
			return nil
		}
		// resolvers accept 127.1, 2130706433, 0x7f000001 and 0177.0.0.1 as addresses
		if addr, err = parseInetAton(host); err != nil {
			return fmt.Errorf("%w: %s", entity.ErrUnsafeURL, host)
		}
	}
	if isForbiddenAddr(addr) {
		return fmt.Errorf("%w: %s", entity.ErrUnsafeURL, host)
	}

	return nil
}

var thisNetwork = netip.MustParsePrefix("0.0.0.0/8")

func isForbiddenAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast() ||
		thisNetwork.Contains(addr)
}

// looksNumeric reports whether every dot separated label starts with a digit and holds only
// characters of a decimal, octal or hex number.
func looksNumeric(host string) bool {
	for _, part := range strings.Split(host, ".") {
		if part == "" || part[0] < '0' || part[0] > '9' {
			return false
		}
		for _, r := range part {
			if !strings.ContainsRune("0123456789abcdefx", r) {
				return false
			}
		}
	}
	return true
}

// parseInetAton parses the one to four part IPv4 notation with decimal, 0x hex and leading zero octal
// parts. The last part fills all remaining bytes.
func parseInetAton(host string) (netip.Addr, error) {
	parts := strings.Split(host, ".")
	if len(parts) > 4 {
		return netip.Addr{}, fmt.Errorf("too many parts in %q", host)
	}

	var ip uint32
	for i, part := range parts {
		base := 10
		switch {
		case strings.HasPrefix(part, "0x"):
			base, part = 16, part[2:]
		case len(part) > 1 && part[0] == '0':
			base, part = 8, part[1:]
		}

		n, err := strconv.ParseUint(part, base, 32)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("part %d of %q: %w", i, host, err)
		}

		if i < len(parts)-1 {
			if n > 0xff {
				return netip.Addr{}, fmt.Errorf("part %d of %q out of range", i, host)
			}
			ip |= uint32(n) << (8 * (3 - i))
			continue
		}

		bits := 8 * (4 - i)
		if bits < 32 && n >= 1<<bits {
			return netip.Addr{}, fmt.Errorf("last part of %q out of range", host)
		}
		ip |= uint32(n)
	}

	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}), nil
}

// NormalizeSafeURL sanitizes, normalizes and SSRF-checks a single user supplied URL.
func NormalizeSafeURL(raw string) (string, error) {
	sanitized := SanitizeText(raw)
	if sanitized == "" {
		return "", fmt.Errorf("%w: url", entity.ErrMissingField)
	}

	normalized := NormalizeURL(sanitized)
	if !schemePattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q is not a url", entity.ErrInvalidFormat, sanitized)
	}
	if err := CheckSafeURL(normalized); err != nil {
		return "", err
	}

	return normalized, nil
}
