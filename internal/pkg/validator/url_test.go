package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/design-agent/internal/entity"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path  ", "https://example.com/path"},
		{"https://example.com", "https://example.com"},
		{"HTTP://Example.com", "HTTP://Example.com"},
		{"sub.domain.co.uk", "https://sub.domain.co.uk"},
		{"not a url", "not a url"},
		{"", ""},
		{"localhost", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeURL(got), "normalization must be idempotent")
		})
	}
}

func TestExtractURLs(t *testing.T) {
	assert.Equal(t, []string{"https://example.com"}, ExtractURLs("see https://example.com please"))
	assert.Equal(t, []string{"example.com", "foo.org/x"}, ExtractURLs("example.com, foo.org/x"))
	assert.Empty(t, ExtractURLs("just words here"))
	assert.True(t, HasURLs("my site is shop.example.io"))
	assert.False(t, HasURLs("no site yet"))
}

func TestCheckSafeURL(t *testing.T) {
	unsafe := []string{
		"http://localhost:8080",
		"http://127.0.0.1/admin",
		"http://[::1]/",
		"http://10.0.0.5",
		"http://172.16.3.4",
		"http://172.31.255.1",
		"http://192.168.1.1",
		"http://169.254.169.254/latest/meta-data",
		"http://printer.local",
		"http://localhost./",
		"ftp://example.com",
		"http://127.1/",
		"http://2130706433/",
		"http://0x7f000001/",
		"http://0177.0.0.1/",
		"http://10.1/",
		"http://0/",
		"http://127.0.0.1./",
		"http://0xc0.0xa8.1.1/",
		"http://1.2.3.4.5/",
		"http://08.1.1.1/",
	}
	for _, u := range unsafe {
		t.Run(u, func(t *testing.T) {
			assert.Error(t, CheckSafeURL(u))
		})
	}

	safe := []string{
		"https://example.com",
		"http://172.32.0.1",
		"https://8.8.8.8/dns",
		"http://134744072/",
		"https://cafe.de",
		"https://1password.com",
	}
	for _, u := range safe {
		t.Run(u, func(t *testing.T) {
			assert.NoError(t, CheckSafeURL(u))
		})
	}
}

func TestParseInetAton(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.1", "127.0.0.1"},
		{"10.1", "10.0.0.1"},
		{"2130706433", "127.0.0.1"},
		{"0x7f000001", "127.0.0.1"},
		{"0177.0.0.1", "127.0.0.1"},
		{"192.168.257", "192.168.1.1"},
		{"8.8.8.8", "8.8.8.8"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := parseInetAton(tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	for _, bad := range []string{"256.1.1.1", "1.2.3.4.5", "1.16777216", "0x", "09"} {
		_, err := parseInetAton(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeSafeURL(t *testing.T) {
	got, err := NormalizeSafeURL("example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	_, err = NormalizeSafeURL("192.168.0.1")
	assert.Error(t, err)

	_, err = NormalizeSafeURL("http://127.1/")
	assert.ErrorIs(t, err, entity.ErrUnsafeURL)

	_, err = NormalizeSafeURL("hello world")
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "a\tb\nc", SanitizeText("  a\x00\tb\x07\nc\x7f  "))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail("  John.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", got)

	_, err = ValidateEmail("not-an-email")
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)

	_, err = ValidateEmail("   ")
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestValidateReferenceEntries(t *testing.T) {
	got, err := ValidateReferenceEntries([]entity.ReferenceEntry{
		{URL: "stripe.com", Description: " clean layout "},
	})
	require.NoError(t, err)
	assert.Equal(t, []entity.ReferenceEntry{{URL: "https://stripe.com", Description: "clean layout"}}, got)

	_, err = ValidateReferenceEntries([]entity.ReferenceEntry{{URL: "http://10.1.1.1", Description: "x"}})
	assert.ErrorIs(t, err, entity.ErrUnsafeURL)

	_, err = ValidateReferenceEntries(make([]entity.ReferenceEntry, 4))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}
