package security

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf16"
)

const (
	// MinTokenLength is the shortest opaque token accepted anywhere.
	MinTokenLength = 10
	// MaxTokenLength bounds tokens accepted by IsValidToken.
	MaxTokenLength = 2048
)

var tokenCharset = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// TokenFromURL extracts a token from a raw URL parameter value. It trims
// whitespace, rejects values shorter than MinTokenLength UTF-16 code units
// and percent-decodes the rest. A '+' is kept as-is rather than read as a
// space.
func TokenFromURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if codeUnits(trimmed) < MinTokenLength {
		return "", false
	}
	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		return "", false
	}
	return decoded, true
}

// IsValidToken checks length bounds and the [A-Za-z0-9._-] character set.
func IsValidToken(token string) bool {
	if n := codeUnits(token); n < MinTokenLength || n > MaxTokenLength {
		return false
	}
	return tokenCharset.MatchString(token)
}

// codeUnits is the UTF-16 length of s, the unit token lengths are defined in.
func codeUnits(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
