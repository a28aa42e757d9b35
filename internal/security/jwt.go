package security

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
)

// maxExpiryMillis clamps absurd exp values well inside int64.
const maxExpiryMillis = float64(1 << 62)

var base64URLSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidJWTStructure reports whether token has exactly three base64url
// segments. It says nothing about the signature or the claims.
func IsValidJWTStructure(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if !base64URLSegment.MatchString(part) {
			return false
		}
	}
	return true
}

// DecodeJWTPayload returns the claims object from the middle segment.
// Numbers decode as float64. ok is false when the structure check fails,
// the segment is not base64, or it is not a JSON object.
func DecodeJWTPayload(token string) (claims map[string]any, ok bool) {
	if !IsValidJWTStructure(token) {
		return nil, false
	}

	raw, err := decodeSegment(strings.Split(token, ".")[1])
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal(raw, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}

// decodeSegment maps base64url onto standard base64 and repairs padding.
func decodeSegment(segment string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(segment)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return base64.StdEncoding.DecodeString(s)
}

// expiry extracts the numeric exp claim.
func expiry(token string) (time.Time, bool) {
	claims, ok := DecodeJWTPayload(token)
	if !ok {
		return time.Time{}, false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	ms := math.Max(math.Min(exp*1000, maxExpiryMillis), -maxExpiryMillis)
	return time.UnixMilli(int64(ms)), true
}

// IsJWTExpired reports whether token is expired at time.Now. Undecodable
// tokens and tokens without a numeric exp count as expired.
func IsJWTExpired(token string) bool {
	return isExpiredAt(token, time.Now())
}

// IsJWTExpired is IsJWTExpired against the toolkit clock.
func (k *Toolkit) IsJWTExpired(token string) bool {
	return isExpiredAt(token, k.now())
}

func isExpiredAt(token string, now time.Time) bool {
	exp, ok := expiry(token)
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// TimeUntilExpiry returns the duration until exp, negative when already
// expired. ok is false when exp cannot be read.
func (k *Toolkit) TimeUntilExpiry(token string) (time.Duration, bool) {
	exp, ok := expiry(token)
	if !ok {
		return 0, false
	}
	return exp.Sub(k.now()), true
}

// ExpiresAt returns the exp claim as a time.
func ExpiresAt(token string) (time.Time, bool) {
	return expiry(token)
}
