package security

import (
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf16"

	"github.com/jrschumacher/complyhub/internal/logger"
)

// DigestProvider turns text into a lowercase hex digest.
type DigestProvider interface {
	Digest(ctx context.Context, input string) (string, error)
	// Strong reports whether the digest is collision resistant.
	Strong() bool
}

// SHA256Digest is the strong provider.
type SHA256Digest struct{}

func (SHA256Digest) Digest(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return SecureHash(input), nil
}

func (SHA256Digest) Strong() bool { return true }

// RollingDigest is the 32-bit fallback. It is a checksum, not a hash
// suitable for any security comparison.
type RollingDigest struct{}

func (RollingDigest) Digest(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return ClientChecksum(input), nil
}

func (RollingDigest) Strong() bool { return false }

// SelectDigestProvider returns SHA256Digest when the SHA-256 implementation
// is linked into the binary, otherwise RollingDigest.
func SelectDigestProvider() DigestProvider {
	return selectDigestProvider(crypto.SHA256.Available())
}

func selectDigestProvider(sha256Available bool) DigestProvider {
	if !sha256Available {
		logger.Warn("SHA-256 unavailable, client hashes fall back to a 32-bit checksum")
		return RollingDigest{}
	}
	return SHA256Digest{}
}

// CreateClientHash digests input with the selected provider. A failing
// provider is logged and replaced by ClientChecksum; only context
// cancellation is returned as an error. Check HashIsStrong before using the
// result for anything but cache keys and change detection.
func (k *Toolkit) CreateClientHash(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum, err := k.digest.Digest(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn("Digest provider failed, using checksum fallback", "error", err)
		return ClientChecksum(input), nil
	}
	return sum, nil
}

// HashIsStrong reports whether CreateClientHash produces SHA-256 digests.
func (k *Toolkit) HashIsStrong() bool {
	return k.digest.Strong()
}

// SecureHash returns the lowercase hex SHA-256 of input.
func SecureHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ClientChecksum computes hash = hash*31 + unit over the UTF-16 code units
// of input in 32-bit signed arithmetic and renders |hash| in hex.
func ClientChecksum(input string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(input)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 16)
}
