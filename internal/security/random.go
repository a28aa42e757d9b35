package security

import (
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand/v2"

	"github.com/jrschumacher/complyhub/internal/logger"
)

const (
	// DefaultRandomLength is used when a non-positive length is requested.
	DefaultRandomLength = 32

	randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomSource yields uniformly distributed indexes.
type RandomSource interface {
	// Index returns an integer in [0, n).
	Index(n int) (int, error)
	// Strong reports whether the source is cryptographically secure.
	Strong() bool
}

// CryptoRandom draws from the operating system CSPRNG.
type CryptoRandom struct {
	Reader io.Reader
}

func (c CryptoRandom) Index(n int) (int, error) {
	r := c.Reader
	if r == nil {
		r = rand.Reader
	}
	v, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func (CryptoRandom) Strong() bool { return true }

// MathRandom is the non-cryptographic fallback.
type MathRandom struct{}

func (MathRandom) Index(n int) (int, error) { return mrand.IntN(n), nil }

func (MathRandom) Strong() bool { return false }

// SelectRandomSource probes the CSPRNG once and returns it when readable,
// otherwise the math/rand fallback.
func SelectRandomSource() RandomSource {
	return selectRandomSource(rand.Reader)
}

func selectRandomSource(r io.Reader) RandomSource {
	probe := make([]byte, 1)
	if _, err := io.ReadFull(r, probe); err != nil {
		logger.Warn("Secure random source unavailable, falling back to math/rand", "error", err)
		return MathRandom{}
	}
	return CryptoRandom{Reader: r}
}

// GenerateSecureRandomString returns length characters from [A-Za-z0-9].
// Strength depends on the selected source; see RandomIsStrong.
func (k *Toolkit) GenerateSecureRandomString(length int) string {
	if length <= 0 {
		length = DefaultRandomLength
	}

	source := k.random
	out := make([]byte, length)
	for i := range out {
		idx, err := source.Index(len(randomAlphabet))
		if err != nil {
			logger.Warn("Random source failed, continuing with math/rand", "error", err)
			source = MathRandom{}
			idx, _ = source.Index(len(randomAlphabet))
		}
		out[i] = randomAlphabet[idx]
	}
	return string(out)
}

// RandomIsStrong reports whether GenerateSecureRandomString uses a CSPRNG.
func (k *Toolkit) RandomIsStrong() bool {
	return k.random.Strong()
}
