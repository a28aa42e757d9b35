package security

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the typed view of an access token used by the debug tooling.
type Claims struct {
	Issuer   string    `json:"iss"`
	Subject  string    `json:"sub"`
	Audience []string  `json:"aud"`
	Expiry   time.Time `json:"exp"`
	IssuedAt time.Time `json:"iat"`
	Email    string    `json:"email,omitempty"`
	Scope    string    `json:"scope,omitempty"`
}

// ParseClaims extracts claims from a token without verification.
// WARNING: never base an authorization decision on the result.
func ParseClaims(tokenString string) (*Claims, error) {
	token, err := jwt.Parse([]byte(tokenString), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	return claimsFromToken(token), nil
}

// VerifyWithKeySet verifies the signature against keySet and validates the
// time-based claims.
func VerifyWithKeySet(tokenString string, keySet jwk.Set) (*Claims, error) {
	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keySet))
	if err != nil {
		return nil, fmt.Errorf("failed to verify JWT: %w", err)
	}
	return claimsFromToken(token), nil
}

func claimsFromToken(token jwt.Token) *Claims {
	claims := &Claims{
		Issuer:   token.Issuer(),
		Subject:  token.Subject(),
		Expiry:   token.Expiration(),
		IssuedAt: token.IssuedAt(),
	}

	if aud := token.Audience(); len(aud) > 0 {
		claims.Audience = aud
	}

	if v, ok := token.Get("email"); ok {
		if email, ok := v.(string); ok {
			claims.Email = email
		}
	}
	if v, ok := token.Get("scope"); ok {
		if scope, ok := v.(string); ok {
			claims.Scope = scope
		}
	}

	return claims
}
