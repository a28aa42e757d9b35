// Package authstate reads the persisted sign-in state the auth screens leave
// in storage. It never writes; the session owner lives elsewhere.
package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/storage"
)

const (
	// StorageKey holds the persisted auth store snapshot.
	StorageKey = "auth-storage"
	// RememberMeKey is "true" when the user ticked "remember me".
	RememberMeKey = "auth_remember_me"
)

// ErrNoAccessToken is returned when no usable access token is stored.
var ErrNoAccessToken = errors.New("no access token in auth storage")

// Snapshot mirrors the persisted auth store document.
type Snapshot struct {
	State struct {
		User   *User  `json:"user,omitempty"`
		Tokens Tokens `json:"tokens"`

		IsAuthenticated bool `json:"isAuthenticated"`
	} `json:"state"`
	Version int `json:"version"`
}

// Tokens is the token pair inside the snapshot.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User is the cached profile inside the snapshot.
type User struct {
	ID            string `json:"id,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// Reader gives read-only access to auth state in a store.
type Reader struct {
	store storage.Store
}

// NewReader creates a Reader over store.
func NewReader(store storage.Store) *Reader {
	return &Reader{store: store}
}

// Snapshot decodes the auth-storage document. A missing key yields
// storage.ErrNotFound.
func (r *Reader) Snapshot(ctx context.Context) (*Snapshot, error) {
	raw, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", StorageKey, err)
	}
	return &snap, nil
}

// AccessToken returns state.tokens.accessToken or ErrNoAccessToken.
func (r *Reader) AccessToken(ctx context.Context) (string, error) {
	tokens, err := r.tokens(ctx)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

// RememberMe reports whether auth_remember_me is exactly "true". Read
// failures count as false.
func (r *Reader) RememberMe(ctx context.Context) bool {
	v, err := r.store.Get(ctx, RememberMeKey)
	return err == nil && v == "true"
}

// Token wraps the stored access token as a bearer oauth2.Token. Expiry is
// taken from the JWT exp claim when present so oauth2 transports stop
// sending it once it lapses.
func (r *Reader) Token(ctx context.Context) (*oauth2.Token, error) {
	tokens, err := r.tokens(ctx)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp, ok := security.ExpiresAt(tokens.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func (r *Reader) tokens(ctx context.Context) (Tokens, error) {
	snap, err := r.Snapshot(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return Tokens{}, ErrNoAccessToken
	}
	if err != nil {
		return Tokens{}, err
	}

	tokens := snap.State.Tokens
	tokens.AccessToken = strings.TrimSpace(tokens.AccessToken)
	if tokens.AccessToken == "" {
		return Tokens{}, ErrNoAccessToken
	}
	return tokens, nil
}
