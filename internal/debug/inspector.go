// Package debug holds developer troubleshooting helpers for auth state.
// Nothing here is part of the product surface; the CLI exposes it under
// `complyhub debug`.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/authstate"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/ratelimit"
	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/storage"
)

// Report summarises what the store holds about the current session.
type Report struct {
	HasAuthStorage   bool          `json:"hasAuthStorage"`
	HasAccessToken   bool          `json:"hasAccessToken"`
	TokenPreview     string        `json:"tokenPreview,omitempty"`
	ValidStructure   bool          `json:"validStructure"`
	Expired          bool          `json:"expired"`
	ExpiresAt        *time.Time    `json:"expiresAt,omitempty"`
	ExpiresIn        time.Duration `json:"expiresIn,omitempty"`
	Subject          string        `json:"subject,omitempty"`
	Email            string        `json:"email,omitempty"`
	RememberMe       bool          `json:"rememberMe"`
	RateLimitKeys    []string      `json:"rateLimitKeys,omitempty"`
	AuthStorageError string        `json:"authStorageError,omitempty"`
}

// ProbeResult is the outcome of the diagnostic profile PUT.
type ProbeResult struct {
	URL    string          `json:"url"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
	Raw    string          `json:"raw,omitempty"`
}

// Inspector reads auth state from a store and can replay it against the API.
type Inspector struct {
	store   storage.Store
	auth    *authstate.Reader
	client  *apiclient.Client
	toolkit *security.Toolkit
}

// NewInspector creates an Inspector. client may be nil when only Report is used.
func NewInspector(store storage.Store, client *apiclient.Client, toolkit *security.Toolkit) *Inspector {
	if toolkit == nil {
		toolkit = security.New()
	}
	return &Inspector{
		store:   store,
		auth:    authstate.NewReader(store),
		client:  client,
		toolkit: toolkit,
	}
}

// Report inspects auth-storage, auth_remember_me and rate limit records.
func (i *Inspector) Report(ctx context.Context) (*Report, error) {
	r := &Report{RememberMe: i.auth.RememberMe(ctx)}

	keys, err := i.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage keys: %w", err)
	}
	for _, k := range keys {
		switch {
		case k == authstate.StorageKey:
			r.HasAuthStorage = true
		case strings.HasPrefix(k, ratelimit.KeyPrefix):
			r.RateLimitKeys = append(r.RateLimitKeys, strings.TrimPrefix(k, ratelimit.KeyPrefix))
		}
	}
	sort.Strings(r.RateLimitKeys)

	token, err := i.auth.AccessToken(ctx)
	switch {
	case errors.Is(err, authstate.ErrNoAccessToken):
		return r, nil
	case err != nil:
		r.AuthStorageError = err.Error()
		return r, nil
	}

	r.HasAccessToken = true
	r.TokenPreview = preview(token)
	r.ValidStructure = security.IsValidJWTStructure(token)
	r.Expired = i.toolkit.IsJWTExpired(token)
	if exp, ok := security.ExpiresAt(token); ok {
		r.ExpiresAt = &exp
		r.ExpiresIn, _ = i.toolkit.TimeUntilExpiry(token)
	}
	if claims, err := security.ParseClaims(token); err == nil {
		r.Subject = claims.Subject
		r.Email = claims.Email
	}

	logger.Debug("Auth state inspected",
		"has_token", r.HasAccessToken,
		"valid_structure", r.ValidStructure,
		"expired", r.Expired)
	return r, nil
}

// ProbeProfile sends body to PUT /auth/profile with the stored access token.
// API rejections are returned as a result, not an error, since the status is
// the point of the probe.
func (i *Inspector) ProbeProfile(ctx context.Context, body any) (*ProbeResult, error) {
	if i.client == nil {
		return nil, errors.New("no API client configured")
	}

	tok, err := i.auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	// Sent as stored, even past exp.
	tok.Expiry = time.Time{}

	url := i.client.BaseURL() + "/auth/profile"
	log := logger.With("url", url)
	log.Debug("Sending profile probe")

	client := i.client.WithToken(ctx, oauth2.StaticTokenSource(tok))
	resp, err := client.UpdateProfile(ctx, body)
	var apiErr *apiclient.APIError
	if err != nil && !errors.As(err, &apiErr) {
		log.Warn("Profile probe failed", "error", err)
		return nil, err
	}

	result := &ProbeResult{URL: url, Status: resp.Status}
	if json.Valid(resp.Body) {
		result.Body = resp.Body
	} else {
		result.Raw = string(resp.Body)
	}
	log.Info("Profile probe finished", "status", result.Status)
	return result, nil
}

func preview(token string) string {
	if len(token) <= 20 {
		return strings.Repeat("*", len(token))
	}
	return token[:10] + "..." + token[len(token)-6:]
}
