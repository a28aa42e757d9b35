package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/verification"
)

func TestContinueTarget(t *testing.T) {
	allowed := []string{"example.com"}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "/"},
		{"relative path", "/dashboard?tab=1", "/dashboard?tab=1"},
		{"protocol relative", "//evil.com/x", "/"},
		{"backslash trick", `/\evil.com`, "/"},
		{"allowed subdomain", "https://app.example.com/home", "https://app.example.com/home"},
		{"allowed apex", "https://example.com", "https://example.com"},
		{"foreign host", "https://evil.com", "/"},
		{"lookalike host", "https://notexample.com", "/"},
		{"javascript scheme", "javascript://example.com/%0aalert(1)", "/"},
		{"malformed", "http://[::1", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContinueTarget(tt.raw, allowed); got != tt.want {
				t.Errorf("ContinueTarget(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSuccessURL(t *testing.T) {
	if got := successURL("/verify-email/success", "/"); got != "/verify-email/success" {
		t.Errorf("got %q", got)
	}
	if got := successURL("/verify-email/success", "https://app.example.com/a?b=c"); got != "/verify-email/success?next=https%3A%2F%2Fapp.example.com%2Fa%3Fb%3Dc" {
		t.Errorf("got %q", got)
	}
}

func TestRejection(t *testing.T) {
	var reject *verification.RejectError

	err := rejection(&apiclient.APIError{Status: 400, Message: "Code expired"}, "fallback")
	if !errors.As(err, &reject) || reject.Message != "Code expired" {
		t.Errorf("expected API message, got %v", err)
	}

	err = rejection(context.DeadlineExceeded, "fallback")
	if !errors.As(err, &reject) || reject.Message != "fallback" {
		t.Errorf("expected fallback, got %v", err)
	}
}
