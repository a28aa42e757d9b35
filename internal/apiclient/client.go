// Package apiclient talks to the auth API the verification and profile
// screens call back to.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/jrschumacher/complyhub/internal/logger"
)

// CorrelationIDHeader carries a per-request ID for tracing across services.
const CorrelationIDHeader = "X-Correlation-ID"

const (
	verifyEmailPath = "/auth/verify-email"
	resendPath      = "/auth/resend-verification"
	profilePath     = "/auth/profile"

	defaultTimeout = 15 * time.Second
)

// APIError is a non-2xx response from the auth API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api returned %d", e.Status)
	}
	return fmt.Sprintf("auth api returned %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client wraps a resty client rooted at the auth API base URL.
type Client struct {
	baseURL string
	http    *resty.Client
}

// Option customizes a Client.
type Option func(*resty.Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	return newClient(baseURL, resty.New(), opts...)
}

func newClient(baseURL string, rc *resty.Client, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	rc.SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			if r.Header.Get(CorrelationIDHeader) == "" {
				r.SetHeader(CorrelationIDHeader, uuid.NewString())
			}
			return nil
		})
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{baseURL: baseURL, http: rc}
}

// WithToken returns a client that authenticates every request with the
// bearer token from ts.
func (c *Client) WithToken(ctx context.Context, ts oauth2.TokenSource) *Client {
	rc := resty.NewWithClient(oauth2.NewClient(ctx, ts))
	return newClient(c.baseURL, rc, WithTimeout(c.http.GetClient().Timeout))
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string { return c.baseURL }

// VerifyEmail submits the six-digit code sent to email.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) error {
	body := map[string]string{"email": email, "code": code}
	_, err := c.do(ctx, http.MethodPost, verifyEmailPath, body)
	return err
}

// ResendVerification asks the API to email a fresh code.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, resendPath, map[string]string{"email": email})
	return err
}

// ProfileResponse is the raw result of a profile update.
type ProfileResponse struct {
	Status int
	Body   []byte
}

// UpdateProfile sends PUT /auth/profile with body as JSON. Callers supply
// authentication through WithToken. Non-2xx responses return both the
// response and an *APIError.
func (c *Client) UpdateProfile(ctx context.Context, body any) (*ProfileResponse, error) {
	resp, err := c.do(ctx, http.MethodPut, profilePath, body)
	if resp == nil {
		return nil, err
	}
	return &ProfileResponse{Status: resp.StatusCode(), Body: resp.Body()}, err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	logger.Debug("Auth API call",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", resp.Time())

	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return resp, &APIError{Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}
	return resp, nil
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
