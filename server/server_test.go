package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrschumacher/complyhub/components"
	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/storage"
)

type fakeAPI struct {
	mu       sync.Mutex
	verified []string
	resends  int
	err      error
}

func (f *fakeAPI) VerifyEmail(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, email+":"+code)
	return f.err
}

func (f *fakeAPI) ResendVerification(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resends++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               config.EnvTest,
		StorageDriver:        config.StorageMemory,
		RateLimitWindow:      time.Minute,
		RateLimitMaxAttempts: 3,
		AllowedDomains:       []string{"example.com"},
	}
}

func newTestServer(t *testing.T, api *fakeAPI) *httptest.Server {
	t.Helper()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	toolkit := security.New(security.WithClock(func() time.Time { return now }))
	srv := httptest.NewServer(New(testConfig(), storage.NewMemoryStore(), WithToolkit(toolkit), WithAuthAPI(api)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

var formIDPattern = regexp.MustCompile(`name="formId" value="([^"]+)"`)

func openForm(t *testing.T, srv *httptest.Server, query string) string {
	t.Helper()
	resp, err := http.Get(srv.URL + "/verify-email?" + query)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readAll(t, resp)
	m := formIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "form id not found in %s", body)
	return m[1]
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func datastarPost(t *testing.T, srv *httptest.Server, path, signals string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(signals))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, readAll(t, resp)
}

func TestRootRedirects(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	resp, err := noRedirect.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/verify-email", resp.Header.Get("Location"))
}

func TestVerifyEmailPage(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	resp, err := http.Get(srv.URL + "/verify-email?email=ada@example.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readAll(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "<title>Verify your email | ComplyHub</title>")
	assert.Contains(t, body, "<strong>ada@example.com</strong>")
	assert.Contains(t, body, "&copy; 2026 ComplyHub")
	assert.Equal(t, security.CSPHeader([]string{"example.com"}, components.DatastarScriptSources...),
		resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

var scriptSrcPattern = regexp.MustCompile(`<script[^>]*\ssrc="([^"]+)"`)

func TestCSPAllowsPageScripts(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	resp, err := http.Get(srv.URL + "/verify-email?email=ada@example.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readAll(t, resp)

	var scriptSrc []string
	for _, directive := range strings.Split(resp.Header.Get("Content-Security-Policy"), ";") {
		fields := strings.Fields(directive)
		if len(fields) > 0 && fields[0] == "script-src" {
			scriptSrc = fields[1:]
		}
	}
	require.NotEmpty(t, scriptSrc)
	assert.Contains(t, scriptSrc, "'unsafe-eval'", "datastar evaluates data-on-* expressions")

	scripts := scriptSrcPattern.FindAllStringSubmatch(body, -1)
	require.NotEmpty(t, scripts)
	for _, m := range scripts {
		u, err := url.Parse(m[1])
		require.NoError(t, err)
		if u.Host == "" {
			continue
		}
		assert.Contains(t, scriptSrc, u.Scheme+"://"+u.Host, "script %s is blocked by CSP", m[1])
	}
}

func TestVerifyEmailPagePromptsForEmail(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	t.Run("landing page follows to a prompt", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body := readAll(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, body, "<!DOCTYPE html>")
		assert.Contains(t, body, `id="email-prompt"`)
		assert.NotContains(t, body, `role="alert"`)
	})

	t.Run("malformed email", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/verify-email?email=not-an-email&next=/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		body := readAll(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "<!DOCTYPE html>")
		assert.Contains(t, body, "Please enter a valid email address.")
		assert.Contains(t, body, `value="not-an-email"`)
		assert.Contains(t, body, `name="next" value="/dashboard"`)
		assert.NotContains(t, body, `name="formId"`)
	})
}

func TestDatastarPasteVerifies(t *testing.T) {
	api := &fakeAPI{}
	srv := newTestServer(t, api)
	id := openForm(t, srv, "email=ada@example.com&next="+url.QueryEscape("https://app.example.com/home"))

	resp, body := datastarPost(t, srv, "/api/verify", `{"formId":"`+id+`","action":"paste","value":"123-456"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "/verify-email/success?next="+url.QueryEscape("https://app.example.com/home"))
	assert.Equal(t, []string{"ada@example.com:123456"}, api.verified)

	// The form is discarded after success.
	resp, _ = datastarPost(t, srv, "/api/verify", `{"formId":"`+id+`","action":"submit"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDatastarRejectionShowsAPIMessage(t *testing.T) {
	api := &fakeAPI{err: &apiclient.APIError{Status: http.StatusBadRequest, Message: "Code expired"}}
	srv := newTestServer(t, api)
	id := openForm(t, srv, "email=ada@example.com")

	var body string
	for i, d := range "98765" {
		_, body = datastarPost(t, srv, "/api/verify", `{"formId":"`+id+`","action":"input","index":`+strconv.Itoa(i)+`,"value":"`+string(d)+`"}`)
	}
	assert.Empty(t, api.verified)
	assert.Contains(t, body, `value="9"`)

	_, body = datastarPost(t, srv, "/api/verify", `{"formId":"`+id+`","action":"input","index":5,"value":"4"}`)
	assert.Equal(t, []string{"ada@example.com:987654"}, api.verified)
	assert.Contains(t, body, "Code expired")
	assert.NotContains(t, body, `value="9"`)
}

func TestVerifyAttemptsAreRateLimited(t *testing.T) {
	api := &fakeAPI{err: &apiclient.APIError{Status: http.StatusBadRequest, Message: "Wrong code"}}
	srv := newTestServer(t, api)
	id := openForm(t, srv, "email=ada@example.com")

	var body string
	for i := 0; i < 4; i++ {
		_, body = datastarPost(t, srv, "/api/verify", `{"formId":"`+id+`","action":"paste","value":"111111"}`)
	}
	assert.Len(t, api.verified, 3)
	assert.Contains(t, body, "Too many attempts")
}

func TestPlainFormPostFallback(t *testing.T) {
	api := &fakeAPI{}
	srv := newTestServer(t, api)
	id := openForm(t, srv, "email=ada@example.com&next=/dashboard")

	form := url.Values{"formId": {id}, "code": {"4", "2", "4", "2", "4", "2"}}
	resp, err := noRedirect.PostForm(srv.URL+"/api/verify", form)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/verify-email/success?next=%2Fdashboard", resp.Header.Get("Location"))
	assert.Equal(t, []string{"ada@example.com:424242"}, api.verified)
}

func TestPlainFormPostShowsError(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})
	id := openForm(t, srv, "email=ada@example.com")

	resp, err := noRedirect.PostForm(srv.URL+"/api/verify", url.Values{"formId": {id}, "code": {"1", "2"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readAll(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Please enter all 6 digits")
}

func TestResendIsRateLimitedPerClient(t *testing.T) {
	api := &fakeAPI{}
	srv := newTestServer(t, api)
	id := openForm(t, srv, "email=ada@example.com")

	for i := 0; i < 3; i++ {
		resp, _ := datastarPost(t, srv, "/api/resend", `{"formId":"`+id+`"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := datastarPost(t, srv, "/api/resend", `{"formId":"`+id+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 3, api.resends)
}

func TestResendLimitIgnoresForwardedFor(t *testing.T) {
	api := &fakeAPI{}
	srv := newTestServer(t, api)

	codes := map[int]int{}
	for i := 0; i < 6; i++ {
		id := openForm(t, srv, fmt.Sprintf("email=user%d@example.com", i))
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/resend", strings.NewReader(`{"formId":"`+id+`"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Datastar-Request", "true")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes[resp.StatusCode]++
	}

	assert.Equal(t, map[int]int{http.StatusOK: 3, http.StatusTooManyRequests: 3}, codes)
	assert.Equal(t, 3, api.resends)
}

func TestSuccessPagesValidateContinueTarget(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	tests := []struct {
		path     string
		next     string
		wantHref string
	}{
		{"/verify-email/success", "https://app.example.com/start", `href="https://app.example.com/start"`},
		{"/verify-email/success", "https://evil.com/phish", `href="/"`},
		{"/reset-password/success", "/login", `href="/login"`},
		{"/reset-password/success", "//evil.com", `href="/"`},
	}

	for _, tt := range tests {
		t.Run(tt.path+" "+tt.next, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path + "?next=" + url.QueryEscape(tt.next))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, readAll(t, resp), tt.wantHref)
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeAPI{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), `"status":"ok"`)
}
