package debug

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/authstate"
	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/storage"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func token(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("signature"))
}

func seed(t *testing.T, store storage.Store, access string) {
	t.Helper()
	doc := map[string]any{
		"state":   map[string]any{"tokens": map[string]any{"accessToken": access}},
		"version": 0,
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), authstate.StorageKey, string(raw)))
}

func TestReportEmptyStore(t *testing.T) {
	insp := NewInspector(storage.NewMemoryStore(), nil, nil)

	r, err := insp.Report(context.Background())
	require.NoError(t, err)
	assert.False(t, r.HasAuthStorage)
	assert.False(t, r.HasAccessToken)
	assert.False(t, r.RememberMe)
}

func TestReportWithToken(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	exp := fixedNow.Add(30 * time.Minute)
	seed(t, store, token(t, map[string]any{"sub": "user-7", "email": "ada@example.com", "exp": exp.Unix()}))
	require.NoError(t, store.Set(ctx, authstate.RememberMeKey, "true"))
	require.NoError(t, store.Set(ctx, "rate_limit_resend", "[]"))
	require.NoError(t, store.Set(ctx, "rate_limit_verify", "[]"))

	toolkit := security.New(security.WithClock(func() time.Time { return fixedNow }))
	r, err := NewInspector(store, nil, toolkit).Report(ctx)
	require.NoError(t, err)

	assert.True(t, r.HasAuthStorage)
	assert.True(t, r.HasAccessToken)
	assert.True(t, r.ValidStructure)
	assert.False(t, r.Expired)
	require.NotNil(t, r.ExpiresAt)
	assert.True(t, r.ExpiresAt.Equal(exp))
	assert.Equal(t, 30*time.Minute, r.ExpiresIn)
	assert.Equal(t, "user-7", r.Subject)
	assert.Equal(t, "ada@example.com", r.Email)
	assert.True(t, r.RememberMe)
	assert.Equal(t, []string{"resend", "verify"}, r.RateLimitKeys)
	assert.Contains(t, r.TokenPreview, "...")
}

func TestReportExpiredAndMalformed(t *testing.T) {
	toolkit := security.New(security.WithClock(func() time.Time { return fixedNow }))

	t.Run("expired", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seed(t, store, token(t, map[string]any{"exp": fixedNow.Add(-time.Hour).Unix()}))
		r, err := NewInspector(store, nil, toolkit).Report(context.Background())
		require.NoError(t, err)
		assert.True(t, r.Expired)
		assert.Equal(t, -time.Hour, r.ExpiresIn)
	})

	t.Run("opaque token", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seed(t, store, "opaque-session-value")
		r, err := NewInspector(store, nil, toolkit).Report(context.Background())
		require.NoError(t, err)
		assert.True(t, r.HasAccessToken)
		assert.False(t, r.ValidStructure)
		assert.True(t, r.Expired)
		assert.Nil(t, r.ExpiresAt)
	})

	t.Run("corrupt auth storage", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(context.Background(), authstate.StorageKey, "{"))
		r, err := NewInspector(store, nil, toolkit).Report(context.Background())
		require.NoError(t, err)
		assert.True(t, r.HasAuthStorage)
		assert.NotEmpty(t, r.AuthStorageError)
	})
}

func TestProbeProfile(t *testing.T) {
	var gotAuth, gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"email not verified"}`))
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	access := token(t, map[string]any{"exp": fixedNow.Add(-time.Minute).Unix()})
	seed(t, store, access)

	insp := NewInspector(store, apiclient.New(srv.URL), nil)
	res, err := insp.ProbeProfile(context.Background(), map[string]any{"firstName": "Ada"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.JSONEq(t, `{"message":"email not verified"}`, string(res.Body))
	assert.Equal(t, srv.URL+"/auth/profile", res.URL)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer "+access, gotAuth)
	assert.Equal(t, "Ada", gotBody["firstName"])
}

func TestProbeProfileWithoutToken(t *testing.T) {
	insp := NewInspector(storage.NewMemoryStore(), apiclient.New("http://127.0.0.1:0"), nil)
	_, err := insp.ProbeProfile(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, authstate.ErrNoAccessToken)
}
