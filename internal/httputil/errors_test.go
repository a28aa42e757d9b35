package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrschumacher/complyhub/internal/validation"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "no such form", "form_id", "abc")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	body := decode(t, rec)
	if body.Error != "Not Found" || body.Message != "no such form" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestWriteValidationError(t *testing.T) {
	var errs validation.Errors
	errs.Add("code", "must be 6 digits")

	rec := httptest.NewRecorder()
	WriteValidationError(rec, errs)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if len(body.Details) != 1 || body.Details[0].Field != "code" {
		t.Errorf("unexpected details %+v", body.Details)
	}
}

func TestWriteInternalErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec, errors.New("dial tcp: secret-host:5432"), "Storage unavailable")

	body := decode(t, rec)
	if body.Message != "Storage unavailable" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestWriteTooManyRequests(t *testing.T) {
	tests := []struct {
		retry time.Duration
		want  string
	}{
		{1500 * time.Millisecond, "2"},
		{30 * time.Second, "30"},
		{0, ""},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteTooManyRequests(rec, tt.retry, "slow down")

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != tt.want {
			t.Errorf("Retry-After for %v = %q, want %q", tt.retry, got, tt.want)
		}
	}
}
