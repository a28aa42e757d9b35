package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/jrschumacher/complyhub/components"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/security"
)

// RequestIDHeader echoes the per-request ID back to the caller.
const RequestIDHeader = "X-Request-ID"

const requestIDKey contextKey = "request_id"

// RequestID assigns every request an ID, reusing a well-formed inbound one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the ID RequestID stored on the request.
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// SecurityHeaders emits the Content-Security-Policy built from the allowed
// domains and extra script sources, plus the usual hardening headers.
func SecurityHeaders(allowedDomains []string, scriptSources ...string) func(http.Handler) http.Handler {
	csp := security.CSPHeader(allowedDomains, scriptSources...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE responses streaming through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog logs one line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", GetRequestID(r))
	})
}

// LayoutMiddleware wraps a handler's HTML output in components.Page. Non-200
// responses pass through unwrapped.
func LayoutMiddleware(props func(*http.Request) components.PageProps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := httptest.NewRecorder()
			next.ServeHTTP(rw, r)

			for k, v := range rw.Header() {
				w.Header()[k] = v
			}
			if rw.Code != http.StatusOK {
				w.WriteHeader(rw.Code)
				_, _ = w.Write(rw.Body.Bytes())
				return
			}

			p := props(r)
			p.Content = templ.ComponentFunc(func(_ context.Context, wtr io.Writer) error {
				_, err := wtr.Write(rw.Body.Bytes())
				return err
			})

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := components.Page(p).Render(r.Context(), w); err != nil {
				logger.Error("Failed to render layout", "error", err, "path", r.URL.Path)
				http.Error(w, "Failed to render page", http.StatusInternalServerError)
			}
		})
	}
}
