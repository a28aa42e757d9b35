package middleware

import (
	"context"
	"net/http"
)

// TestUserContextMiddleware injects a fixed user context for handler tests.
func TestUserContextMiddleware(email string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx := &UserContext{
				Subject: "test-user",
				Email:   email,
			}
			ctx := context.WithValue(r.Context(), userContextKey, userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
