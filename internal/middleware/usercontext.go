package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrschumacher/complyhub/internal/authstate"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/security"
)

// UserContext holds what the stored access token says about the user.
// Nothing in it is verified; it drives presentation only.
type UserContext struct {
	Subject    string
	Email      string
	ExpiresAt  time.Time
	Expired    bool
	RememberMe bool
}

type contextKey string

const userContextKey contextKey = "user"

// UserContextMiddleware reads the stored auth state and, when an access
// token is present, adds a UserContext to the request context.
func UserContextMiddleware(reader *authstate.Reader, toolkit *security.Toolkit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := reader.AccessToken(r.Context())
			if err != nil {
				if !errors.Is(err, authstate.ErrNoAccessToken) {
					logger.Warn("Failed to read auth state", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			userCtx := &UserContext{
				Expired:    toolkit.IsJWTExpired(token),
				RememberMe: reader.RememberMe(r.Context()),
			}
			if claims, err := security.ParseClaims(token); err == nil {
				userCtx.Subject = claims.Subject
				userCtx.Email = claims.Email
				userCtx.ExpiresAt = claims.Expiry
			} else {
				logger.Debug("Stored access token is not a parseable JWT", "error", err)
			}

			ctx := context.WithValue(r.Context(), userContextKey, userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserContext extracts user context from request context
func GetUserContext(r *http.Request) (*UserContext, bool) {
	userCtx, ok := r.Context().Value(userContextKey).(*UserContext)
	return userCtx, ok
}

// RequireFreshSession redirects to loginPath when there is no stored token
// or it has expired.
func RequireFreshSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := GetUserContext(r)
			if !ok || userCtx.Expired {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
