// Package server assembles the HTTP server: shared middleware, the auth
// screens and health checks.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrschumacher/complyhub/components"
	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/authstate"
	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/middleware"
	"github.com/jrschumacher/complyhub/internal/ratelimit"
	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/storage"
	"github.com/jrschumacher/complyhub/internal/verification"
	auth "github.com/jrschumacher/complyhub/server/auth-handlers"
	health "github.com/jrschumacher/complyhub/server/health-handlers"
)

const shutdownTimeout = 10 * time.Second

// Server holds the wired dependencies behind the HTTP handler.
type Server struct {
	cfg     *config.Config
	store   storage.Store
	toolkit *security.Toolkit
	limiter *ratelimit.Limiter
	api     auth.AuthAPI
	forms   *verification.Registry
	handler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithToolkit overrides the security toolkit, mainly to pin the clock.
func WithToolkit(k *security.Toolkit) Option {
	return func(s *Server) { s.toolkit = k }
}

// WithAuthAPI replaces the HTTP auth API client.
func WithAuthAPI(api auth.AuthAPI) Option {
	return func(s *Server) { s.api = api }
}

// New wires a server over store.
func New(cfg *config.Config, store storage.Store, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		forms: verification.NewRegistry(auth.FormTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.toolkit == nil {
		s.toolkit = security.New()
	}
	if s.api == nil {
		s.api = apiclient.New(cfg.APIEndpoint)
	}
	s.limiter = ratelimit.New(store,
		ratelimit.WithClock(s.toolkit.Now),
		ratelimit.WithDefaults(cfg.RateLimitWindow, cfg.RateLimitMaxAttempts))

	logger.Info("Security strategies selected",
		"strong_random", s.toolkit.RandomIsStrong(),
		"strong_hash", s.toolkit.HashIsStrong())

	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	reader := authstate.NewReader(s.store)

	layout := middleware.LayoutMiddleware(s.pageProps)
	pages := middleware.NewRouteGroup(mux,
		middleware.UserContextMiddleware(reader, s.toolkit),
		layout,
	)
	api := middleware.NewRouteGroup(mux)

	auth.RegisterRoutes(pages, api, mux, "", s.cfg, auth.Deps{
		API:     s.api,
		Limiter: s.limiter,
		Forms:   s.forms,
		Layout: middleware.NewChain(
			middleware.UserContextMiddleware(reader, s.toolkit),
			layout,
		).Then,
	})
	health.RegisterRoutes(mux, "", s.cfg, s.store)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		target := "/verify-email"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})

	return middleware.NewChain(
		middleware.RequestID,
		middleware.AccessLog,
		middleware.SecurityHeaders(s.cfg.AllowedDomains, components.DatastarScriptSources...),
	).Then(mux)
}

func (s *Server) pageProps(r *http.Request) components.PageProps {
	p := components.PageProps{
		AppEnv: s.cfg.AppEnv,
		Year:   s.toolkit.Now().Year(),
		Title:  pageTitles[r.URL.Path],
	}
	if userCtx, ok := middleware.GetUserContext(r); ok && !userCtx.Expired {
		p.Email = userCtx.Email
	}
	return p
}

var pageTitles = map[string]string{
	"/verify-email":           "Verify your email",
	"/verify-email/success":   "Email verified",
	"/reset-password/success": "Password reset",
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", addr, "env", s.cfg.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// Start opens the configured store and serves until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.StorageDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	return New(cfg, store).Run(ctx, ":"+cfg.Port)
}
