package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	datastar "github.com/starfederation/datastar/sdk/go"

	"github.com/jrschumacher/complyhub/components"
	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/httputil"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/middleware"
	"github.com/jrschumacher/complyhub/internal/ratelimit"
	"github.com/jrschumacher/complyhub/internal/security"
	"github.com/jrschumacher/complyhub/internal/svrlib"
	"github.com/jrschumacher/complyhub/internal/validation"
	"github.com/jrschumacher/complyhub/internal/verification"
)

const (
	msgTooManyAttempts = "Too many attempts. Please wait before trying again."
	msgTooManyResends  = "Please wait before requesting another code."
	msgResendFailed    = "Failed to resend code. Please try again."
	msgInvalidEmail    = "Please enter a valid email address."

	// FormTTL is how long an idle verification form is kept.
	FormTTL = 30 * time.Minute
)

// AuthAPI is the subset of the auth API the screens call.
type AuthAPI interface {
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
}

// Deps are the collaborators the auth screens need.
type Deps struct {
	API     AuthAPI
	Limiter *ratelimit.Limiter
	Forms   *verification.Registry
	// Layout wraps full-page responses. Nil renders bare fragments.
	Layout func(http.Handler) http.Handler
}

// AuthRouter serves the verification and success screens.
type AuthRouter struct {
	*svrlib.Router
	api     AuthAPI
	limiter *ratelimit.Limiter
	forms   *verification.Registry
	layout  func(http.Handler) http.Handler
}

// RegisterRoutes registers the auth screens on pages and the datastar
// endpoints on api.
func RegisterRoutes(pages, api Registrar, mux *http.ServeMux, prefix string, cfg *config.Config, deps Deps) *AuthRouter {
	router := &AuthRouter{
		Router:  svrlib.NewRouter(mux, prefix, cfg),
		api:     deps.API,
		limiter: deps.Limiter,
		forms:   deps.Forms,
		layout:  deps.Layout,
	}
	if router.layout == nil {
		router.layout = func(h http.Handler) http.Handler { return h }
	}

	pages.Handle("GET "+router.Path("/verify-email"), http.HandlerFunc(router.VerifyEmailPage))
	pages.Handle("GET "+router.Path("/verify-email/success"), http.HandlerFunc(router.VerifyEmailSuccessPage))
	pages.Handle("GET "+router.Path("/reset-password/success"), http.HandlerFunc(router.ResetPasswordSuccessPage))

	resendKey := middleware.ClientIPKey("resend", middleware.ParseTrustedProxies(cfg.TrustedProxies))
	resendLimit := middleware.RateLimit(deps.Limiter, resendKey, cfg.RateLimitWindow, cfg.RateLimitMaxAttempts)
	api.Handle("POST "+router.Path("/api/verify"), http.HandlerFunc(router.VerifyHandler))
	api.Handle("POST "+router.Path("/api/resend"), resendLimit(http.HandlerFunc(router.ResendHandler)))
	return router
}

// Registrar is satisfied by *http.ServeMux and *middleware.RouteGroup.
type Registrar interface {
	Handle(pattern string, handler http.Handler)
}

// VerifyEmailPage renders a fresh code form for ?email=, or a prompt for the
// address when it is missing or malformed.
func (rt *AuthRouter) VerifyEmailPage(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	next := ContinueTarget(r.URL.Query().Get("next"), rt.Config.AllowedDomains)

	if email == "" {
		rt.render(w, r, components.EmailPrompt("", next, ""))
		return
	}
	if err := validation.ValidateEmail(email, "email"); err != nil {
		logger.Debug("Rejected verification email", "error", err)
		rt.render(w, r, components.EmailPrompt(email, next, msgInvalidEmail))
		return
	}

	form := rt.forms.Create(rt.verifyFunc(email), rt.resendFunc(email),
		verification.WithEmail(email),
		verification.WithContinueURL(next))

	logger.Debug("Verification form created", "form_id", form.ID())
	rt.render(w, r, components.VerificationCodeForm(components.VerificationProps{State: form.State()}))
}

// VerifyEmailSuccessPage confirms the email address.
func (rt *AuthRouter) VerifyEmailSuccessPage(w http.ResponseWriter, r *http.Request) {
	next := ContinueTarget(r.URL.Query().Get("next"), rt.Config.AllowedDomains)
	rt.render(w, r, components.EmailVerificationSuccess(next))
}

// ResetPasswordSuccessPage confirms a password reset.
func (rt *AuthRouter) ResetPasswordSuccessPage(w http.ResponseWriter, r *http.Request) {
	next := ContinueTarget(r.URL.Query().Get("next"), rt.Config.AllowedDomains)
	rt.render(w, r, components.PasswordResetSuccess(next))
}

// VerifyHandler applies one form action. Datastar requests get the form
// fragment back over SSE; plain form posts get a redirect or a re-rendered
// form.
func (rt *AuthRouter) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	if !isDatastar(r) {
		rt.verifyFormPost(w, r)
		return
	}

	var signals components.VerificationSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid signals")
		return
	}
	form, ok := rt.forms.Get(signals.FormID)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Verification form expired. Reload the page.")
		return
	}

	ctx := r.Context()
	var st verification.State
	switch signals.Action {
	case components.ActionInput:
		st = form.Input(ctx, signals.Index, signals.Value)
	case components.ActionPaste:
		st = form.Paste(ctx, signals.Value)
	case components.ActionBackspace:
		st = form.Backspace(signals.Index)
	case components.ActionSubmit, "":
		st, _ = form.Submit(ctx)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	rt.stream(w, r, st)
}

// ResendHandler asks the API for a new code and redraws the form.
func (rt *AuthRouter) ResendHandler(w http.ResponseWriter, r *http.Request) {
	var formID string
	if isDatastar(r) {
		var signals components.VerificationSignals
		if err := datastar.ReadSignals(r, &signals); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "Invalid signals")
			return
		}
		formID = signals.FormID
	} else {
		formID = r.PostFormValue("formId")
	}

	form, ok := rt.forms.Get(formID)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Verification form expired. Reload the page.")
		return
	}

	st, err := form.Resend(r.Context())
	if err != nil {
		logger.Warn("Resend failed", "form_id", formID, "error", err)
	}

	if isDatastar(r) {
		rt.stream(w, r, st)
		return
	}
	rt.renderPage(w, r, components.VerificationCodeForm(components.VerificationProps{State: st}))
}

func (rt *AuthRouter) verifyFormPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	form, ok := rt.forms.Get(r.PostForm.Get("formId"))
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Verification form expired. Reload the page.")
		return
	}

	st, _ := form.SubmitCode(r.Context(), strings.Join(r.PostForm["code"], ""))
	if st.Verified {
		rt.forms.Delete(st.ID)
		http.Redirect(w, r, successURL(rt.Path("/verify-email/success"), st.ContinueURL), http.StatusSeeOther)
		return
	}
	rt.renderPage(w, r, components.VerificationCodeForm(components.VerificationProps{State: st}))
}

func (rt *AuthRouter) stream(w http.ResponseWriter, r *http.Request, st verification.State) {
	sse := datastar.NewSSE(w, r)

	if st.Verified {
		rt.forms.Delete(st.ID)
		if err := sse.Redirect(successURL(rt.Path("/verify-email/success"), st.ContinueURL)); err != nil {
			logger.Error("Failed to send redirect", "error", err)
		}
		return
	}

	props := components.VerificationProps{State: st}
	if err := sse.MergeFragmentTempl(components.VerificationCodeForm(props)); err != nil {
		logger.Error("Failed to merge verification form", "error", err, "form_id", st.ID)
	}
}

// renderPage renders c inside the layout for routes registered without it.
func (rt *AuthRouter) renderPage(w http.ResponseWriter, r *http.Request, c templ.Component) {
	rt.layout(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.render(w, r, c)
	})).ServeHTTP(w, r)
}

func (rt *AuthRouter) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Failed to render page", "error", err, "path", r.URL.Path)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// verifyFunc checks the per-email attempt budget before calling the API and
// turns API rejections into messages for the form.
func (rt *AuthRouter) verifyFunc(email string) verification.VerifyFunc {
	return func(ctx context.Context, code string) error {
		if rt.limiter != nil && rt.limiter.IsRateLimited(ctx, "verify_"+email, rt.Config.RateLimitWindow, rt.Config.RateLimitMaxAttempts) {
			return verification.Reject(msgTooManyAttempts)
		}

		if err := rt.api.VerifyEmail(ctx, email, code); err != nil {
			return rejection(err, verification.MsgRejected)
		}
		return nil
	}
}

func (rt *AuthRouter) resendFunc(email string) verification.ResendFunc {
	return func(ctx context.Context) error {
		if rt.limiter != nil && rt.limiter.IsRateLimited(ctx, "resend_"+email, rt.Config.RateLimitWindow, rt.Config.RateLimitMaxAttempts) {
			return verification.Reject(msgTooManyResends)
		}
		if err := rt.api.ResendVerification(ctx, email); err != nil {
			return rejection(err, msgResendFailed)
		}
		return nil
	}
}

// rejection surfaces the API's message; transport failures get fallback.
func rejection(err error, fallback string) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return verification.Reject(apiErr.Message)
	}
	logger.Warn("Auth API call failed", "error", err)
	return verification.Reject(fallback)
}

// ContinueTarget returns raw when it is a same-site path or an absolute URL
// on an allowed domain, and "/" otherwise.
func ContinueTarget(raw string, allowedDomains []string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "/"
	case strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.Contains(raw, `\`):
		return raw
	case security.IsCSPCompliantURL(raw, allowedDomains):
		if u, err := url.Parse(raw); err == nil && (u.Scheme == "https" || u.Scheme == "http") {
			return raw
		}
	}
	logger.Warn("Rejected continue target", "next", raw)
	return "/"
}

func successURL(path, next string) string {
	if next == "" || next == "/" {
		return path
	}
	return path + "?next=" + url.QueryEscape(next)
}

func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}
