package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// PasswordResetSuccess confirms a completed password reset. The continue
// button points at continueURL, which callers must have validated.
func PasswordResetSuccess(continueURL string) templ.Component {
	return successCard(
		"Password reset successful",
		"Your password has been updated. You can now sign in with your new password.",
		"Continue to sign in",
		continueURL,
	)
}

// EmailVerificationSuccess confirms a verified email address.
func EmailVerificationSuccess(continueURL string) templ.Component {
	return successCard(
		"Email verified",
		"Thanks for confirming your email address. Your account is ready.",
		"Continue",
		continueURL,
	)
}

func successCard(heading, body, action, continueURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if continueURL == "" {
			continueURL = "/"
		}
		_, err := fmt.Fprintf(w, `<section class="auth-card success" role="status">`+
			`<div class="success-icon" aria-hidden="true">&#10003;</div>`+
			`<h1>%s</h1><p>%s</p>`+
			`<a class="button primary" id="continue" href="%s">%s</a></section>`,
			esc(heading), esc(body), esc(string(templ.URL(continueURL))), esc(action))
		return err
	})
}
