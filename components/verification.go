package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/jrschumacher/complyhub/internal/verification"
)

// VerificationFormID is the element datastar merges form updates into.
const VerificationFormID = "verification-form"

// VerificationProps feeds VerificationCodeForm.
type VerificationProps struct {
	State verification.State
	// ResendDisabled hides the resend action while the resend budget is spent.
	ResendDisabled bool
}

// VerificationSignals is the datastar signal set posted back by the form.
type VerificationSignals struct {
	FormID string `json:"formId"`
	Action string `json:"action"`
	Index  int    `json:"index"`
	Value  string `json:"value"`
}

// Form actions carried in VerificationSignals.Action.
const (
	ActionInput     = "input"
	ActionPaste     = "paste"
	ActionBackspace = "backspace"
	ActionSubmit    = "submit"
	ActionResend    = "resend"
)

// VerificationCodeForm renders the six digit inputs. Each keystroke posts
// its signals to /api/verify and the server answers with a fresh copy of
// this fragment.
func VerificationCodeForm(p VerificationProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		st := p.State
		if _, err := fmt.Fprintf(w, `<form id="%s" class="auth-card verification" method="post" action="/api/verify"`+
			` data-signals="{formId: '%s', action: '', index: 0, value: ''}"`+
			` data-on-submit__prevent="$action='%s'; @post('/api/verify')">`+
			`<input type="hidden" name="formId" value="%s">`+
			`<h1>Check your email</h1>`,
			VerificationFormID, esc(st.ID), ActionSubmit, esc(st.ID)); err != nil {
			return err
		}
		if st.Email != "" {
			if _, err := fmt.Fprintf(w, `<p>We sent a 6-digit code to <strong>%s</strong>.</p>`, esc(st.Email)); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<div class="code-inputs" role="group" aria-label="Verification code">`); err != nil {
			return err
		}
		for i := 0; i < verification.CodeLength; i++ {
			if err := codeInput(w, st, i); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}

		if st.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" role="alert">%s</p>`, esc(st.Error)); err != nil {
				return err
			}
		}

		disabled := ""
		if st.Submitting || st.Verified {
			disabled = " disabled"
		}
		if _, err := fmt.Fprintf(w, `<button type="submit" class="button primary"%s>Verify</button>`, disabled); err != nil {
			return err
		}
		if !p.ResendDisabled {
			if _, err := fmt.Fprintf(w, `<button type="button" class="link" id="resend"`+
				` data-on-click="$action='%s'; @post('/api/resend')">Resend code</button>`, ActionResend); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</form>`)
		return err
	})
}

// EmailPrompt asks for the address to verify when the link carried none or
// an unusable one. next is carried through as a hidden field.
func EmailPrompt(email, next, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<form class="auth-card verification" id="email-prompt" method="get" action="/verify-email">`+
			`<h1>Verify your email</h1><p>Enter the email address you signed up with.</p>`+
			`<label for="email">Email</label>`+
			`<input id="email" name="email" type="email" autocomplete="email" required value="%s">`,
			esc(email)); err != nil {
			return err
		}
		if next != "" && next != "/" {
			if _, err := fmt.Fprintf(w, `<input type="hidden" name="next" value="%s">`, esc(next)); err != nil {
				return err
			}
		}
		if message != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" role="alert">%s</p>`, esc(message)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<button type="submit" class="button primary">Continue</button></form>`)
		return err
	})
}

func codeInput(w io.Writer, st verification.State, i int) error {
	autofocus := ""
	if i == st.Focus && !st.Verified {
		autofocus = " autofocus"
	}
	_, err := fmt.Fprintf(w, `<input id="code-%d" name="code" type="text" inputmode="numeric"`+
		` autocomplete="one-time-code" maxlength="1" pattern="[0-9]" value="%s" aria-label="Digit %d"%s`+
		` data-on-input="$action='%s'; $index=%d; $value=evt.target.value; @post('/api/verify')"`+
		` data-on-paste__prevent="$action='%s'; $index=%d; $value=evt.clipboardData.getData('text'); @post('/api/verify')"`+
		` data-on-keydown="evt.key==='Backspace' && !evt.target.value && ($action='%s', $index=%d, @post('/api/verify'))">`,
		i, esc(st.Digits[i]), i+1, autofocus,
		ActionInput, i,
		ActionPaste, i,
		ActionBackspace, i)
	return err
}
