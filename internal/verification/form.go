// Package verification holds the six-digit verification code entry state
// that backs the email verification screen.
package verification

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jrschumacher/complyhub/internal/logger"
)

// CodeLength is the number of digit fields.
const CodeLength = 6

// User-facing error texts.
const (
	MsgIncomplete = "Please enter all 6 digits"
	MsgNonNumeric = "Verification code must contain only numbers"
	MsgRejected   = "Invalid verification code. Please try again."
)

// VerifyFunc checks a complete code. Returning a *RejectError surfaces its
// message to the user; any other error shows MsgRejected.
type VerifyFunc func(ctx context.Context, code string) error

// ResendFunc requests a fresh code.
type ResendFunc func(ctx context.Context) error

// RejectError carries a message meant for the person typing the code.
type RejectError struct {
	Message string
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return MsgRejected
	}
	return e.Message
}

// Reject builds a RejectError.
func Reject(message string) error {
	return &RejectError{Message: message}
}

// State is a point-in-time copy of the form for rendering.
type State struct {
	ID          string
	Email       string
	ContinueURL string
	Digits      [CodeLength]string
	Focus       int
	Error       string
	Submitting  bool
	Verified    bool
}

// Code joins the digit fields.
func (s State) Code() string {
	return strings.Join(s.Digits[:], "")
}

// Form is the code entry state machine. All methods are safe for concurrent
// use; the verify and resend callbacks run with the form locked so a code
// cannot be submitted twice in parallel.
type Form struct {
	mu sync.Mutex

	id         string
	digits     [CodeLength]string
	focus      int
	errMsg     string
	submitting bool
	verified   bool

	// autoSubmitted latches once a complete code has been sent so the same
	// entry is never submitted twice. Any edit that makes the code
	// incomplete releases it.
	autoSubmitted bool

	email       string
	continueURL string

	onVerify VerifyFunc
	onResend ResendFunc
}

// FormOption customizes a Form.
type FormOption func(*Form)

// WithEmail records the address the code was sent to.
func WithEmail(email string) FormOption {
	return func(f *Form) { f.email = email }
}

// WithContinueURL records where to send the user after verification.
func WithContinueURL(u string) FormOption {
	return func(f *Form) { f.continueURL = u }
}

// NewForm creates an empty form focused on the first field.
func NewForm(id string, onVerify VerifyFunc, onResend ResendFunc, opts ...FormOption) *Form {
	f := &Form{id: id, onVerify: onVerify, onResend: onResend}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID returns the form identifier.
func (f *Form) ID() string { return f.id }

// State returns a copy of the current form state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Form) snapshot() State {
	return State{
		ID:          f.id,
		Email:       f.email,
		ContinueURL: f.continueURL,
		Digits:      f.digits,
		Focus:       f.focus,
		Error:       f.errMsg,
		Submitting:  f.submitting,
		Verified:    f.verified,
	}
}

// Input handles typing into field index. Only the last character of value
// is kept and non-digits are ignored. Filling the last empty field submits
// the code.
func (f *Form) Input(ctx context.Context, index int, value string) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if index < 0 || index >= CodeLength || f.verified {
		return f.snapshot()
	}

	if value == "" {
		f.digits[index] = ""
		f.autoSubmitted = false
		f.focus = index
		return f.snapshot()
	}

	r := []rune(value)
	last := r[len(r)-1]
	if !isDigit(last) {
		return f.snapshot()
	}

	f.digits[index] = string(last)
	f.errMsg = ""
	if index < CodeLength-1 {
		f.focus = index + 1
	}

	f.maybeAutoSubmit(ctx)
	return f.snapshot()
}

// Paste fills fields from the first one with the digits found in text.
// Non-digits are dropped; anything past six digits is ignored.
func (f *Form) Paste(ctx context.Context, text string) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verified {
		return f.snapshot()
	}

	var digits []string
	for _, r := range text {
		if isDigit(r) {
			digits = append(digits, string(r))
			if len(digits) == CodeLength {
				break
			}
		}
	}
	if len(digits) == 0 {
		return f.snapshot()
	}

	f.digits = [CodeLength]string{}
	copy(f.digits[:], digits)
	f.errMsg = ""
	f.autoSubmitted = false
	f.focus = min(len(digits), CodeLength-1)

	f.maybeAutoSubmit(ctx)
	return f.snapshot()
}

// Backspace clears field index, or moves back and clears the previous field
// when index is already empty.
func (f *Form) Backspace(index int) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if index < 0 || index >= CodeLength || f.verified {
		return f.snapshot()
	}

	switch {
	case f.digits[index] != "":
		f.digits[index] = ""
		f.focus = index
	case index > 0:
		f.digits[index-1] = ""
		f.focus = index - 1
	}
	f.autoSubmitted = false
	return f.snapshot()
}

// Submit verifies the current code. Every failure clears all fields and
// focuses the first one.
func (f *Form) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.submit(ctx)
	return f.snapshot(), err
}

// SubmitCode replaces the fields with code, one character per field, and
// submits it. It serves plain form posts where the browser sends the whole
// code at once.
func (f *Form) SubmitCode(ctx context.Context, code string) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.digits = [CodeLength]string{}
	for i, r := range []rune(strings.TrimSpace(code)) {
		if i == CodeLength {
			break
		}
		f.digits[i] = string(r)
	}
	f.autoSubmitted = true

	err := f.submit(ctx)
	return f.snapshot(), err
}

// Resend asks for a new code and resets the fields on success.
func (f *Form) Resend(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.onResend != nil {
		if err := f.onResend(ctx); err != nil {
			f.errMsg = userMessage(err, "Failed to resend code. Please try again.")
			return f.snapshot(), err
		}
	}

	f.reset()
	f.errMsg = ""
	return f.snapshot(), nil
}

func (f *Form) maybeAutoSubmit(ctx context.Context) {
	if f.autoSubmitted || !f.complete() {
		return
	}
	f.autoSubmitted = true
	_ = f.submit(ctx)
}

func (f *Form) submit(ctx context.Context) error {
	if f.verified {
		return nil
	}

	code := strings.Join(f.digits[:], "")
	if !f.complete() {
		return f.fail(errors.New(MsgIncomplete), MsgIncomplete)
	}
	if !isNumeric(code) {
		return f.fail(errors.New(MsgNonNumeric), MsgNonNumeric)
	}
	if f.onVerify == nil {
		f.verified = true
		return nil
	}

	f.submitting = true
	err := f.onVerify(ctx, code)
	f.submitting = false

	if err != nil {
		logger.Debug("Verification code rejected", "form_id", f.id, "error", err)
		return f.fail(err, userMessage(err, MsgRejected))
	}

	f.verified = true
	f.errMsg = ""
	return nil
}

func (f *Form) fail(err error, msg string) error {
	f.errMsg = msg
	f.reset()
	return err
}

func (f *Form) reset() {
	f.digits = [CodeLength]string{}
	f.focus = 0
	f.autoSubmitted = false
}

func (f *Form) complete() bool {
	for _, d := range f.digits {
		if d == "" {
			return false
		}
	}
	return true
}

func userMessage(err error, fallback string) string {
	var reject *RejectError
	if errors.As(err, &reject) && reject.Message != "" {
		return reject.Message
	}
	return fallback
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}
