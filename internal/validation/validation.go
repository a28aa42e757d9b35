// Package validation provides structured validation error handling
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Error represents a validation error with field-specific details
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors represents multiple validation errors
type Errors []Error

// Error implements the error interface
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	var messages []string
	for _, err := range ve {
		if err.Field != "" {
			messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
		} else {
			messages = append(messages, err.Message)
		}
	}

	return strings.Join(messages, "; ")
}

// Add adds a validation error
func (ve *Errors) Add(field, message string) {
	*ve = append(*ve, Error{Field: field, Message: message})
}

// AddError appends err when it is not nil.
func (ve *Errors) AddError(err *Error) {
	if err != nil {
		*ve = append(*ve, *err)
	}
}

// HasErrors returns true if there are validation errors
func (ve Errors) HasErrors() bool {
	return len(ve) > 0
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequired checks if a value is not empty
func ValidateRequired(value string, fieldName string) *Error {
	if strings.TrimSpace(value) == "" {
		return &Error{
			Field:   fieldName,
			Message: "is required",
		}
	}
	return nil
}

// ValidateMaxLength checks if a string doesn't exceed the maximum length
func ValidateMaxLength(value string, maxLength int, fieldName string) *Error {
	if utf8.RuneCountInString(value) > maxLength {
		return &Error{
			Field:   fieldName,
			Message: fmt.Sprintf("must not exceed %d characters", maxLength),
		}
	}
	return nil
}

// ValidateEmail checks the RFC 5322 address shape.
func ValidateEmail(value string, fieldName string) *Error {
	if err := validate.Var(value, "required,email,max=254"); err != nil {
		return &Error{
			Field:   fieldName,
			Message: "must be a valid email address",
		}
	}
	return nil
}

// ValidateCode checks for exactly codeLength ASCII digits.
func ValidateCode(value string, codeLength int, fieldName string) *Error {
	if err := validate.Var(value, fmt.Sprintf("len=%d,number", codeLength)); err != nil {
		return &Error{
			Field:   fieldName,
			Message: fmt.Sprintf("must be %d digits", codeLength),
		}
	}
	return nil
}

// ResendRequest validates a request for a new verification code.
type ResendRequest struct {
	Email string
}

// Validate validates the email field
func (rr *ResendRequest) Validate() error {
	var errors Errors
	errors.AddError(ValidateEmail(rr.Email, "email"))

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// VerifyRequest validates a verification code submission.
type VerifyRequest struct {
	Email string
	Code  string
}

// Validate validates email and code
func (vr *VerifyRequest) Validate() error {
	var errors Errors
	errors.AddError(ValidateEmail(vr.Email, "email"))
	errors.AddError(ValidateCode(vr.Code, 6, "code"))

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// ProfileProbe validates the body the debug profile probe sends.
type ProfileProbe struct {
	Body string
}

// Validate requires a non-empty body under 64KiB.
func (pp *ProfileProbe) Validate() error {
	var errors Errors
	if err := ValidateRequired(pp.Body, "body"); err != nil {
		errors.AddError(err)
	} else {
		errors.AddError(ValidateMaxLength(pp.Body, 64*1024, "body"))
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}
