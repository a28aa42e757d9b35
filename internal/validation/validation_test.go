package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"plain address", "ada@example.com", true},
		{"subdomain", "ops@mail.example.co.uk", true},
		{"empty", "", false},
		{"missing at", "ada.example.com", false},
		{"missing domain", "ada@", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.value, "email")
			if (err == nil) != tt.ok {
				t.Errorf("ValidateEmail(%q) = %v, want ok=%v", tt.value, err, tt.ok)
			}
		})
	}
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"-12345", false},
		{"1.2345", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := ValidateCode(tt.value, 6, "code")
			if (err == nil) != tt.ok {
				t.Errorf("ValidateCode(%q) = %v, want ok=%v", tt.value, err, tt.ok)
			}
		})
	}
}

func TestVerifyRequestCollectsAllErrors(t *testing.T) {
	req := VerifyRequest{Email: "nope", Code: "12"}
	err := req.Validate()

	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation.Errors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.Contains(err.Error(), "email: must be a valid email address") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	ok := VerifyRequest{Email: "ada@example.com", Code: "123456"}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestResendRequest(t *testing.T) {
	if err := (&ResendRequest{Email: "ada@example.com"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&ResendRequest{}).Validate(); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestProfileProbe(t *testing.T) {
	if err := (&ProfileProbe{Body: " "}).Validate(); err == nil {
		t.Error("expected error for blank body")
	}
	if err := (&ProfileProbe{Body: strings.Repeat("x", 64*1024+1)}).Validate(); err == nil {
		t.Error("expected error for oversized body")
	}
	if err := (&ProfileProbe{Body: `{"firstName":"Ada"}`}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestErrorsMessage(t *testing.T) {
	var errs Errors
	if errs.Error() != "validation failed" {
		t.Errorf("unexpected empty message %q", errs.Error())
	}
	errs.Add("", "bad request")
	errs.Add("code", "is required")
	if got := errs.Error(); got != "bad request; code: is required" {
		t.Errorf("unexpected message %q", got)
	}
}
