package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("svc_account is required")
		msg := err.Error()
		if msg != "validation failed: svc_account is required" {
			t.Errorf("Error() = %q", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("svc_account is required", "password is required")
		msg := err.Error()
		if !strings.Contains(msg, "\n  - svc_account") || !strings.Contains(msg, "\n  - password") {
			t.Errorf("Error message should list every failure: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(true, "passes").
			AddErrorf("error%d", 2).
			Build()

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(verr.Errors) != 2 {
			t.Errorf("Expected 2 errors, got %d", len(verr.Errors))
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrValidationFailed,
		ErrInvalidConfig,
		ErrNotLoggedIn,
		ErrNotInteractive,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading aruba settings: %w", NewValidationError("msg"))
	if !errors.Is(wrapped, ErrValidationFailed) {
		t.Errorf("wrapped ValidationError should match ErrValidationFailed")
	}
}
