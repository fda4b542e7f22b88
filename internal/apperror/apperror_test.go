package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "RuntimeMissing wraps ErrRuntimeMissing",
			err:       RuntimeMissing("R", "Rscript", "R"),
			target:    ErrRuntimeMissing,
			wantMatch: true,
		},
		{
			name:      "Timeout wraps ErrTimeout",
			err:       Timeout("JavaScript", 30*time.Second),
			target:    ErrTimeout,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("language", "language is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "wrapped ProcessFailure still matches",
			err:       fmt.Errorf("running cell: %w", ProcessFailure("boom")),
			target:    ErrProcessFailure,
			wantMatch: true,
		},
		{
			name:      "Timeout does NOT match ErrCancelled",
			err:       Timeout("R", time.Second),
			target:    ErrCancelled,
			wantMatch: false,
		},
		{
			name:      "Cancelled does NOT match ErrTimeout",
			err:       Cancelled("Python"),
			target:    ErrTimeout,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "RuntimeMissing names the runtime and binary",
			err:         RuntimeMissing("Node.js", "node", "JavaScript"),
			wantMessage: `Node.js not found (looked for "node"). Please install Node.js to execute JavaScript code.`,
		},
		{
			name:        "Timeout names whole seconds",
			err:         Timeout("JavaScript", 30*time.Second),
			wantMessage: "JavaScript code execution timed out after 30 seconds",
		},
		{
			name:        "Timeout names fractional seconds",
			err:         Timeout("R", 250*time.Millisecond),
			wantMessage: "R code execution timed out after 0.25 seconds",
		},
		{
			name:        "Cancelled names the language",
			err:         Cancelled("Python"),
			wantMessage: "Python code execution was cancelled",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("code", "code is too long"),
			wantMessage: "code is too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := Unauthorized("missing bearer token")
	if unwrapped := err.Unwrap(); unwrapped != ErrUnauthorized {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrUnauthorized)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("language", "language is required")
	if err.Field != "language" {
		t.Errorf("Field = %q, want %q", err.Field, "language")
	}
}
