// Package apperror defines the failure taxonomy shared by every execution
// strategy and by the HTTP bridge.
//
// Callers of the dispatcher only ever see the rendered message (the
// result's error text), so every constructor here produces a deterministic
// message that names the offending language, runtime or timeout value.
// The sentinels exist for code paths that still hold the Go error, such as
// the bridge's writeError and the dispatcher's log lines.
package apperror

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrRuntimeMissing      = errors.New("runtime missing")
	ErrTimeout             = errors.New("timeout")
	ErrCancelled           = errors.New("cancelled")
	ErrProcessFailure      = errors.New("process failure")
	ErrValidation          = errors.New("Validation Error")
	ErrUnauthorized        = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable, returned verbatim to callers
	Field   string // optional: request field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// RuntimeMissing reports that an external interpreter is not installed on
// the host. This is a host configuration failure, not a code error.
//
//	RuntimeMissing("Node.js", "node", "JavaScript")
//	→ Node.js not found (looked for "node"). Please install Node.js to execute JavaScript code.
func RuntimeMissing(runtime, binary, language string) *AppError {
	return &AppError{
		Err: ErrRuntimeMissing,
		Message: fmt.Sprintf("%s not found (looked for %q). Please install %s to execute %s code.",
			runtime, binary, runtime, language),
	}
}

// Timeout reports that an execution exceeded the configured budget.
// The message always carries the configured value in seconds.
func Timeout(language string, limit time.Duration) *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: fmt.Sprintf("%s code execution timed out after %s seconds", language, Seconds(limit)),
	}
}

// Cancelled reports that the caller abandoned the execution before it
// finished (for example, the HTTP client went away).
func Cancelled(language string) *AppError {
	return &AppError{
		Err:     ErrCancelled,
		Message: fmt.Sprintf("%s code execution was cancelled", language),
	}
}

// ProcessFailure wraps a diagnostic produced by the user's code: a non-zero
// exit, a raised exception or a failed statement.
func ProcessFailure(message string) *AppError {
	return &AppError{
		Err:     ErrProcessFailure,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized is returned by the bridge when a bearer token is required
// and missing or invalid. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Seconds renders a duration as a plain decimal number of seconds:
// 30s → "30", 1500ms → "1.5".
func Seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
