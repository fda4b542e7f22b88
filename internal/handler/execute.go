// Package handler contains the HTTP handlers of the execution bridge.
//
// Handlers only parse requests and write responses; execution itself is
// delegated to an Executor, normally the dispatcher.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

// Executor is the part of the dispatcher the bridge needs.
// *executor.Dispatcher satisfies it; tests use a mock.
type Executor interface {
	Execute(ctx context.Context, req executor.Request) *executor.Result
	Languages() []string
	Status() []executor.RuntimeStatus
}

// contextAllowance is the body budget on top of the code itself, for the
// JSON envelope and the context map.
const contextAllowance = 1 << 20

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	exec         Executor
	maxCodeBytes int
	logger       *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler. Requests whose code is
// longer than maxCodeBytes are rejected with 400.
func NewExecuteHandler(exec Executor, maxCodeBytes int, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:         exec,
		maxCodeBytes: maxCodeBytes,
		logger:       logger,
	}
}

// HandleExecute runs one cell.
//
// Once the request is well-formed the response is always 200: failures of
// the user's code (and unsupported languages) are reported inside the
// result, not through the status code.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxCodeBytes)+contextAllowance)

	var req executor.Request
	dec := json.NewDecoder(r.Body)
	// Keep context numbers exact; strategies decide int vs float.
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("body", "request body too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	if req.Language == "" {
		writeError(w, apperror.ValidationFailed("language", "language is required"))
		return
	}
	if len(req.Code) > h.maxCodeBytes {
		writeError(w, apperror.ValidationFailed("code",
			fmt.Sprintf("code exceeds the %d byte limit", h.maxCodeBytes)))
		return
	}

	result := h.exec.Execute(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}
