package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/cellexec/internal/executor"
)

// LanguagesResponse is the body of GET /api/languages.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// HealthResponse is the body of GET /api/health. Status is "degraded"
// when at least one language cannot currently run.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Runtimes []executor.RuntimeStatus `json:"runtimes"`
}

type StatusHandler struct {
	exec   Executor
	logger *slog.Logger
}

func NewStatusHandler(exec Executor, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{exec: exec, logger: logger}
}

func (h *StatusHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{Languages: h.exec.Languages()})
}

// HandleHealth always answers 200 while the process is up; a missing
// interpreter only degrades the reported status.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	runtimes := h.exec.Status()

	status := "healthy"
	for _, rt := range runtimes {
		if !rt.Available {
			status = "degraded"
			h.logger.Debug("runtime unavailable",
				slog.String("language", rt.Language),
				slog.String("detail", rt.Detail),
			)
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: status, Runtimes: runtimes})
}
