// Package markup implements the render-only html strategy. Nothing is
// executed: the markup is checked and echoed back for the caller to render.
//
// The script-tag check is a literal, case-insensitive substring match. It
// is not an HTML parser and event-handler attributes are not inspected.
package markup

import (
	"context"
	"strings"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

const disallowedTag = "<script"

type Strategy struct{}

func New() *Strategy {
	return &Strategy{}
}

func (s *Strategy) Run(_ context.Context, code string, _ map[string]any) (executor.Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return executor.Failed(apperror.ValidationFailed("code", "Empty HTML code"), ""), nil
	}

	if strings.Contains(strings.ToLower(code), disallowedTag) {
		return executor.Failed(apperror.ValidationFailed("code",
			"JavaScript in HTML is not allowed for security reasons: <script> tag found"), ""), nil
	}

	return executor.Outcome{
		Success:     true,
		Output:      "HTML rendered successfully:\n\n" + code,
		HTMLContent: code,
	}, nil
}
