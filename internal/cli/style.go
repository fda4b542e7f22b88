package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

var (
	// Colors
	primary = lipgloss.Color("#7C3AED")
	green   = lipgloss.Color("#10B981")
	red     = lipgloss.Color("#EF4444")
	dim     = lipgloss.Color("#6B7280")

	title     = lipgloss.NewStyle().Bold(true).Foreground(primary)
	healthy   = lipgloss.NewStyle().Foreground(green).Bold(true)
	unhealthy = lipgloss.NewStyle().Foreground(red).Bold(true)
	dimText   = lipgloss.NewStyle().Foreground(dim)

	dotHealthy   = healthy.Render("●")
	dotUnhealthy = unhealthy.Render("●")

	card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#374151")).
		Padding(0, 1)
	cardFailed = card.BorderForeground(red)
)

// renderResult is the --pretty form of a result: a status line, then the
// output and the error in separate boxes.
func renderResult(language string, res *executor.Result) string {
	var b strings.Builder

	status := healthy.Render("success")
	dot := dotHealthy
	if !res.Success {
		status = unhealthy.Render("failed")
		dot = dotUnhealthy
	}
	fmt.Fprintf(&b, "%s %s %s %s\n", dot, title.Render(language), status,
		dimText.Render(apperror.Seconds(res.ExecutionTime)+"s"))

	if out := strings.TrimRight(res.Output, "\n"); out != "" {
		b.WriteString(card.Render(out))
		b.WriteString("\n")
	}
	if res.Error != "" {
		b.WriteString(cardFailed.Render(strings.TrimRight(res.Error, "\n")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(statuses []executor.RuntimeStatus) string {
	var b strings.Builder
	b.WriteString(title.Render("cellexec runtimes"))
	b.WriteString("\n\n")

	for _, st := range statuses {
		if st.Available {
			fmt.Fprintf(&b, "  %s %s\n", dotHealthy, st.Language)
			continue
		}
		fmt.Fprintf(&b, "  %s %s %s\n", dotUnhealthy, st.Language, dimText.Render(st.Detail))
	}
	return strings.TrimRight(b.String(), "\n")
}
