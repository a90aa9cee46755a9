package runner

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/knock/internal/ui"
	"github.com/rileyhilliard/knock/pkg/probe"
)

// SummaryConfig controls summary rendering.
type SummaryConfig struct {
	// ShowAttempts includes the attempt log for failed probes.
	ShowAttempts bool
}

// RenderSummary prints a formatted summary of a parallel run to stdout.
func RenderSummary(result *Result) {
	RenderSummaryTo(os.Stdout, result, SummaryConfig{ShowAttempts: true})
}

// RenderSummaryTo prints a formatted summary to the given writer.
func RenderSummaryTo(w io.Writer, result *Result, cfg SummaryConfig) {
	if result == nil {
		return
	}

	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Foreground(ui.ColorSecondary).Bold(true)

	divider := mutedStyle.Render(strings.Repeat("─", 60))

	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render("Probe Summary"))
	fmt.Fprintln(w)

	// Sort by name for stable output
	sorted := make([]JobResult, len(result.JobResults))
	copy(sorted, result.JobResults)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	for i := range sorted {
		jr := &sorted[i]
		renderJobResult(w, jr, cfg, mutedStyle)
	}

	fmt.Fprintln(w)

	total := len(result.JobResults)
	failedStyle := mutedStyle
	if result.Failed > 0 {
		failedStyle = errorStyle
	}

	fmt.Fprintf(w, "  %s %d connected  %s %d failed  %s %d total  %s\n",
		successStyle.Render(ui.SymbolSuccess),
		result.Connected,
		failedStyle.Render(ui.SymbolFail),
		result.Failed,
		mutedStyle.Render(ui.SymbolComplete),
		total,
		mutedStyle.Render(fmt.Sprintf("(%s)", ui.FormatDuration(result.Duration))),
	)

	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
}

func renderJobResult(w io.Writer, jr *JobResult, cfg SummaryConfig, mutedStyle lipgloss.Style) {
	if jr.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
		fmt.Fprintf(w, "  %s %s %s\n",
			errorStyle.Render(ui.SymbolFail),
			jr.Name,
			mutedStyle.Render(jr.Err.Error()),
		)
		return
	}

	v := jr.Verdict
	style := ui.OutcomeStyle(v.FinalOutcome)

	fmt.Fprintf(w, "  %s %s %s %s\n",
		style.Render(ui.OutcomeSymbol(v.FinalOutcome)),
		jr.Name,
		style.Render(ui.OutcomeLabel(v.FinalOutcome)),
		mutedStyle.Render(fmt.Sprintf("(%s)", ui.FormatDuration(jr.Duration))),
	)

	if cfg.ShowAttempts && v.FinalOutcome != probe.Connected {
		for _, line := range v.AttemptLines() {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(line))
		}
	}
}

// FormatBriefSummary returns a one-line summary string.
func FormatBriefSummary(result *Result) string {
	if result == nil {
		return "No results"
	}

	total := len(result.JobResults)
	if result.Failed == 0 {
		return fmt.Sprintf("%d/%d targets connected (%s)",
			result.Connected, total, ui.FormatDuration(result.Duration))
	}

	return fmt.Sprintf("%d connected, %d failed of %d targets (%s)",
		result.Connected, result.Failed, total, ui.FormatDuration(result.Duration))
}
