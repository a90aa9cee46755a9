package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/knock/pkg/probe"
)

// VerdictConfig controls how a verdict is rendered.
type VerdictConfig struct {
	// ShowAttempts includes the per-credential attempt log.
	ShowAttempts bool
	// ShowFingerprint includes the observed host key fingerprint.
	ShowFingerprint bool
}

// DefaultVerdictConfig returns the verbose default used by the probe command.
func DefaultVerdictConfig() VerdictConfig {
	return VerdictConfig{ShowAttempts: true, ShowFingerprint: true}
}

// OutcomeLabel returns a short human label for a final outcome.
func OutcomeLabel(outcome probe.FinalOutcome) string {
	switch outcome {
	case probe.Connected:
		return "connected"
	case probe.AuthFailed:
		return "authentication failed"
	case probe.NetworkUnreachable:
		return "network unreachable"
	case probe.HostKeyMismatch:
		return "host key mismatch"
	case probe.Timeout:
		return "timed out"
	default:
		return string(outcome)
	}
}

// OutcomeStyle returns the lipgloss style for a final outcome.
func OutcomeStyle(outcome probe.FinalOutcome) lipgloss.Style {
	switch outcome {
	case probe.Connected:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case probe.HostKeyMismatch:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return lipgloss.NewStyle().Foreground(ColorError)
	}
}

// OutcomeSymbol returns the status symbol for a final outcome.
func OutcomeSymbol(outcome probe.FinalOutcome) string {
	switch outcome {
	case probe.Connected:
		return SymbolSuccess
	case probe.HostKeyMismatch:
		return SymbolWarning
	default:
		return SymbolFail
	}
}

// RenderVerdict writes a human-readable verdict block for one target.
func RenderVerdict(w io.Writer, v *probe.Verdict, cfg VerdictConfig) {
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	style := OutcomeStyle(v.FinalOutcome)

	// Headline: [symbol] user@host:port outcome (elapsed)
	fmt.Fprintf(w, "%s %s@%s %s %s\n",
		style.Render(OutcomeSymbol(v.FinalOutcome)),
		v.Username,
		v.Target.Addr(),
		style.Render(OutcomeLabel(v.FinalOutcome)),
		mutedStyle.Render(fmt.Sprintf("(%s)", FormatDuration(v.Elapsed))),
	)

	if cfg.ShowFingerprint && v.HostKeyFingerprint != "" {
		trust := string(v.HostKeyTrust)
		fmt.Fprintf(w, "  %s\n",
			mutedStyle.Render(fmt.Sprintf("host key %s (%s)", v.HostKeyFingerprint, trust)))
	}

	if cfg.ShowAttempts {
		for _, line := range v.AttemptLines() {
			fmt.Fprintf(w, "  %s\n", mutedStyle.Render(line))
		}
	}

	if v.FinalOutcome == probe.Connected && v.SessionConfirmed {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render("session confirmed"))
	}
}

// RenderVerdictLine returns a compact single-line rendering, used when
// probing many targets.
func RenderVerdictLine(v *probe.Verdict) string {
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	style := OutcomeStyle(v.FinalOutcome)

	var b strings.Builder
	b.WriteString(style.Render(OutcomeSymbol(v.FinalOutcome)))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%s@%s", v.Username, v.Target.Addr()))
	b.WriteString(" ")
	b.WriteString(style.Render(OutcomeLabel(v.FinalOutcome)))
	b.WriteString(" ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("(%s)", FormatDuration(v.Elapsed))))
	return b.String()
}
