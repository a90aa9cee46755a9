package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Probe succeeded
	SymbolFail     = "✗" // Probe failed
	SymbolPending  = "○" // Probe not yet started
	SymbolProgress = "◐" // Probe in progress
	SymbolComplete = "●" // Probe done (alternative to success)
	SymbolSkipped  = "⊘" // Probe skipped
	SymbolWarning  = "!" // Needs attention
)
