package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/knock/internal/doctor"
	"github.com/rileyhilliard/knock/internal/ui"
)

var (
	doctorJSON bool
	doctorFix  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the local SSH environment",
	Long: `Run diagnostic checks on everything a probe depends on.

Checks:
  - knock configuration loads and validates
  - private keys exist with safe permissions
  - the SSH agent is reachable and holds keys
  - the known_hosts trust store is healthy

Examples:
  knock doctor
  knock doctor --fix
  knock doctor --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand()
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput is the JSON shape of a doctor run.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput groups check results by category.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand() error {
	checks := collectChecks()
	results := doctor.RunAll(checks)

	if doctorFix {
		results = attemptFixes(checks, results)
	}

	if doctorJSON {
		return outputDoctorJSON(checks, results)
	}
	return outputDoctorText(checks, results)
}

// collectChecks gathers every diagnostic check.
func collectChecks() []doctor.Check {
	var checks []doctor.Check
	checks = append(checks, doctor.NewConfigChecks(Config())...)
	checks = append(checks, doctor.NewSSHChecks()...)
	checks = append(checks, doctor.NewTrustChecks("")...)
	return checks
}

// attemptFixes tries to fix issues where possible, re-running fixed checks.
func attemptFixes(checks []doctor.Check, results []doctor.CheckResult) []doctor.CheckResult {
	for i, result := range results {
		if result.Fixable && (result.Status == doctor.StatusFail || result.Status == doctor.StatusWarn) {
			if err := checks[i].Fix(); err == nil {
				results[i] = checks[i].Run()
			}
		}
	}
	return results
}

func outputDoctorJSON(checks []doctor.Check, results []doctor.CheckResult) error {
	grouped := make(map[string][]doctor.CheckResult)
	categoryOrder := []string{}

	for i, check := range checks {
		cat := check.Category()
		if _, exists := grouped[cat]; !exists {
			categoryOrder = append(categoryOrder, cat)
		}
		grouped[cat] = append(grouped[cat], results[i])
	}

	output := DoctorOutput{
		Categories: make([]CategoryOutput, 0, len(categoryOrder)),
	}
	for _, cat := range categoryOrder {
		output.Categories = append(output.Categories, CategoryOutput{
			Name:    cat,
			Results: grouped[cat],
		})
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: counts[doctor.StatusWarn] == 0 && counts[doctor.StatusFail] == 0,
	}

	return WriteJSONSuccess(os.Stdout, output)
}

func outputDoctorText(checks []doctor.Check, results []doctor.CheckResult) error {
	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Println()
	fmt.Println(headerStyle.Render("knock environment report"))
	fmt.Println()

	rows := make([]ui.DoctorCheckRow, len(checks))
	for i, check := range checks {
		rows[i] = ui.DoctorCheckRow{
			Status:     results[i].Status.String(),
			Category:   check.Category(),
			Message:    results[i].Message,
			Suggestion: results[i].Suggestion,
		}
	}
	fmt.Print(ui.RenderDoctorTable(rows))

	if !doctor.HasFailures(results) && doctor.CountByStatus(results)[doctor.StatusWarn] == 0 {
		fmt.Printf("%s %s\n", successStyle.Render(ui.SymbolSuccess), doctor.Summary(results))
	} else {
		fmt.Printf("%s %s\n", errorStyle.Render(ui.SymbolFail), doctor.Summary(results))

		if fixable := doctor.FixableCount(results); fixable > 0 && !doctorFix {
			fmt.Println()
			fmt.Printf("  Run with %s to attempt automatic fixes where possible.\n",
				mutedStyle.Render("--fix"))
		}
	}

	fmt.Println()
	return nil
}
