package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/diagnostics"
)

// NewDiagnoseCmd creates the diagnose command.
func NewDiagnoseCmd() *cobra.Command {
	var fixID string

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Find common installation problems",
		Long: `Check the gateway port, Node.js, the global OpenClaw package and the
config file. With --fix, apply the automatic fix for one issue id instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiagnose(cmd, fixID)
		},
	}

	cmd.Flags().StringVar(&fixID, "fix", "", "Apply the automatic fix for this issue id")

	return cmd
}

func runDiagnose(cmd *cobra.Command, fixID string) error {
	cfg, backend, err := loadBackend(false)
	if err != nil {
		return err
	}
	if fixID != "" {
		msg, err := backend.Diagnostics.FixIssue(cmd.Context(), fixID)
		if err != nil {
			return err
		}
		return printMessage(jsonOutput(cfg), msg)
	}

	report := backend.Diagnostics.RunDiagnostics(cmd.Context())
	if jsonOutput(cfg) {
		return printJSON(report)
	}
	if len(report.Issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "No issues found.")
		return nil
	}
	return renderIssues(report)
}

func renderIssues(report diagnostics.Report) error {
	rows := make([][]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		fix := "-"
		if issue.FixAvailable && issue.FixDescription != nil {
			fix = *issue.FixDescription
		}
		rows = append(rows, []string{issue.ID, string(issue.Severity), issue.Description, fix})
	}
	if err := renderTable([]string{"ID", "Severity", "Problem", "Fix"}, rows); err != nil {
		return err
	}
	if !report.Healthy {
		_, _ = fmt.Fprintln(stdout, "Run 'clawstrap diagnose --fix ID' to apply an automatic fix.")
	}
	return nil
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run the quick health checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, backend, err := loadBackend(false)
			if err != nil {
				return err
			}
			checks, err := backend.Diagnostics.RunDoctor(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cfg) {
				return printJSON(checks)
			}
			rows := make([][]string, 0, len(checks))
			for _, c := range checks {
				rows = append(rows, []string{c.Label, check(c.OK), c.Message})
			}
			return renderTable([]string{"Check", "Status", "Message"}, rows)
		},
	}
}
