package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/orchestrator"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		mode      string
		useMirror bool
	)

	modes := make([]string, 0, len(orchestrator.Modes()))
	for _, m := range orchestrator.Modes() {
		modes = append(modes, string(m))
	}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install OpenClaw",
		Long: `Run the OpenClaw install pipeline. Each step is printed as it starts and
finishes; the first failing step stops the pipeline.

Modes: ` + strings.Join(modes, ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd, mode, useMirror)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", DefaultInstallMode, "Install mode ("+strings.Join(modes, "|")+")")
	cmd.Flags().BoolVar(&useMirror, "mirror", false, "Use the npm mirror registry")

	return cmd
}

func runInstall(cmd *cobra.Command, rawMode string, useMirror bool) error {
	mode, err := orchestrator.ParseMode(rawMode)
	if err != nil {
		return err
	}
	cfg, backend, err := loadBackend(true)
	if err != nil {
		return err
	}

	result, err := backend.Orchestrator.Install(cmd.Context(), mode, useMirror || cfg.Settings.UseMirror)
	if err != nil {
		return err
	}
	if jsonOutput(cfg) {
		return printJSON(result)
	}
	_, _ = fmt.Fprintf(stdout, "OpenClaw installed (%s mode, run %s)\n", result.Mode, result.RunID)
	return nil
}
