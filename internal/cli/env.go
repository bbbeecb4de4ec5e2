package cli

import (
	"github.com/spf13/cobra"
)

// NewEnvCmd creates the env command.
func NewEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Detect the host environment",
		Long: `Check the operating system, Node.js, Docker, WSL2, free disk space,
memory and network reachability, the same way the setup wizard does.`,
		Args: cobra.NoArgs,
		RunE: runEnv,
	}
}

func runEnv(cmd *cobra.Command, _ []string) error {
	cfg, backend, err := loadBackend(false)
	if err != nil {
		return err
	}

	report := backend.Probe.Detect(cmd.Context())
	if jsonOutput(cfg) {
		return printJSON(report)
	}

	return renderTable([]string{"Check", "OK", "Details"}, [][]string{
		{"Operating system", yesNo(report.OSOK), report.OSInfo},
		{"Node.js", yesNo(report.NodeJSInstalled), report.NodeJSVersion},
		{"Docker", yesNo(report.DockerInstalled), report.DockerVersion},
		{"WSL2", yesNo(report.WSL2Enabled), ""},
		{"Disk", yesNo(report.DiskOK), report.DiskAvailable + " free"},
		{"Memory", yesNo(report.MemoryOK), report.MemoryTotal + " total"},
		{"Network", yesNo(report.NetworkOK), ""},
	})
}
