package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/commands"
)

// NewServiceCmd creates the service command with subcommands.
func NewServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the gateway Windows service",
		Long: `Register the gateway as a Windows service supervised by NSSM, or query,
start, stop and remove it. Other platforms report the service as unsupported.`,
	}

	cmd.AddCommand(
		newServiceStatusCmd(),
		newServiceActionCmd("register", "Register and start the service", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Service.Register(ctx)
		}),
		newServiceActionCmd("unregister", "Stop and remove the service", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Service.Unregister(ctx)
		}),
		newServiceActionCmd("start", "Start the service", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Service.Start(ctx)
		}),
		newServiceActionCmd("stop", "Stop the service", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Service.Stop(ctx)
		}),
	)

	return cmd
}

func newServiceActionCmd(use, short string, action backendAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, action)
		},
	}
}

func newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the service state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, backend, err := loadBackend(false)
			if err != nil {
				return err
			}
			status, err := backend.Service.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cfg) {
				return printJSON(status)
			}
			_, _ = fmt.Fprintf(stdout, "Service:   %s\nInstalled: %s\nRunning:   %s\nStartup:   %s\n",
				status.ServiceName, yesNo(status.Installed), yesNo(status.Running), status.StartupType)
			return nil
		},
	}
}
