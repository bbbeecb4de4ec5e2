package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/commands"
)

// NewGatewayCmd creates the gateway command with subcommands.
func NewGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Control the OpenClaw gateway",
		Long:  "Start, stop, restart or probe the local OpenClaw gateway",
	}

	cmd.AddCommand(
		newGatewayActionCmd("start", "Start the gateway", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Gateway.Start(ctx)
		}),
		newGatewayActionCmd("stop", "Stop the gateway", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Gateway.Stop(ctx)
		}),
		newGatewayActionCmd("restart", "Restart the gateway", func(ctx context.Context, b *commands.Backend) (string, error) {
			return b.Gateway.Restart(ctx)
		}),
		newGatewayStatusCmd(),
	)

	return cmd
}

type backendAction func(ctx context.Context, b *commands.Backend) (string, error)

// runAction loads the backend, runs action and prints its message.
func runAction(cmd *cobra.Command, action backendAction) error {
	cfg, backend, err := loadBackend(false)
	if err != nil {
		return err
	}
	msg, err := action(cmd.Context(), backend)
	if err != nil {
		return err
	}
	return printMessage(jsonOutput(cfg), msg)
}

func newGatewayActionCmd(use, short string, action backendAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, action)
		},
	}
}

func newGatewayStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the gateway port accepts connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, backend, err := loadBackend(false)
			if err != nil {
				return err
			}
			status := backend.Gateway.Status(cmd.Context())
			if jsonOutput(cfg) {
				return printJSON(status)
			}
			state := "stopped"
			if status.Running {
				state = "running"
			}
			_, _ = fmt.Fprintf(stdout, "Gateway %s on port %d\n", state, status.Port)
			return nil
		},
	}
}
