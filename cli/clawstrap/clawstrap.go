package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/internal/cli"
)

var (
	configPath   string
	verbose      bool
	outputFormat string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clawstrap",
		Short: "Install and manage a local OpenClaw gateway",
		Long: `clawstrap installs OpenClaw on a desktop machine and keeps it running:
- Setup: detect the environment, fetch dependencies, install via npm, Docker or the offline bundle
- Gateway: start, stop and diagnose the local gateway
- Bridge: serve the setup wizard's command bus over a loopback HTTP API`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (text, json)")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.OutputFormat = &outputFormat

	cmd.AddCommand(
		cli.NewEnvCmd(),
		cli.NewDownloadCmd(),
		cli.NewInstallDepCmd(),
		cli.NewInstallCmd(),
		cli.NewHooksCmd(),
		cli.NewGatewayCmd(),
		cli.NewDiagnoseCmd(),
		cli.NewDoctorCmd(),
		cli.NewServiceCmd(),
		cli.NewResourcesCmd(),
		cli.NewOpenClawConfigCmd(),
		cli.NewInvokeCmd(),
		cli.NewServeCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
