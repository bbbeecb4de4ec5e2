package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// stdin is swapped by tests.
var stdin io.Reader = os.Stdin

// NewOpenClawConfigCmd creates the openclaw-config command with subcommands.
func NewOpenClawConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openclaw-config",
		Short: "Read or write the OpenClaw config file",
		Long:  "Read or replace ~/.openclaw/openclaw.json, the config the OpenClaw gateway runs with",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "read",
			Short: "Print the OpenClaw config, or the defaults when absent",
			Args:  cobra.NoArgs,
			RunE:  runOpenClawConfigRead,
		},
		&cobra.Command{
			Use:   "write FILE",
			Short: "Replace the OpenClaw config with the JSON in FILE ('-' for stdin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return runOpenClawConfigWrite(args[0])
			},
		},
	)

	return cmd
}

func runOpenClawConfigRead(*cobra.Command, []string) error {
	_, backend, err := loadBackend(false)
	if err != nil {
		return err
	}
	if backend.Layout.Home == "" {
		return errors.ErrNoHomeDir
	}
	cfg, err := backend.Store.Read()
	if err != nil {
		return err
	}
	return printJSON(cfg)
}

func readDocument(source string) ([]byte, error) {
	if source == StdinArg {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(source)
}

func runOpenClawConfigWrite(source string) error {
	_, backend, err := loadBackend(false)
	if err != nil {
		return err
	}
	if backend.Layout.Home == "" {
		return errors.ErrNoHomeDir
	}

	data, err := readDocument(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	doc, err := clawconfig.Parse(data)
	if err != nil {
		return err
	}
	if err := backend.Store.Write(doc); err != nil {
		return err
	}

	logger.Success("OpenClaw config written", logger.Fields{"path": backend.Store.Path()})
	return nil
}
