package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/hooks"
)

// NewHooksCmd creates the hooks command with subcommands.
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage post-install hook scripts",
		Long:  "Create and locate the Tengo script run after every OpenClaw install",
	}

	cmd.AddCommand(
		newHooksInitCmd(),
		newHooksPathCmd(),
	)

	return cmd
}

func newHooksInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter post-install hook",
		Long:  "Write a commented post-install.tengo template into the hooks directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runHooksInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing hook script")

	return cmd
}

func newHooksPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the post-install hook path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := hookScriptPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, path)
			return nil
		},
	}
}

func hookScriptPath() (string, error) {
	_, backend, err := loadBackend(false)
	if err != nil {
		return "", err
	}
	dir := backend.Orchestrator.HookDir()
	if dir == "" {
		return "", errors.ErrNoHomeDir
	}
	return filepath.Join(dir, string(hooks.PostInstall)+hooks.ScriptExtension), nil
}

func runHooksInit(force bool) error {
	path, err := hookScriptPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s (use --force to overwrite): %w", path, errors.ErrHookExists)
	}

	if err := fsutil.WriteAtomic(path, []byte(hooks.HookTemplate(hooks.PostInstall)+"\n"), fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write hook template: %w", err)
	}

	logger.Success("Hook script created", logger.Fields{"path": path})
	return nil
}
