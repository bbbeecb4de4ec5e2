package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/commands"
)

// NewResourcesCmd creates the resources command with subcommands.
func NewResourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Inspect the bundled offline resources",
		Long:  "List, read and extract the files shipped in the installer's resources directory",
	}

	cmd.AddCommand(
		newResourcesListCmd(),
		newResourcesMirrorsCmd(),
		newResourcesExtractCmd(),
	)

	return cmd
}

func newResourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bundled tarballs, installers and npm cache entries",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, backend, err := loadBackend(false)
			if err != nil {
				return err
			}
			list := backend.Bundle.List()
			if jsonOutput(cfg) {
				return printJSON(list)
			}
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				size := "-"
				if r.Exists {
					size = strconv.FormatInt(r.Size, 10)
				}
				rows = append(rows, []string{r.Name, yesNo(r.Exists), size})
			}
			return renderTable([]string{"Resource", "Present", "Size"}, rows)
		},
	}
}

func newResourcesMirrorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mirrors",
		Short: "Show the configured download mirrors",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, backend, err := loadBackend(false)
			if err != nil {
				return err
			}
			m, err := backend.Bundle.Mirrors()
			if err != nil {
				return err
			}
			if jsonOutput(cfg) {
				return printJSON(m)
			}
			return renderTable([]string{"Source", "URL"}, [][]string{
				{"npm", m.NPM},
				{"github", m.GitHub},
			})
		},
	}
}

func newResourcesExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract DIR",
		Short: "Extract the bundled OpenClaw tarball into DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, b *commands.Backend) (string, error) {
				msg, _, err := b.Bundle.Extract(ctx, args[0])
				return msg, err
			})
		},
	}
}
