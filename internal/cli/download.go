package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/catalog"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var useMirror, list bool

	cmd := &cobra.Command{
		Use:   "download DEP",
		Short: "Download a dependency installer",
		Long: `Download the installer for DEP (nodejs or docker) for this platform into
the temp directory and verify its SHA-256 checksum. Prints the file path.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return catalogDependencies(useMirror), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runDownloadList(useMirror)
			}
			return runDownload(cmd, args[0], useMirror)
		},
	}

	cmd.Flags().BoolVar(&useMirror, "mirror", false, "Download from the mirror side of the catalog")
	cmd.Flags().BoolVar(&list, "list", false, "List the dependencies the catalog knows")

	return cmd
}

func runDownload(cmd *cobra.Command, depID string, useMirror bool) error {
	cfg, backend, err := loadBackend(true)
	if err != nil {
		return err
	}
	asJSON := jsonOutput(cfg)

	path, err := backend.Downloads.Download(cmd.Context(), depID, useMirror || cfg.Settings.UseMirror)
	if err != nil {
		return err
	}
	return printMessage(asJSON, path)
}

func catalogDependencies(useMirror bool) []string {
	deps := catalog.Default().Dependencies(useMirror)
	slices.Sort(deps)
	return deps
}

func runDownloadList(useMirror bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps := catalogDependencies(useMirror || cfg.Settings.UseMirror)
	if jsonOutput(cfg) {
		return printJSON(deps)
	}
	for _, dep := range deps {
		_, _ = fmt.Fprintln(stdout, dep)
	}
	return nil
}

// NewInstallDepCmd creates the install-dep command.
func NewInstallDepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-dep DEP INSTALLER",
		Short: "Run a downloaded dependency installer",
		Long: `Run INSTALLER for DEP. The installer must live in the temp directory and
have an accepted extension (msi, exe, pkg, dmg).`,
		Args: cobra.ExactArgs(setCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallDep(cmd, args[0], args[1])
		},
	}
}

func runInstallDep(cmd *cobra.Command, depID, installerPath string) error {
	cfg, backend, err := loadBackend(true)
	if err != nil {
		return err
	}
	asJSON := jsonOutput(cfg)

	msg, err := backend.Installer.Install(cmd.Context(), depID, installerPath)
	if err != nil {
		return err
	}
	return printMessage(asJSON, msg)
}
