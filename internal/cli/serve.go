package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/internal/server"
	"github.com/glorpus-work/clawstrap/pkg/commands"
	"github.com/glorpus-work/clawstrap/pkg/events"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command bus over HTTP",
		Long: `Expose every command on a loopback HTTP address for a desktop UI:

  GET  /commands          list command names
  POST /commands/{name}   run a command with a JSON argument body
  GET  /events            server-sent download-progress and install-step events`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to listen_addr from the config)")

	return cmd
}

func runServe(cmd *cobra.Command, listen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Settings.ListenAddr
	}

	bus := events.NewBus()
	sink := events.Multi(bus, newProgressPrinter(os.Stderr, jsonOutput(cfg)))
	backend := commands.New(cfg.Settings, commands.Deps{Sink: sink})
	srv := server.New(backend.Registry(), bus)
	return server.Serve(cmd.Context(), listen, srv.Handler(), nil)
}
