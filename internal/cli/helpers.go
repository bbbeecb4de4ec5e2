package cli

import (
	"fmt"
	"os"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/commands"
	"github.com/glorpus-work/clawstrap/pkg/config"
	"github.com/glorpus-work/clawstrap/pkg/events"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig reads the settings file and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format := logger.FormatText
	if cfg.Settings.OutputFormat == string(logger.FormatJSON) {
		format = logger.FormatJSON
	}
	logger.InitLogger(cfg.Settings.LogLevel, format)
	return cfg, nil
}

// loadBackend loads the config and wires every component. With progress set,
// events are printed to stderr; otherwise they are dropped.
func loadBackend(progress bool) (*config.Config, *commands.Backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	var sink events.Sink
	if progress {
		sink = newProgressPrinter(os.Stderr, jsonOutput(cfg))
	}
	return cfg, commands.New(cfg.Settings, commands.Deps{Sink: sink}), nil
}

func jsonOutput(cfg *config.Config) bool {
	return cfg.Settings.OutputFormat == string(logger.FormatJSON)
}
