// Package commands is the command bus surface of the installer: every UI
// command is a name bound to a JSON handler, backed by one shared Backend.
package commands

import (
	"os"

	"github.com/glorpus-work/clawstrap/pkg/catalog"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/config"
	"github.com/glorpus-work/clawstrap/pkg/connectivity"
	"github.com/glorpus-work/clawstrap/pkg/diagnostics"
	"github.com/glorpus-work/clawstrap/pkg/download"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/gateway"
	"github.com/glorpus-work/clawstrap/pkg/installer"
	"github.com/glorpus-work/clawstrap/pkg/netprobe"
	"github.com/glorpus-work/clawstrap/pkg/orchestrator"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
	"github.com/glorpus-work/clawstrap/pkg/resources"
	"github.com/glorpus-work/clawstrap/pkg/service"
)

// Backend holds one instance of every component the commands call into.
type Backend struct {
	Platform     platform.Platform
	Adapter      platform.Adapter
	Runner       process.Runner
	Prober       netprobe.Prober
	Sink         events.Sink
	Layout       clawconfig.Layout
	Store        *clawconfig.Store
	Probe        *platform.Probe
	Downloads    download.Manager
	Installer    installer.Installer
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Controller
	Diagnostics  *diagnostics.Diagnostics
	Service      *service.Registrar
	Bundle       *resources.Bundle
	API          *connectivity.Client
}

// Deps are the seams New builds the components on. Zero fields select the
// host implementation.
type Deps struct {
	Platform platform.Platform
	Runner   process.Runner
	Prober   netprobe.Prober
	Env      *platform.Env
	Sink     events.Sink
	Catalog  *catalog.Catalog
	Sleep    orchestrator.Sleeper
}

// New wires a Backend from the installer settings.
func New(settings config.Settings, deps Deps) *Backend {
	if deps.Platform.OS == "" {
		deps.Platform = platform.Current()
	}
	if deps.Runner == nil {
		deps.Runner = process.NewExecRunner()
	}
	if deps.Prober == nil {
		deps.Prober = netprobe.New()
	}
	env := platform.HostEnv()
	if deps.Env != nil {
		env = *deps.Env
	}
	if deps.Sink == nil {
		deps.Sink = events.Discard
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Sleep == nil {
		deps.Sleep = orchestrator.SleepContext
	}

	tempDir := settings.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	resourceDir := settings.ResourceDir
	if resourceDir == "" {
		resourceDir = resources.DefaultDir()
	}

	adapter := platform.NewAdapter(deps.Platform, deps.Runner, env)
	// An empty home is kept; the commands needing it report ErrNoHomeDir.
	layout := clawconfig.Layout{Home: env.Home}
	bundle := resources.New(resourceDir, deps.Runner)

	b := &Backend{
		Platform: deps.Platform,
		Adapter:  adapter,
		Runner:   deps.Runner,
		Prober:   deps.Prober,
		Sink:     deps.Sink,
		Layout:   layout,
		Store:    clawconfig.NewStore(layout),
		Probe:    platform.NewProbe(deps.Platform, deps.Runner, deps.Prober),
		Downloads: download.NewManager(deps.Catalog, deps.Platform, download.Options{
			TempDir: tempDir,
			Timeout: settings.DownloadTimeout,
			Sink:    deps.Sink,
		}),
		Installer: installer.New(adapter, deps.Sink, tempDir),
		Orchestrator: &orchestrator.Orchestrator{
			Adapter:     adapter,
			Runner:      deps.Runner,
			Prober:      deps.Prober,
			Sink:        deps.Sink,
			Layout:      layout,
			Bundle:      bundle,
			InstallDir:  settings.InstallDir,
			HooksDir:    settings.HooksDir,
			GatewayHost: settings.GatewayHost,
			GatewayPort: settings.GatewayPort,
			LockDir:     tempDir,
			Sleep:       deps.Sleep,
		},
		Gateway: gateway.NewController(adapter, deps.Runner, deps.Prober,
			gateway.WithAddress(settings.GatewayHost, settings.GatewayPort),
			gateway.WithSleep(deps.Sleep),
		),
		Diagnostics: diagnostics.New(adapter, deps.Runner, deps.Prober, layout,
			diagnostics.WithGatewayAddress(settings.GatewayHost, settings.GatewayPort),
		),
		Service: service.NewRegistrar(adapter, deps.Runner, layout, deps.Sleep),
		Bundle:  bundle,
		API:     connectivity.NewClient(settings.APITimeout),
	}
	return b
}
