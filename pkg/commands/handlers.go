package commands

import (
	"context"

	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/connectivity"
	"github.com/glorpus-work/clawstrap/pkg/diagnostics"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/gateway"
	"github.com/glorpus-work/clawstrap/pkg/models"
	"github.com/glorpus-work/clawstrap/pkg/orchestrator"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/resources"
)

// Command names.
const (
	DetectEnvironment      = "detect_environment"
	DownloadDependency     = "download_dependency"
	InstallDependency      = "install_dependency"
	InstallOpenClaw        = "install_openclaw"
	ReadOpenClawConfig     = "read_openclaw_config"
	WriteOpenClawConfig    = "write_openclaw_config"
	DetectNPMRegistry      = "detect_npm_registry"
	TestAPIConnection      = "test_api_connection"
	GatewayStart           = "gateway_start"
	GatewayStop            = "gateway_stop"
	GatewayRestart         = "gateway_restart"
	GatewayStatus          = "gateway_status"
	RunDoctor              = "run_doctor"
	GetAvailableProviders  = "get_available_providers"
	GetModelPresets        = "get_model_presets"
	GetModelUsageStats     = "get_model_usage_stats"
	ValidateModelParams    = "validate_model_parameters"
	RunDiagnostics         = "run_diagnostics"
	FixIssue               = "fix_issue"
	ListBundledResources   = "list_bundled_resources"
	GetMirrors             = "get_mirrors"
	ExtractBundledOpenClaw = "extract_bundled_openclaw"
	CheckServiceStatus     = "check_service_status"
	RegisterService        = "register_service"
	UnregisterService      = "unregister_service"
	StartWindowsService    = "start_windows_service"
	StopWindowsService     = "stop_windows_service"
)

// DownloadArgs are the arguments of download_dependency.
type DownloadArgs struct {
	DepID     string `json:"dep_id"`
	UseMirror bool   `json:"use_mirror"`
}

// InstallDependencyArgs are the arguments of install_dependency.
type InstallDependencyArgs struct {
	DepID         string `json:"dep_id"`
	InstallerPath string `json:"installer_path"`
}

// InstallArgs are the arguments of install_openclaw.
type InstallArgs struct {
	Mode      string `json:"mode"`
	UseMirror bool   `json:"use_mirror"`
}

// WriteConfigArgs are the arguments of write_openclaw_config.
type WriteConfigArgs struct {
	Config *clawconfig.OpenClawConfig `json:"config"`
}

// ValidateParamsArgs are the arguments of validate_model_parameters.
type ValidateParamsArgs struct {
	Params *models.Parameters `json:"params"`
}

// FixIssueArgs are the arguments of fix_issue. Both spellings of the id are accepted.
type FixIssueArgs struct {
	IssueID string `json:"issue_id"`
	ID      string `json:"id"`
}

// ExtractArgs are the arguments of extract_bundled_openclaw.
type ExtractArgs struct {
	TargetDir string `json:"target_dir"`
}

// Registry binds every command to this backend.
func (b *Backend) Registry() *Registry {
	r := NewRegistry()

	r.Register(DetectEnvironment, noArgs(b.detectEnvironment))
	r.Register(DownloadDependency, typed(b.downloadDependency))
	r.Register(InstallDependency, typed(b.installDependency))
	r.Register(InstallOpenClaw, typed(b.installOpenClaw))

	r.Register(ReadOpenClawConfig, noArgs(b.readConfig))
	r.Register(WriteOpenClawConfig, typed(b.writeConfig))
	r.Register(DetectNPMRegistry, noArgs(b.detectNPMRegistry))
	r.Register(TestAPIConnection, typed(b.API.TestAPIConnection))

	r.Register(GatewayStart, noArgs(b.Gateway.Start))
	r.Register(GatewayStop, noArgs(b.Gateway.Stop))
	r.Register(GatewayRestart, noArgs(b.Gateway.Restart))
	r.Register(GatewayStatus, noArgs(b.gatewayStatus))
	r.Register(RunDoctor, noArgs(b.Diagnostics.RunDoctor))

	r.Register(GetAvailableProviders, noArgs(static(models.Providers)))
	r.Register(GetModelPresets, noArgs(static(models.Presets)))
	r.Register(GetModelUsageStats, noArgs(static(models.Usage)))
	r.Register(ValidateModelParams, typed(validateParams))

	r.Register(RunDiagnostics, noArgs(b.runDiagnostics))
	r.Register(FixIssue, typed(b.fixIssue))

	r.Register(ListBundledResources, noArgs(b.listResources))
	r.Register(GetMirrors, noArgs(b.mirrors))
	r.Register(ExtractBundledOpenClaw, typed(b.extractBundled))

	r.Register(CheckServiceStatus, noArgs(b.Service.Status))
	r.Register(RegisterService, noArgs(b.Service.Register))
	r.Register(UnregisterService, noArgs(b.Service.Unregister))
	r.Register(StartWindowsService, noArgs(b.Service.Start))
	r.Register(StopWindowsService, noArgs(b.Service.Stop))

	return r
}

func static[R any](fn func() R) func(context.Context) (R, error) {
	return func(context.Context) (R, error) { return fn(), nil }
}

func (b *Backend) detectEnvironment(ctx context.Context) (platform.EnvReport, error) {
	return b.Probe.Detect(ctx), nil
}

func (b *Backend) downloadDependency(ctx context.Context, args DownloadArgs) (string, error) {
	if args.DepID == "" {
		return "", errors.Detail(errors.ErrInvalidArguments, "dep_id is required")
	}
	return b.Downloads.Download(ctx, args.DepID, args.UseMirror)
}

func (b *Backend) installDependency(ctx context.Context, args InstallDependencyArgs) (string, error) {
	if args.DepID == "" || args.InstallerPath == "" {
		return "", errors.Detail(errors.ErrInvalidArguments, "dep_id and installer_path are required")
	}
	return b.Installer.Install(ctx, args.DepID, args.InstallerPath)
}

func (b *Backend) installOpenClaw(ctx context.Context, args InstallArgs) (*orchestrator.Result, error) {
	mode, err := orchestrator.ParseMode(args.Mode)
	if err != nil {
		return nil, err
	}
	return b.Orchestrator.Install(ctx, mode, args.UseMirror)
}

func (b *Backend) readConfig(context.Context) (clawconfig.OpenClawConfig, error) {
	if b.Layout.Home == "" {
		return clawconfig.OpenClawConfig{}, errors.ErrNoHomeDir
	}
	return b.Store.Read()
}

func (b *Backend) writeConfig(_ context.Context, args WriteConfigArgs) (any, error) {
	if args.Config == nil {
		return nil, errors.Detail(errors.ErrInvalidArguments, "config is required")
	}
	if b.Layout.Home == "" {
		return nil, errors.ErrNoHomeDir
	}
	return nil, b.Store.Write(*args.Config)
}

func (b *Backend) detectNPMRegistry(ctx context.Context) (string, error) {
	return connectivity.DetectNPMRegistry(ctx, b.Prober), nil
}

func (b *Backend) gatewayStatus(ctx context.Context) (gateway.Status, error) {
	return b.Gateway.Status(ctx), nil
}

func validateParams(_ context.Context, args ValidateParamsArgs) (any, error) {
	if args.Params == nil {
		return nil, errors.Detail(errors.ErrInvalidArguments, "params is required")
	}
	return nil, models.Validate(*args.Params)
}

func (b *Backend) runDiagnostics(ctx context.Context) (diagnostics.Report, error) {
	return b.Diagnostics.RunDiagnostics(ctx), nil
}

func (b *Backend) fixIssue(ctx context.Context, args FixIssueArgs) (string, error) {
	id := args.IssueID
	if id == "" {
		id = args.ID
	}
	return b.Diagnostics.FixIssue(ctx, id)
}

func (b *Backend) listResources(context.Context) ([]resources.Resource, error) {
	return b.Bundle.List(), nil
}

func (b *Backend) mirrors(context.Context) (resources.Mirrors, error) {
	return b.Bundle.Mirrors()
}

func (b *Backend) extractBundled(ctx context.Context, args ExtractArgs) (string, error) {
	if args.TargetDir == "" {
		return "", errors.Detail(errors.ErrInvalidArguments, "target_dir is required")
	}
	msg, _, err := b.Bundle.Extract(ctx, args.TargetDir)
	return msg, err
}
