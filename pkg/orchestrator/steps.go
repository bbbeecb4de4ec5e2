package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// NPMMirrorRegistry is passed to npm when mirrors are requested.
const NPMMirrorRegistry = "https://registry.npmmirror.com"

// ComposeYAML is written to <home>/openclaw/docker-compose.yml on every docker install.
const ComposeYAML = `version: '3.8'
services:
  openclaw:
    image: openclaw/openclaw:latest
    container_name: openclaw
    restart: unless-stopped
    ports:
      - "18789:18789"
      - "18791:18791"
    volumes:
      - ~/.openclaw:/root/.openclaw
      - ./workspace:/root/openclaw/workspace
    environment:
      - NODE_ENV=production
`

type modeSpec struct {
	Steps        []Step
	ShortcutName string
}

var modeTable = map[Mode]modeSpec{
	ModeNPM: {
		ShortcutName: "OpenClaw Gateway",
		Steps: []Step{
			{ID: "npm_install", Running: "Installing OpenClaw via npm...", Run: (*Orchestrator).npmInstall},
			{ID: "verify_version", Running: "Verifying installation...", Run: (*Orchestrator).verifyVersion},
			{ID: "write_config", Running: "Writing configuration...", Run: (*Orchestrator).writeSeedConfig},
			{ID: "start_gateway", Running: "Starting Gateway service...", Run: (*Orchestrator).startGateway},
			{ID: "verify_gateway", Running: "Verifying Gateway...", Run: (*Orchestrator).verifyGateway},
			{ID: "create_shortcut", Running: "Creating desktop shortcut...", Run: (*Orchestrator).createShortcut},
		},
	},
	ModeDocker: {
		Steps: []Step{
			{ID: "docker_setup", Running: "Setting up Docker environment...", Run: (*Orchestrator).dockerSetup},
			{ID: "docker_start", Running: "Starting Docker containers...", Run: (*Orchestrator).dockerStart},
			{ID: "verify_gateway", Running: "Verifying Gateway...", Run: (*Orchestrator).verifyGateway},
		},
	},
	ModeBundled: {
		ShortcutName: "OpenClaw",
		Steps: []Step{
			{ID: "extract_bundled", Running: "Extracting bundled OpenClaw...", Run: (*Orchestrator).extractBundled},
			{ID: "write_config", Running: "Writing configuration...", Run: (*Orchestrator).writeBundledConfig},
			{ID: "start_gateway", Running: "Starting Gateway...", Run: (*Orchestrator).startGateway},
			{ID: "verify_gateway", Running: "Verifying Gateway...", Run: (*Orchestrator).verifyGateway},
			{ID: "create_shortcut", Running: "Creating desktop shortcut...", Run: (*Orchestrator).createShortcut},
			{ID: "copy_nssm", Running: "Preparing service tools...", Run: (*Orchestrator).copySupervisor},
		},
	},
}

// StepIDs lists the step ids of mode in order.
func StepIDs(mode Mode) []string {
	plan := modeTable[mode]
	ids := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		ids = append(ids, s.ID)
	}
	return ids
}

func (o *Orchestrator) npmInstall(ctx context.Context, run *Run) (Outcome, error) {
	args := []string{"install", "-g", "openclaw@latest"}
	if run.UseMirror {
		args = append(args, "--registry="+NPMMirrorRegistry)
	}
	res, err := o.Runner.Run(ctx, process.Command{Name: o.Adapter.NPMCommand(), Args: args})
	if err != nil {
		return Outcome{}, stepFailedf(err, "Failed to run npm: %v", err)
	}
	if !res.Success() {
		return Outcome{}, stepFailed("npm install failed", res.Combined(), errors.ErrStepFailed)
	}
	return Outcome{Message: "OpenClaw installed", Log: res.Combined()}, nil
}

func (o *Orchestrator) verifyVersion(ctx context.Context, run *Run) (Outcome, error) {
	res, err := o.Runner.Run(ctx, process.Command{Name: run.Binary, Args: []string{"--version"}})
	if err != nil || !res.Success() {
		return Outcome{}, stepFailed("Could not verify OpenClaw version", res.Combined(), errors.ErrStepFailed)
	}
	return Outcome{Message: "OpenClaw " + res.FirstLine()}, nil
}

// writeSeedConfig creates openclaw.json only when it does not exist yet.
func (o *Orchestrator) writeSeedConfig(_ context.Context, _ *Run) (Outcome, error) {
	if o.Layout.Home == "" {
		return Outcome{}, stepFailed(errors.ErrNoHomeDir.Error(), "", errors.ErrNoHomeDir)
	}
	if err := os.MkdirAll(o.Layout.ConfigDir(), fsutil.DirModeDefault); err != nil {
		return Outcome{}, stepFailedf(err, "Failed to create config dir: %v", err)
	}
	written, err := fsutil.WriteIfAbsent(o.Layout.ConfigPath(), clawconfig.NPMSeed, fsutil.FileModeDefault)
	if err != nil {
		return Outcome{}, stepFailedf(err, "Failed to write config: %v", err)
	}
	if !written {
		logger.Debug("Keeping existing config", logger.Fields{"path": o.Layout.ConfigPath()})
	}
	return Outcome{Message: "Configuration saved"}, nil
}

func (o *Orchestrator) startGateway(ctx context.Context, run *Run) (Outcome, error) {
	res, err := o.Runner.Run(ctx, process.Command{Name: run.Binary, Args: []string{"gateway", "start"}})
	if err != nil {
		return Outcome{}, stepFailedf(err, "Failed to start Gateway: %v", err)
	}
	if !res.Success() {
		return Outcome{}, stepFailed("Gateway failed to start", res.Combined(), errors.ErrStepFailed)
	}
	return Outcome{Message: "Gateway started", Log: res.Combined()}, nil
}

// createShortcut never fails the pipeline.
func (o *Orchestrator) createShortcut(ctx context.Context, run *Run) (Outcome, error) {
	if err := o.Adapter.MakeShortcut(ctx, run.Binary, run.ShortcutName); err != nil {
		logger.Warn("Desktop shortcut skipped", logger.Fields{"run_id": run.ID, "error": err.Error()})
		return Outcome{Message: fmt.Sprintf("Shortcut skipped: %v", err)}, nil
	}
	return Outcome{Message: "Desktop shortcut created"}, nil
}

type composeFile struct {
	Services map[string]struct {
		Image string   `yaml:"image"`
		Ports []string `yaml:"ports"`
	} `yaml:"services"`
}

// ComposeImages returns service name to image for a compose document.
func ComposeImages(data []byte) (map[string]string, error) {
	var doc composeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid compose file")
	}
	out := make(map[string]string, len(doc.Services))
	for name, svc := range doc.Services {
		out[name] = svc.Image
	}
	return out, nil
}

// dockerSetup always rewrites the compose file; a differing previous file is kept as .bak.
func (o *Orchestrator) dockerSetup(_ context.Context, run *Run) (Outcome, error) {
	if o.Layout.Home == "" {
		return Outcome{}, stepFailed(errors.ErrNoHomeDir.Error(), "", errors.ErrNoHomeDir)
	}
	if err := os.MkdirAll(o.Layout.DockerDir(), fsutil.DirModeDefault); err != nil {
		return Outcome{}, stepFailedf(err, "Failed to create directory: %v", err)
	}

	path := o.Layout.ComposePath()
	backedUp, err := fsutil.BackupIfDiffers(path, []byte(ComposeYAML))
	if err != nil {
		return Outcome{}, stepFailedf(err, "Failed to write docker-compose.yml: %v", err)
	}
	if backedUp {
		fields := logger.Fields{"run_id": run.ID, "backup": path + clawconfig.BackupSuffix}
		if prev, err := os.ReadFile(path); err == nil {
			if images, err := ComposeImages(prev); err == nil {
				fields["previous_services"] = images
			}
		}
		logger.Warn("Replacing customised docker-compose.yml", fields)
	}

	if err := fsutil.WriteAtomic(path, []byte(ComposeYAML), fsutil.FileModeDefault); err != nil {
		return Outcome{}, stepFailedf(err, "Failed to write docker-compose.yml: %v", err)
	}
	return Outcome{Message: "Docker environment ready"}, nil
}

func (o *Orchestrator) dockerStart(ctx context.Context, _ *Run) (Outcome, error) {
	res, err := o.Runner.Run(ctx, process.Command{
		Name: "docker",
		Args: []string{"compose", "up", "-d"},
		Dir:  o.Layout.DockerDir(),
	})
	if err != nil {
		return Outcome{}, stepFailedf(err, "Failed to run docker compose: %v", err)
	}
	if !res.Success() {
		return Outcome{}, stepFailed("Docker compose failed", res.Combined(), errors.ErrStepFailed)
	}
	return Outcome{Message: "Containers started", Log: res.Combined()}, nil
}

func (o *Orchestrator) bundledInstallDir() (string, error) {
	if o.InstallDir != "" {
		return o.InstallDir, nil
	}
	return o.Adapter.BundledInstallDir()
}

func (o *Orchestrator) extractBundled(ctx context.Context, run *Run) (Outcome, error) {
	if o.Bundle == nil {
		return Outcome{}, stepFailed("Bundled OpenClaw not found", "", errors.ErrNoTarball)
	}
	dir, err := o.bundledInstallDir()
	if err != nil {
		return Outcome{}, stepFailed(err.Error(), "", err)
	}

	_, res, err := o.Bundle.Extract(ctx, dir)
	switch {
	case errors.Is(err, errors.ErrNoTarball):
		return Outcome{}, stepFailed("Bundled OpenClaw not found", "", err)
	case err != nil:
		return Outcome{}, stepFailed(fmt.Sprintf("Failed to extract bundled OpenClaw: %v", err), res.Combined(), err)
	}

	run.InstallDir = dir
	run.Binary = o.Adapter.BundledBinary(dir)
	return Outcome{Message: "Bundled OpenClaw extracted", Log: res.Combined()}, nil
}

// writeBundledConfig always writes the bundled seed document.
func (o *Orchestrator) writeBundledConfig(_ context.Context, _ *Run) (Outcome, error) {
	dir, err := o.Adapter.BundledConfigDir()
	if err != nil {
		return Outcome{}, stepFailed(err.Error(), "", err)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return Outcome{}, stepFailedf(err, "Failed to create config directory: %v", err)
	}
	path := filepath.Join(dir, clawconfig.ConfigFileName)
	if err := fsutil.WriteAtomic(path, clawconfig.BundledSeed, fsutil.FileModeDefault); err != nil {
		return Outcome{}, stepFailedf(err, "Failed to write config: %v", err)
	}
	return Outcome{Message: "Configuration written"}, nil
}

// copySupervisor stages nssm.exe for service registration. It never fails the pipeline.
func (o *Orchestrator) copySupervisor(_ context.Context, run *Run) (Outcome, error) {
	if !o.Adapter.Platform().IsWindows() {
		return Outcome{Message: "Skipped (not Windows)"}, nil
	}
	src := ""
	if o.Bundle != nil {
		src = o.Bundle.SupervisorSource()
	}
	if src == "" || !fsutil.Exists(src) {
		return Outcome{Message: "NSSM not bundled, skipping"}, nil
	}
	dst, err := o.Adapter.SupervisorPath()
	if err == nil {
		err = fsutil.Copy(src, dst)
	}
	if err != nil {
		logger.Warn("NSSM setup skipped", logger.Fields{"run_id": run.ID, "error": err.Error()})
		return Outcome{Message: "Skipped NSSM setup: " + strings.TrimSpace(err.Error())}, nil
	}
	return Outcome{Message: "Service tools ready"}, nil
}
