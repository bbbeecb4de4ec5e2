// Package service registers the gateway as a Windows service through the
// bundled nssm supervisor. Every operation is unsupported on other systems.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Service settings.
const (
	Name           = "OpenClawGateway"
	DisplayName    = "OpenClaw Gateway Service"
	Description    = "OpenClaw AI Agent Gateway - Auto-start service"
	StopSettle     = 2 * time.Second
	LogRotateBytes = 10 * 1024 * 1024
	StdoutLog      = "gateway-service.log"
	StderrLog      = "gateway-service-error.log"
)

// Startup types reported by Status.
const (
	StartupAutomatic    = "Automatic"
	StartupManual       = "Manual"
	StartupUnknown      = "Unknown"
	StartupNotInstalled = "Not Installed"
	StartupUnsupported  = "Unsupported"
)

// Status is the result of check_service_status.
type Status struct {
	Installed   bool   `json:"installed"`
	Running     bool   `json:"running"`
	ServiceName string `json:"service_name"`
	StartupType string `json:"startup_type"`
}

// Registrar drives nssm and sc.
type Registrar struct {
	adapter platform.Adapter
	runner  process.Runner
	layout  clawconfig.Layout
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRegistrar creates a Registrar. sleep may be nil.
func NewRegistrar(adapter platform.Adapter, runner process.Runner, layout clawconfig.Layout, sleep func(context.Context, time.Duration) error) *Registrar {
	if sleep == nil {
		sleep = sleepContext
	}
	return &Registrar{adapter: adapter, runner: runner, layout: layout, sleep: sleep}
}

func (r *Registrar) supported() error {
	if !r.adapter.Platform().IsWindows() {
		return errors.Detail(errors.ErrUnsupported, "Windows Service is only supported on Windows")
	}
	return nil
}

// Status queries the service control manager.
func (r *Registrar) Status(ctx context.Context) (Status, error) {
	if r.supported() != nil {
		return Status{ServiceName: Name, StartupType: StartupUnsupported}, nil
	}
	res, err := r.runner.Run(ctx, process.Command{Name: "sc", Args: []string{"query", Name}})
	if err != nil {
		return Status{}, errors.Wrap(err, "Failed to query service")
	}
	st := Status{
		Installed:   res.Success(),
		Running:     strings.Contains(res.Stdout, "RUNNING"),
		ServiceName: Name,
		StartupType: StartupNotInstalled,
	}
	if st.Installed {
		st.StartupType = r.startupType(ctx)
	}
	return st, nil
}

func (r *Registrar) startupType(ctx context.Context) string {
	res, err := r.runner.Run(ctx, process.Command{Name: "sc", Args: []string{"qc", Name}})
	switch {
	case err != nil:
		return StartupUnknown
	case strings.Contains(res.Stdout, "AUTO_START"):
		return StartupAutomatic
	case strings.Contains(res.Stdout, "DEMAND_START"):
		return StartupManual
	default:
		return StartupUnknown
	}
}

func (r *Registrar) supervisor() (string, error) {
	path, err := r.adapter.SupervisorPath()
	if err != nil {
		return "", err
	}
	if !fsutil.Exists(path) {
		return "", errors.ErrSupervisorNotFound
	}
	return path, nil
}

func (r *Registrar) nssm(ctx context.Context, nssm string, args ...string) (process.Result, error) {
	return r.runner.Run(ctx, process.Command{Name: nssm, Args: args})
}

// Register installs, configures and starts the service.
func (r *Registrar) Register(ctx context.Context) (string, error) {
	if err := r.supported(); err != nil {
		return "", err
	}
	st, err := r.Status(ctx)
	if err != nil {
		return "", err
	}
	if st.Installed {
		return "", errors.ErrServiceRegistered
	}
	nssm, err := r.supervisor()
	if err != nil {
		return "", err
	}
	launcher := r.adapter.OpenClawCommand()
	if filepath.Base(launcher) != "openclaw.cmd" || !fsutil.Exists(launcher) {
		return "", fmt.Errorf("openclaw.cmd not found")
	}
	if r.layout.Home == "" {
		return "", errors.ErrNoHomeDir
	}
	if err := os.MkdirAll(r.layout.LogsDir(), fsutil.DirModeDefault); err != nil {
		return "", errors.Wrap(err, "Failed to create log directory")
	}

	res, err := r.nssm(ctx, nssm, "install", Name, launcher, "gateway", "start")
	if err != nil {
		return "", errors.Wrap(err, "Failed to install service")
	}
	if !res.Success() {
		return "", fmt.Errorf("NSSM install failed: %s", strings.TrimSpace(res.Stderr))
	}

	for _, kv := range r.settings() {
		res, err := r.nssm(ctx, nssm, "set", Name, kv[0], kv[1])
		if err != nil || !res.Success() {
			logger.Warn("Failed to apply service setting", logger.Fields{"key": kv[0], "stderr": strings.TrimSpace(res.Stderr)})
		}
	}

	res, err = r.nssm(ctx, nssm, "start", Name)
	if err != nil {
		return "", errors.Wrap(err, "Failed to start service")
	}
	if !res.Success() {
		return "", fmt.Errorf("Failed to start service: %s", strings.TrimSpace(res.Stderr))
	}
	logger.Success("Service registered", logger.Fields{"service": Name})
	return "Service registered and started successfully", nil
}

func (r *Registrar) settings() [][2]string {
	return [][2]string{
		{"AppDirectory", r.layout.ConfigDir()},
		{"DisplayName", DisplayName},
		{"Description", Description},
		{"Start", "SERVICE_AUTO_START"},
		{"AppStdout", filepath.Join(r.layout.LogsDir(), StdoutLog)},
		{"AppStderr", filepath.Join(r.layout.LogsDir(), StderrLog)},
		{"AppRotateFiles", "1"},
		{"AppRotateBytes", strconv.Itoa(LogRotateBytes)},
	}
}

// Unregister stops the service, waits StopSettle and removes it.
func (r *Registrar) Unregister(ctx context.Context) (string, error) {
	if err := r.supported(); err != nil {
		return "", err
	}
	st, err := r.Status(ctx)
	if err != nil {
		return "", err
	}
	if !st.Installed {
		return "", errors.ErrServiceNotRegistered
	}
	nssm, err := r.supervisor()
	if err != nil {
		return "", err
	}

	if res, err := r.nssm(ctx, nssm, "stop", Name); err != nil || !res.Success() {
		logger.Debug("Service stop before removal did not succeed", logger.Fields{"service": Name})
	}
	if err := r.sleep(ctx, StopSettle); err != nil {
		return "", err
	}

	res, err := r.nssm(ctx, nssm, "remove", Name, "confirm")
	if err != nil {
		return "", errors.Wrap(err, "Failed to remove service")
	}
	if !res.Success() {
		return "", fmt.Errorf("NSSM remove failed: %s", strings.TrimSpace(res.Stderr))
	}
	logger.Info("Service unregistered", logger.Fields{"service": Name})
	return "Service unregistered successfully", nil
}

// Start starts the registered service.
func (r *Registrar) Start(ctx context.Context) (string, error) {
	return r.control(ctx, "start", "Service started")
}

// Stop stops the registered service.
func (r *Registrar) Stop(ctx context.Context) (string, error) {
	return r.control(ctx, "stop", "Service stopped")
}

func (r *Registrar) control(ctx context.Context, verb, ok string) (string, error) {
	if err := r.supported(); err != nil {
		return "", err
	}
	nssm, err := r.supervisor()
	if err != nil {
		return "", err
	}
	res, err := r.nssm(ctx, nssm, verb, Name)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to %s service", verb)
	}
	if !res.Success() {
		return "", fmt.Errorf("%w: %s", errors.ErrServiceCommand, strings.TrimSpace(res.Stderr))
	}
	return ok, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
