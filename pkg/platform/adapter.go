package platform

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	psprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// DevModeOutput is what installers report on hosts where installation is skipped.
const DevModeOutput = "dev mode: skipped"

// Adapter carries every OS specific action the installer performs.
type Adapter interface {
	Platform() Platform

	// ValidateInstaller runs OS specific checks on an installer path before it is executed.
	ValidateInstaller(depID, path string) error
	InstallNodeJS(ctx context.Context, installerPath string) (process.Result, error)
	InstallDocker(ctx context.Context, installerPath string) (process.Result, error)
	// RefreshEnv tells running programs that PATH may have changed.
	RefreshEnv()

	MakeShortcut(ctx context.Context, target, name string) error
	// KillPIDOnPort kills whatever process listens on port and returns its pid.
	KillPIDOnPort(ctx context.Context, port int) (int, error)

	NPMCommand() string
	OpenClawCommand() string

	BundledInstallDir() (string, error)
	BundledConfigDir() (string, error)
	BundledBinary(installDir string) string
	SupervisorPath() (string, error)
}

// Env is the slice of the process environment adapters read.
type Env struct {
	Getenv func(string) string
	Home   string
}

// HostEnv reads the real environment.
func HostEnv() Env {
	home, _ := os.UserHomeDir()
	return Env{Getenv: os.Getenv, Home: home}
}

func (e Env) get(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// KillFunc terminates a process forcefully.
type KillFunc func(ctx context.Context, pid int) error

// KillProcess kills pid through gopsutil.
func KillProcess(ctx context.Context, pid int) error {
	p, err := psprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return errors.Wrapf(err, "process %d", pid)
	}
	return p.KillWithContext(ctx)
}

// NewAdapter returns the adapter for p.
func NewAdapter(p Platform, runner process.Runner, env Env) Adapter {
	b := base{platform: p, runner: runner, env: env, kill: KillProcess}
	switch p.OS {
	case OSWindows:
		return &windowsAdapter{base: b}
	case OSMacOS:
		return &macosAdapter{unixAdapter{base: b}}
	default:
		return &linuxAdapter{unixAdapter{base: b}}
	}
}

// WithKill replaces the process killer. It returns a for chaining.
func WithKill(a Adapter, kill KillFunc) Adapter {
	switch v := a.(type) {
	case *windowsAdapter:
		v.kill = kill
	case *macosAdapter:
		v.kill = kill
	case *linuxAdapter:
		v.kill = kill
	}
	return a
}

type base struct {
	platform Platform
	runner   process.Runner
	env      Env
	kill     KillFunc
}

func (b *base) Platform() Platform { return b.platform }

func (b *base) home() (string, error) {
	if b.env.Home == "" {
		return "", errors.ErrNoHomeDir
	}
	return b.env.Home, nil
}

// killFirstPID parses the first integer line of out and kills it.
func (b *base) killFirstPID(ctx context.Context, out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || pid <= 0 {
			continue
		}
		if err := b.kill(ctx, pid); err != nil {
			return 0, errors.Wrapf(err, "failed to kill process %d", pid)
		}
		return pid, nil
	}
	return 0, errors.ErrPortConflictFix
}

func devMode() (process.Result, error) {
	return process.Result{Stdout: DevModeOutput}, nil
}

type unixAdapter struct{ base }

func (a *unixAdapter) ValidateInstaller(string, string) error { return nil }

func (a *unixAdapter) InstallNodeJS(context.Context, string) (process.Result, error) {
	return devMode()
}

func (a *unixAdapter) InstallDocker(context.Context, string) (process.Result, error) {
	return devMode()
}

func (a *unixAdapter) RefreshEnv() {}

func (a *unixAdapter) MakeShortcut(context.Context, string, string) error { return nil }

func (a *unixAdapter) KillPIDOnPort(ctx context.Context, port int) (int, error) {
	res, err := a.runner.Run(ctx, process.Command{Name: "lsof", Args: []string{"-ti", ":" + strconv.Itoa(port)}})
	if err != nil {
		return 0, errors.Wrap(err, "Failed to find process")
	}
	return a.killFirstPID(ctx, res.Stdout)
}

func (a *unixAdapter) NPMCommand() string      { return "npm" }
func (a *unixAdapter) OpenClawCommand() string { return "openclaw" }

func (a *unixAdapter) BundledBinary(installDir string) string {
	return filepath.Join(installDir, "openclaw")
}

func (a *unixAdapter) SupervisorPath() (string, error) {
	return "", errors.ErrUnsupported
}

type macosAdapter struct{ unixAdapter }

func (a *macosAdapter) BundledInstallDir() (string, error) {
	return "/Applications/OpenClaw.app", nil
}

func (a *macosAdapter) BundledConfigDir() (string, error) {
	home, err := a.home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support", "OpenClaw"), nil
}

type linuxAdapter struct{ unixAdapter }

func (a *linuxAdapter) BundledInstallDir() (string, error) {
	return "", errors.ErrBundledUnsupported
}

// BundledConfigDir is only reached when an install dir override is configured.
func (a *linuxAdapter) BundledConfigDir() (string, error) {
	home, err := a.home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".openclaw"), nil
}
