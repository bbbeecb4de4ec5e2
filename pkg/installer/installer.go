// Package installer runs downloaded dependency installers after confining
// them to the temp directory and the accepted installer types.
package installer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/catalog"
	"github.com/glorpus-work/clawstrap/pkg/download"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// User facing step messages.
const (
	MsgInstalling      = "Installing..."
	MsgInstalled       = "Installed successfully"
	MsgInstalledDocker = "Installed (restart required for Docker Desktop)"
)

// Installer installs a single dependency from a local installer file.
type Installer interface {
	Install(ctx context.Context, depID, installerPath string) (string, error)
}

// DependencyInstaller is the Installer backed by a platform adapter.
type DependencyInstaller struct {
	adapter platform.Adapter
	sink    events.Sink
	tempDir string
}

// New creates a DependencyInstaller. An empty tempDir means os.TempDir().
func New(adapter platform.Adapter, sink events.Sink, tempDir string) *DependencyInstaller {
	if sink == nil {
		sink = events.Discard
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &DependencyInstaller{adapter: adapter, sink: sink, tempDir: tempDir}
}

// Validate runs every guard that must pass before an installer is executed.
func (i *DependencyInstaller) Validate(depID, installerPath string) error {
	if !fsutil.IsWithin(i.tempDir, installerPath) {
		return errors.ErrInvalidInstallerPath
	}
	if ext := extension(installerPath); !download.InstallerExtensions(ext) {
		return errors.Detail(errors.ErrInvalidInstallerType, "%q", ext)
	}
	return i.adapter.ValidateInstaller(depID, installerPath)
}

// Install validates installerPath and runs it. The returned string is the
// captured installer output.
func (i *DependencyInstaller) Install(ctx context.Context, depID, installerPath string) (string, error) {
	if err := i.Validate(depID, installerPath); err != nil {
		logger.Warn("Rejected installer", logger.Fields{"dep_id": depID, "path": installerPath, "error": err.Error()})
		return "", err
	}

	events.Step(i.sink, depID, events.StatusRunning, MsgInstalling, "")
	result, err := i.dispatch(ctx, depID, installerPath)
	if err != nil {
		events.Step(i.sink, depID, events.StatusError, err.Error(), result.Combined())
		return result.Combined(), err
	}
	if !result.Success() {
		err := fmt.Errorf("%w (exit code: %d)", errors.ErrInstallerFailed, result.ExitCode)
		events.Step(i.sink, depID, events.StatusError, err.Error(), result.Combined())
		return result.Combined(), err
	}

	i.adapter.RefreshEnv()

	msg := MsgInstalled
	if depID == catalog.DepDocker {
		msg = MsgInstalledDocker
	}
	events.Step(i.sink, depID, events.StatusDone, msg, result.Combined())
	logger.Success("Dependency installed", logger.Fields{"dep_id": depID})
	return result.Combined(), nil
}

func (i *DependencyInstaller) dispatch(ctx context.Context, depID, installerPath string) (process.Result, error) {
	var (
		result process.Result
		err    error
	)
	switch {
	case depID == catalog.DepNodeJS:
		result, err = i.adapter.InstallNodeJS(ctx, installerPath)
	case depID == catalog.DepDocker:
		result, err = i.adapter.InstallDocker(ctx, installerPath)
	case !i.adapter.Platform().IsWindows():
		return process.Result{Stdout: platform.DevModeOutput}, nil
	default:
		return process.Result{}, errors.Detail(errors.ErrUnknownDependency, "%s", depID)
	}
	if err != nil {
		return result, errors.Wrap(err, "Failed to run installer")
	}
	return result, nil
}

func extension(path string) string {
	name := platform.FileName(path)
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
