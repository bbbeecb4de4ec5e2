package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
	"github.com/glorpus-work/clawstrap/pkg/process/mocks"
)

var (
	winX64   = platform.Platform{OS: platform.OSWindows, Arch: platform.ArchX64}
	macARM64 = platform.Platform{OS: platform.OSMacOS, Arch: platform.ArchARM64}
)

func newInstaller(t *testing.T, p platform.Platform) (*DependencyInstaller, *mocks.MockRunner, *events.Recorder, string) {
	t.Helper()
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	rec := events.NewRecorder()
	tmp := t.TempDir()
	adapter := platform.NewAdapter(p, runner, platform.Env{Home: t.TempDir(), Getenv: func(string) string { return "" }})
	return New(adapter, rec, tmp), runner, rec, tmp
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("installer"), 0o644))
	return path
}

func TestInstall_PathConfinement(t *testing.T) {
	inst, _, rec, tmp := newInstaller(t, winX64)
	outside := t.TempDir()

	link := filepath.Join(tmp, "escape")
	require.NoError(t, os.Symlink(outside, link))
	touch(t, filepath.Join(outside, "openclaw-installer-nodejs.msi"))

	tests := []struct {
		name string
		path string
	}{
		{name: "other directory", path: filepath.Join(outside, "openclaw-installer-nodejs.msi")},
		{name: "dot dot escape", path: filepath.Join(tmp, "..", "openclaw-installer-nodejs.msi")},
		{name: "temp root itself", path: tmp},
		{name: "relative path", path: "openclaw-installer-nodejs.msi"},
		{name: "symlink out of temp", path: filepath.Join(link, "openclaw-installer-nodejs.msi")},
		{name: "absolute system path", path: "/usr/bin/openclaw-installer-nodejs.msi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inst.Install(context.Background(), "nodejs", tt.path)
			require.ErrorIs(t, err, errors.ErrInvalidInstallerPath)
		})
	}
	assert.Empty(t, rec.Events())
}

func TestInstall_ExtensionWhitelist(t *testing.T) {
	inst, runner, _, tmp := newInstaller(t, winX64)

	for _, name := range []string{"setup.zip", "setup.sh", "setup.ps1", "setup", "setup.msi.bat", "setup.EXE.txt"} {
		t.Run(name, func(t *testing.T) {
			_, err := inst.Install(context.Background(), "nodejs", touch(t, filepath.Join(tmp, name)))
			require.ErrorIs(t, err, errors.ErrInvalidInstallerType)
		})
	}

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{}, nil).Times(4)
	for _, name := range []string{"a.msi", "a.EXE", "a.pkg", "a.dmg"} {
		t.Run(name, func(t *testing.T) {
			_, err := inst.Install(context.Background(), "nodejs", touch(t, filepath.Join(tmp, name)))
			require.NoError(t, err)
		})
	}
}

func TestInstall_WindowsNodeJS(t *testing.T) {
	inst, runner, rec, tmp := newInstaller(t, winX64)
	path := touch(t, filepath.Join(tmp, "openclaw-installer-nodejs.msi"))

	runner.EXPECT().Run(gomock.Any(), process.Command{
		Name: "msiexec",
		Args: []string{"/i", path, "/qn", "/norestart"},
	}).Return(process.Result{Stdout: "ok"}, nil)

	out, err := inst.Install(context.Background(), "nodejs", path)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	steps := rec.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, events.StatusRunning, steps[0].Status)
	assert.Equal(t, events.StatusDone, steps[1].Status)
	assert.Equal(t, "nodejs", steps[1].ID)
	assert.Equal(t, MsgInstalled, steps[1].Message)
}

func TestInstall_WindowsDocker(t *testing.T) {
	inst, runner, rec, tmp := newInstaller(t, winX64)

	_, err := inst.Install(context.Background(), "docker", touch(t, filepath.Join(tmp, "Docker Desktop Installer.exe")))
	require.ErrorIs(t, err, errors.ErrInvalidDockerInstaller)
	assert.Empty(t, rec.Events())

	path := touch(t, filepath.Join(tmp, "openclaw-installer-docker.exe"))
	runner.EXPECT().Run(gomock.Any(), process.Command{
		Name: path,
		Args: []string{"install", "--quiet", "--accept-license"},
	}).Return(process.Result{}, nil)

	_, err = inst.Install(context.Background(), "docker", path)
	require.NoError(t, err)
	terminal := rec.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, MsgInstalledDocker, terminal[0].Message)
	assert.Contains(t, terminal[0].Message, "restart required")
}

func TestInstall_Failures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		inst, runner, rec, tmp := newInstaller(t, winX64)
		path := touch(t, filepath.Join(tmp, "openclaw-installer-nodejs.msi"))
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{Stderr: "fatal", ExitCode: 1603}, nil)

		_, err := inst.Install(context.Background(), "nodejs", path)
		require.ErrorIs(t, err, errors.ErrInstallerFailed)
		assert.Equal(t, "Installation failed (exit code: 1603)", err.Error())

		terminal := rec.Terminal()
		require.Len(t, terminal, 1)
		assert.Equal(t, events.StatusError, terminal[0].Status)
		require.NotNil(t, terminal[0].Log)
		assert.Equal(t, "fatal", *terminal[0].Log)
	})

	t.Run("start failure", func(t *testing.T) {
		inst, runner, _, tmp := newInstaller(t, winX64)
		path := touch(t, filepath.Join(tmp, "openclaw-installer-nodejs.msi"))
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{}, os.ErrNotExist)

		_, err := inst.Install(context.Background(), "nodejs", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to run installer")
	})

	t.Run("unknown dependency on windows", func(t *testing.T) {
		inst, _, _, tmp := newInstaller(t, winX64)
		_, err := inst.Install(context.Background(), "python", touch(t, filepath.Join(tmp, "python.exe")))
		require.ErrorIs(t, err, errors.ErrUnknownDependency)
	})
}

func TestInstall_DevMode(t *testing.T) {
	inst, _, rec, tmp := newInstaller(t, macARM64)

	for _, dep := range []string{"nodejs", "docker", "anything"} {
		out, err := inst.Install(context.Background(), dep, touch(t, filepath.Join(tmp, "openclaw-installer-"+dep+".pkg")))
		require.NoError(t, err)
		assert.Equal(t, platform.DevModeOutput, out)
	}
	assert.Len(t, rec.Terminal(), 3)
}
