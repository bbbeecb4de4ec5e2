package platform

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/unicode"

	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/process"
	"github.com/glorpus-work/clawstrap/pkg/process/mocks"
)

var winX64 = Platform{OS: OSWindows, Arch: ArchX64}

func TestValidateShortcutTarget(t *testing.T) {
	tests := []struct {
		target  string
		wantErr bool
	}{
		{target: `C:\Users\me\AppData\Roaming\npm\openclaw.cmd`},
		{target: "/usr/local/bin/openclaw"},
		{target: "openclaw"},
		{target: `C:\Program Files\OpenClaw\openclaw.exe`, wantErr: true},
		{target: `C:\evil\openclaw.cmd'; Remove-Item`, wantErr: true},
		{target: `C:\npm\OPENCLAW.CMD`, wantErr: true},
		{target: "", wantErr: true},
		{target: `C:\npm\`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			err := ValidateShortcutTarget(tt.target)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrShortcutTarget)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncodePowerShell_RoundTrip(t *testing.T) {
	script := ShortcutScript(`C:\Users\me\Desktop\OpenClaw Gateway.lnk`, `C:\npm\openclaw.cmd`)
	encoded, err := EncodePowerShell(script)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Len(t, raw, 2*len(script))

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Equal(t, script, string(decoded))
	assert.Contains(t, script, "$s.WorkingDirectory = '%USERPROFILE%'")
}

func TestShortcutScript_QuotesPaths(t *testing.T) {
	script := ShortcutScript(`C:\Users\O'Brien\Desktop\OpenClaw Gateway.lnk`, `C:\Users\O'Brien\AppData\Roaming\npm\openclaw.cmd`)

	assert.Contains(t, script, `CreateShortcut('C:\Users\O''Brien\Desktop\OpenClaw Gateway.lnk')`)
	assert.Contains(t, script, `$s.TargetPath = 'C:\Users\O''Brien\AppData\Roaming\npm\openclaw.cmd'`)
	assert.NotContains(t, script, `O'Brien`)
}

func TestWindowsAdapter_Installers(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	a := NewAdapter(winX64, runner, Env{Home: t.TempDir()})

	runner.EXPECT().Run(gomock.Any(), process.Command{
		Name: "msiexec",
		Args: []string{"/i", `C:\tmp\openclaw-installer-nodejs.msi`, "/qn", "/norestart"},
	}).Return(process.Result{}, nil)
	_, err := a.InstallNodeJS(context.Background(), `C:\tmp\openclaw-installer-nodejs.msi`)
	require.NoError(t, err)

	runner.EXPECT().Run(gomock.Any(), process.Command{
		Name: `C:\tmp\openclaw-installer-docker.exe`,
		Args: []string{"install", "--quiet", "--accept-license"},
	}).Return(process.Result{ExitCode: 1}, nil)
	res, err := a.InstallDocker(context.Background(), `C:\tmp\openclaw-installer-docker.exe`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestWindowsAdapter_ValidateInstaller(t *testing.T) {
	a := NewAdapter(winX64, nil, Env{})

	assert.NoError(t, a.ValidateInstaller("docker", `C:\tmp\openclaw-installer-docker.exe`))
	assert.ErrorIs(t, a.ValidateInstaller("docker", `C:\tmp\DockerSetup.exe`), pkgerrors.ErrInvalidDockerInstaller)
	assert.NoError(t, a.ValidateInstaller("nodejs", `C:\tmp\node.msi`))

	mac := NewAdapter(Platform{OS: OSMacOS, Arch: ArchARM64}, nil, Env{})
	assert.NoError(t, mac.ValidateInstaller("docker", "/tmp/DockerSetup.dmg"))
}

func TestWindowsAdapter_MakeShortcut(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	home := t.TempDir()
	a := NewAdapter(winX64, runner, Env{Home: home})

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd process.Command) (process.Result, error) {
			assert.Equal(t, "powershell", cmd.Name)
			require.Len(t, cmd.Args, 3)
			assert.Equal(t, []string{"-NoProfile", "-EncodedCommand"}, cmd.Args[:2])
			raw, err := base64.StdEncoding.DecodeString(cmd.Args[2])
			require.NoError(t, err)
			script, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
			require.NoError(t, err)
			assert.Contains(t, string(script), filepath.Join(home, "Desktop", "OpenClaw Gateway.lnk"))
			return process.Result{}, nil
		},
	)
	require.NoError(t, a.MakeShortcut(context.Background(), `C:\npm\openclaw.cmd`, "OpenClaw Gateway"))

	// whitelist failures never reach the shell
	err := a.MakeShortcut(context.Background(), `C:\OpenClaw\openclaw.exe`, "OpenClaw")
	assert.ErrorIs(t, err, pkgerrors.ErrShortcutTarget)
}

func TestWindowsAdapter_MakeShortcutFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	a := NewAdapter(winX64, runner, Env{Home: t.TempDir()})

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{ExitCode: 1, Stderr: "COM error\n"}, nil)
	err := a.MakeShortcut(context.Background(), "openclaw.cmd", "OpenClaw Gateway")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COM error")
}

func TestUnixAdapter_NoOps(t *testing.T) {
	for _, p := range []Platform{{OS: OSMacOS, Arch: ArchARM64}, {OS: OSLinux, Arch: ArchX64}} {
		t.Run(p.Key(), func(t *testing.T) {
			a := NewAdapter(p, nil, Env{Home: t.TempDir()})
			res, err := a.InstallNodeJS(context.Background(), "/tmp/x.pkg")
			require.NoError(t, err)
			assert.Equal(t, DevModeOutput, res.Stdout)
			res, err = a.InstallDocker(context.Background(), "/tmp/x.dmg")
			require.NoError(t, err)
			assert.True(t, res.Success())
			assert.NoError(t, a.MakeShortcut(context.Background(), "/opt/evil", "x"))
			a.RefreshEnv()
			assert.Equal(t, "npm", a.NPMCommand())
			assert.Equal(t, "openclaw", a.OpenClawCommand())
			_, err = a.SupervisorPath()
			assert.ErrorIs(t, err, pkgerrors.ErrUnsupported)
		})
	}
}

func TestKillPIDOnPort(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		cmdName  string
		stdout   string
		wantPID  int
		wantErr  error
	}{
		{name: "lsof", platform: Platform{OS: OSLinux, Arch: ArchX64}, cmdName: "lsof", stdout: "4242\n", wantPID: 4242},
		{name: "powershell", platform: winX64, cmdName: "powershell", stdout: "\r\n1337\r\n", wantPID: 1337},
		{name: "nothing listening", platform: Platform{OS: OSMacOS, Arch: ArchX64}, cmdName: "lsof", stdout: "", wantErr: pkgerrors.ErrPortConflictFix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)
			runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, cmd process.Command) (process.Result, error) {
					assert.Equal(t, tt.cmdName, cmd.Name)
					assert.Contains(t, strings.Join(cmd.Args, " "), "18789")
					return process.Result{Stdout: tt.stdout}, nil
				},
			)
			var killed []int
			a := WithKill(NewAdapter(tt.platform, runner, Env{}), func(_ context.Context, pid int) error {
				killed = append(killed, pid)
				return nil
			})

			pid, err := a.KillPIDOnPort(context.Background(), 18789)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, killed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPID, pid)
			assert.Equal(t, []int{tt.wantPID}, killed)
		})
	}
}

func TestKillPIDOnPort_KillFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{Stdout: "99"}, nil)
	a := WithKill(NewAdapter(Platform{OS: OSLinux, Arch: ArchX64}, runner, Env{}), func(context.Context, int) error {
		return errors.New("permission denied")
	})

	_, err := a.KillPIDOnPort(context.Background(), 18789)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestWindowsAdapter_Paths(t *testing.T) {
	pf := t.TempDir()
	appData := t.TempDir()
	home := t.TempDir()
	env := Env{Home: home, Getenv: func(k string) string {
		return map[string]string{"ProgramFiles": pf, "APPDATA": appData}[k]
	}}
	a := NewAdapter(winX64, nil, env)

	assert.Equal(t, "npm", a.NPMCommand())
	assert.Equal(t, "openclaw", a.OpenClawCommand())

	npm := filepath.Join(pf, "nodejs", "npm.cmd")
	require.NoError(t, os.MkdirAll(filepath.Dir(npm), 0o755))
	require.NoError(t, os.WriteFile(npm, nil, 0o644))
	oc := filepath.Join(appData, "npm", "openclaw.cmd")
	require.NoError(t, os.MkdirAll(filepath.Dir(oc), 0o755))
	require.NoError(t, os.WriteFile(oc, nil, 0o644))

	assert.Equal(t, npm, a.NPMCommand())
	assert.Equal(t, oc, a.OpenClawCommand())

	dir, err := a.BundledInstallDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(pf, "OpenClaw"), dir)
	assert.Equal(t, filepath.Join(dir, "openclaw.exe"), a.BundledBinary(dir))

	cfg, err := a.BundledConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".openclaw"), cfg)

	nssm, err := a.SupervisorPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(appData, "OpenClaw", "tools", "nssm.exe"), nssm)
}

func TestBundledDirs(t *testing.T) {
	home := t.TempDir()

	mac := NewAdapter(Platform{OS: OSMacOS, Arch: ArchARM64}, nil, Env{Home: home})
	dir, err := mac.BundledInstallDir()
	require.NoError(t, err)
	assert.Equal(t, "/Applications/OpenClaw.app", dir)
	cfg, err := mac.BundledConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library", "Application Support", "OpenClaw"), cfg)

	linux := NewAdapter(Platform{OS: OSLinux, Arch: ArchX64}, nil, Env{Home: home})
	_, err = linux.BundledInstallDir()
	assert.ErrorIs(t, err, pkgerrors.ErrBundledUnsupported)

	_, err = NewAdapter(winX64, nil, Env{}).SupervisorPath()
	assert.ErrorIs(t, err, pkgerrors.ErrNoAppData)
	_, err = NewAdapter(winX64, nil, Env{}).BundledConfigDir()
	assert.ErrorIs(t, err, pkgerrors.ErrNoHomeDir)
}
