package platform

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// DockerInstallerMarker must appear in a Docker installer file name on Windows.
const DockerInstallerMarker = "openclaw-installer-docker"

var shortcutTargets = map[string]bool{"openclaw": true, "openclaw.cmd": true}

// FileName returns the file-name component of a path, splitting on
// both separators so a Windows path is handled the same on any host.
func FileName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ValidateShortcutTarget accepts only the openclaw launchers.
func ValidateShortcutTarget(target string) error {
	name := FileName(target)
	if !shortcutTargets[name] {
		return errors.Detail(errors.ErrShortcutTarget, "%s", name)
	}
	return nil
}

// ShortcutScript returns the PowerShell that writes lnkPath pointing at target.
func ShortcutScript(lnkPath, target string) string {
	return fmt.Sprintf(
		"$ws = New-Object -ComObject WScript.Shell; $s = $ws.CreateShortcut('%s'); $s.TargetPath = '%s'; $s.WorkingDirectory = '%%USERPROFILE%%'; $s.Save()",
		psQuote(lnkPath), psQuote(target),
	)
}

// psQuote escapes s for a single-quoted PowerShell string.
func psQuote(s string) string { return strings.ReplaceAll(s, "'", "''") }

// EncodePowerShell encodes script the way -EncodedCommand expects: UTF-16LE then base64.
func EncodePowerShell(script string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	raw, err := enc.Bytes([]byte(script))
	if err != nil {
		return "", errors.Wrap(err, "failed to encode script")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type windowsAdapter struct{ base }

func (a *windowsAdapter) ValidateInstaller(depID, path string) error {
	if depID == "docker" && !strings.Contains(FileName(path), DockerInstallerMarker) {
		return errors.ErrInvalidDockerInstaller
	}
	return nil
}

func (a *windowsAdapter) InstallNodeJS(ctx context.Context, installerPath string) (process.Result, error) {
	return a.runner.Run(ctx, process.Command{
		Name: "msiexec",
		Args: []string{"/i", installerPath, "/qn", "/norestart"},
	})
}

func (a *windowsAdapter) InstallDocker(ctx context.Context, installerPath string) (process.Result, error) {
	return a.runner.Run(ctx, process.Command{
		Name: installerPath,
		Args: []string{"install", "--quiet", "--accept-license"},
	})
}

func (a *windowsAdapter) RefreshEnv() {
	broadcastEnvironmentChange()
}

func (a *windowsAdapter) MakeShortcut(ctx context.Context, target, name string) error {
	if err := ValidateShortcutTarget(target); err != nil {
		return err
	}
	home, err := a.home()
	if err != nil {
		return err
	}
	lnk := filepath.Join(home, "Desktop", name+".lnk")
	encoded, err := EncodePowerShell(ShortcutScript(lnk, target))
	if err != nil {
		return err
	}
	res, err := a.runner.Run(ctx, process.Command{
		Name: "powershell",
		Args: []string{"-NoProfile", "-EncodedCommand", encoded},
	})
	if err != nil {
		return errors.Wrap(err, "Failed to create shortcut")
	}
	if !res.Success() {
		return fmt.Errorf("Failed to create shortcut: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

func (a *windowsAdapter) KillPIDOnPort(ctx context.Context, port int) (int, error) {
	query := "Get-NetTCPConnection -LocalPort " + strconv.Itoa(port) +
		" -ErrorAction SilentlyContinue | Select-Object -ExpandProperty OwningProcess"
	res, err := a.runner.Run(ctx, process.Command{Name: "powershell", Args: []string{"-Command", query}})
	if err != nil {
		return 0, errors.Wrap(err, "Failed to find process")
	}
	return a.killFirstPID(ctx, res.Stdout)
}

func (a *windowsAdapter) programFiles() string {
	if pf := a.env.get("ProgramFiles"); pf != "" {
		return pf
	}
	return `C:\Program Files`
}

func (a *windowsAdapter) NPMCommand() string {
	p := filepath.Join(a.programFiles(), "nodejs", "npm.cmd")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return "npm"
}

func (a *windowsAdapter) OpenClawCommand() string {
	if appData := a.env.get("APPDATA"); appData != "" {
		p := filepath.Join(appData, "npm", "openclaw.cmd")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "openclaw"
}

func (a *windowsAdapter) BundledInstallDir() (string, error) {
	return filepath.Join(a.programFiles(), "OpenClaw"), nil
}

func (a *windowsAdapter) BundledConfigDir() (string, error) {
	home, err := a.home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".openclaw"), nil
}

func (a *windowsAdapter) BundledBinary(installDir string) string {
	return filepath.Join(installDir, "openclaw.exe")
}

func (a *windowsAdapter) SupervisorPath() (string, error) {
	appData := a.env.get("APPDATA")
	if appData == "" {
		return "", errors.ErrNoAppData
	}
	return filepath.Join(appData, "OpenClaw", "tools", "nssm.exe"), nil
}
