// Package clawconfig owns the user's OpenClaw config document and the
// on-disk layout the installer writes under the home directory.
package clawconfig

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// File and directory names under the home directory.
const (
	ConfigDirName  = ".openclaw"
	ConfigFileName = "openclaw.json"
	BackupSuffix   = ".bak"
	LogsDirName    = "logs"
	HooksDirName   = "hooks"
	DockerDirName  = "openclaw"
	ComposeFile    = "docker-compose.yml"
)

// Layout resolves every per-user path the installer touches.
type Layout struct {
	Home string
}

// NewLayout returns the layout rooted at home.
func NewLayout(home string) (Layout, error) {
	if home == "" {
		return Layout{}, errors.ErrNoHomeDir
	}
	return Layout{Home: home}, nil
}

// HostLayout returns the layout for the current user.
func HostLayout() (Layout, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Layout{}, errors.ErrNoHomeDir
	}
	return NewLayout(home)
}

// ConfigDir is <home>/.openclaw.
func (l Layout) ConfigDir() string { return filepath.Join(l.Home, ConfigDirName) }

// ConfigPath is <home>/.openclaw/openclaw.json.
func (l Layout) ConfigPath() string { return filepath.Join(l.ConfigDir(), ConfigFileName) }

// BackupPath is where config resets keep the previous document.
func (l Layout) BackupPath() string { return l.ConfigPath() + BackupSuffix }

// LogsDir holds the service stdout and stderr logs.
func (l Layout) LogsDir() string { return filepath.Join(l.ConfigDir(), LogsDirName) }

// HooksDir is the default post-install hook directory.
func (l Layout) HooksDir() string { return filepath.Join(l.ConfigDir(), HooksDirName) }

// DockerDir is the compose project directory, <home>/openclaw.
func (l Layout) DockerDir() string { return filepath.Join(l.Home, DockerDirName) }

// ComposePath is <home>/openclaw/docker-compose.yml.
func (l Layout) ComposePath() string { return filepath.Join(l.DockerDir(), ComposeFile) }
