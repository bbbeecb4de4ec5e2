package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// ScriptExtension is the file extension of hook scripts.
const ScriptExtension = ".tengo"

// LoadHooksFromDir adds <dir>/post-install.tengo to registry. Other files are
// ignored and a missing directory loads nothing.
func LoadHooksFromDir(registry Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(errors.ErrHookLoad, "failed to read hooks directory %s: %v", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), ScriptExtension)
		if !ok || HookType(name) != PostInstall {
			continue
		}
		hookType := HookType(name)

		hookPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(hookPath)
		if err != nil {
			return errors.Wrapf(errors.ErrHookLoad, "failed to read %s: %v", hookPath, err)
		}
		if err := registry.AddHook(Hook{Type: hookType, Content: string(content), Path: hookPath}); err != nil {
			return errors.Wrapf(err, "failed to add hook %s", hookType)
		}
	}
	return nil
}

// HookTemplate returns a commented starter script for hookType.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PostInstall:
		return `// Runs after every step of an OpenClaw install has finished.
// Globals:
//   mode        npm, docker or bundled
//   runID       id of the install run
//   home        the user's home directory
//   installDir  bundled install directory, empty for npm and docker
//   gatewayPort port the gateway is expected on
// Assign a message to err to report a failure.

// Example: fail the hook when the config directory is missing
/*
os := import("os")
if is_error(os.stat(home + "/.openclaw")) {
    err := "config directory missing"
}
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
