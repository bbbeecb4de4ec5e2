// Package resources reads the files shipped next to the installer binary:
// the bundled OpenClaw tarball, offline installers, the npm cache and mirrors.json.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/archive"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Well known entries under the resource directory.
const (
	OpenClawDir    = "openclaw"
	NPMCacheDir    = "npm-cache"
	MirrorsFile    = "mirrors.json"
	SupervisorFile = "tools/nssm.exe"
	TarballPrefix  = "openclaw-"
	TarballSuffix  = ".tar.gz"

	DefaultNPMMirror    = "https://registry.npmjs.org"
	DefaultGitHubMirror = "https://github.com"
)

// OfflineInstallers are the fixed installer paths checked by List.
var OfflineInstallers = []string{
	"installers/node-v22.12.0-win-x64.msi",
	"installers/node-v22.12.0-darwin-x64.pkg",
	"installers/node-v22.12.0-darwin-arm64.pkg",
	"installers/DockerDesktop-win.exe",
}

// Resource describes one bundled file.
type Resource struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Exists bool   `json:"exists"`
}

// Mirrors is the content of mirrors.json.
type Mirrors struct {
	NPM    string `json:"npm"`
	GitHub string `json:"github"`
}

// DefaultDir is the resources directory next to the running executable.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}

// Bundle is a view over one resource directory.
type Bundle struct {
	dir     string
	runner  process.Runner
	archive *archive.Manager
}

// New creates a Bundle rooted at dir.
func New(dir string, runner process.Runner) *Bundle {
	return &Bundle{dir: dir, runner: runner, archive: archive.NewManager()}
}

// Dir returns the resource directory.
func (b *Bundle) Dir() string { return b.dir }

// SupervisorSource is where the bundled nssm.exe lives.
func (b *Bundle) SupervisorSource() string {
	return filepath.Join(b.dir, filepath.FromSlash(SupervisorFile))
}

// Check stats a path relative to the resource directory.
func (b *Bundle) Check(rel string) Resource {
	path := filepath.Join(b.dir, filepath.FromSlash(rel))
	res := Resource{Name: rel, Path: path}
	if info, err := os.Stat(path); err == nil {
		res.Exists = true
		res.Size = info.Size()
	}
	return res
}

// List reports the tarballs, offline installers and npm cache entries.
func (b *Bundle) List() []Resource {
	var out []Resource
	for _, name := range b.names(OpenClawDir) {
		if strings.HasSuffix(name, TarballSuffix) {
			out = append(out, b.Check(OpenClawDir+"/"+name))
		}
	}
	for _, rel := range OfflineInstallers {
		out = append(out, b.Check(rel))
	}
	for _, name := range b.names(NPMCacheDir) {
		out = append(out, b.Check(NPMCacheDir+"/"+name))
	}
	return out
}

func (b *Bundle) names(sub string) []string {
	entries, err := os.ReadDir(filepath.Join(b.dir, sub))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Mirrors loads mirrors.json, falling back to the public endpoints when absent.
func (b *Bundle) Mirrors() (Mirrors, error) {
	m := Mirrors{NPM: DefaultNPMMirror, GitHub: DefaultGitHubMirror}
	data, err := os.ReadFile(filepath.Join(b.dir, MirrorsFile))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return Mirrors{}, errors.Wrap(err, "Failed to read mirrors.json")
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Mirrors{}, errors.Wrap(err, "Failed to parse mirrors.json")
	}
	return m, nil
}

// FindTarball returns the first openclaw-*.tar.gz in the openclaw directory.
func (b *Bundle) FindTarball() (string, error) {
	dir := filepath.Join(b.dir, OpenClawDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrNoTarball, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, TarballPrefix) && strings.HasSuffix(name, TarballSuffix) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", errors.ErrNoTarball
}

// Extract unpacks the bundled tarball into targetDir with the system tar. The
// archive is inspected first so no member can escape targetDir.
func (b *Bundle) Extract(ctx context.Context, targetDir string) (string, process.Result, error) {
	tarball, err := b.FindTarball()
	if err != nil {
		return "", process.Result{}, err
	}
	entries, err := b.archive.Inspect(ctx, tarball)
	if err != nil {
		return "", process.Result{}, err
	}
	logger.Debug("Bundled tarball inspected", logger.Fields{"tarball": tarball, "entries": len(entries)})

	if err := os.MkdirAll(targetDir, fsutil.DirModeDefault); err != nil {
		return "", process.Result{}, errors.Wrap(err, "Failed to create install directory")
	}

	result, err := b.runner.Run(ctx, process.Command{
		Name: "tar",
		Args: []string{"-xzf", tarball, "-C", targetDir},
	})
	if err != nil {
		return "", result, errors.Wrap(err, "Failed to extract tarball")
	}
	if !result.Success() {
		return "", result, errors.Detail(errors.ErrExtractFailed, "%s", strings.TrimSpace(result.Stderr))
	}
	return fmt.Sprintf("Extracted OpenClaw to %s", targetDir), result, nil
}
