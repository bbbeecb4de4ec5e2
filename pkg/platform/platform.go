// Package platform identifies the host and hides the per-OS differences of
// installing, shortcutting and killing behind an Adapter.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Operating systems the installer knows about.
const (
	OSWindows = "windows"
	OSMacOS   = "macos"
	OSLinux   = "linux"
)

// Architectures the catalog is keyed by.
const (
	ArchX64   = "x64"
	ArchARM64 = "arm64"
)

// Platform is the {os, arch} pair the catalog and installers are selected by.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// Current returns the normalized host platform.
func Current() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Key renders the catalog key, e.g. "windows_x64".
func (p Platform) Key() string {
	return p.OS + "_" + p.Arch
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// IsWindows is a shorthand used by the dispatch tables.
func (p Platform) IsWindows() bool { return p.OS == OSWindows }

// Validate rejects anything outside windows|macos|linux and x64|arm64.
func (p Platform) Validate() error {
	switch p.OS {
	case OSWindows, OSMacOS, OSLinux:
	default:
		return errors.Detail(errors.ErrNotSupported, "operating system %q", p.OS)
	}
	switch p.Arch {
	case ArchX64, ArchARM64:
	default:
		return errors.Detail(errors.ErrNotSupported, "architecture %q", p.Arch)
	}
	return nil
}

// NormalizeOS maps GOOS style names to the catalog names.
func NormalizeOS(os string) string {
	switch os = strings.ToLower(os); os {
	case "darwin", "mac", "osx":
		return OSMacOS
	case "win", "win32":
		return OSWindows
	default:
		return os
	}
}

// NormalizeArch maps GOARCH style names to the catalog names.
func NormalizeArch(arch string) string {
	switch arch = strings.ToLower(arch); arch {
	case "amd64", "x86_64", "x64":
		return ArchX64
	case "aarch64", "arm64":
		return ArchARM64
	default:
		return arch
	}
}
