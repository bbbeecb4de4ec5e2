package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	p := Current()
	assert.Equal(t, NormalizeOS(runtime.GOOS), p.OS)
	assert.Equal(t, NormalizeArch(runtime.GOARCH), p.Arch)
	assert.NotEmpty(t, p.Key())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		os   string
		arch string
	}{
		{in: "darwin", os: OSMacOS, arch: "darwin"},
		{in: "Windows", os: OSWindows, arch: "windows"},
		{in: "amd64", os: "amd64", arch: ArchX64},
		{in: "x86_64", os: "x86_64", arch: ArchX64},
		{in: "aarch64", os: "aarch64", arch: ArchARM64},
		{in: "linux", os: OSLinux, arch: "linux"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.os, NormalizeOS(tt.in))
			assert.Equal(t, tt.arch, NormalizeArch(tt.in))
		})
	}
}

func TestPlatform_KeyAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Platform
		key     string
		wantErr bool
	}{
		{name: "windows x64", p: Platform{OS: OSWindows, Arch: ArchX64}, key: "windows_x64"},
		{name: "macos arm64", p: Platform{OS: OSMacOS, Arch: ArchARM64}, key: "macos_arm64"},
		{name: "freebsd", p: Platform{OS: "freebsd", Arch: ArchX64}, key: "freebsd_x64", wantErr: true},
		{name: "386", p: Platform{OS: OSLinux, Arch: "386"}, key: "linux_386", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.p.Key())
			if tt.wantErr {
				assert.Error(t, tt.p.Validate())
			} else {
				assert.NoError(t, tt.p.Validate())
			}
		})
	}
}
