package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/glorpus-work/clawstrap/pkg/netprobe"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Thresholds for the environment report.
const (
	GiB              = 1 << 30
	MinDiskFree      = 5 * GiB
	MinMemory        = 4 * GiB
	MinNodeMajor     = 22
	MinWindowsMajor  = 10
	NetworkProbeWait = 5 * time.Second
)

// EnvReport is the result of detect_environment.
type EnvReport struct {
	OSOK            bool   `json:"os_ok"`
	OSInfo          string `json:"os_info"`
	NodeJSInstalled bool   `json:"nodejs_installed"`
	NodeJSVersion   string `json:"nodejs_version"`
	DockerInstalled bool   `json:"docker_installed"`
	DockerVersion   string `json:"docker_version"`
	WSL2Enabled     bool   `json:"wsl2_enabled"`
	DiskOK          bool   `json:"disk_ok"`
	DiskAvailable   string `json:"disk_available"`
	MemoryOK        bool   `json:"memory_ok"`
	MemoryTotal     string `json:"memory_total"`
	NetworkOK       bool   `json:"network_ok"`
}

// SystemInfo reads host facts. The gopsutil implementation is the default.
type SystemInfo interface {
	OS(ctx context.Context) (name, ver string, err error)
	TotalMemory(ctx context.Context) (uint64, error)
	MaxFreeDisk(ctx context.Context) (uint64, error)
}

// Probe runs detect_environment. Nothing is cached.
type Probe struct {
	Platform Platform
	Runner   process.Runner
	Net      netprobe.Prober
	System   SystemInfo
	// NetworkTarget defaults to netprobe.ReferenceEndpoint.
	NetworkTarget string
}

// NewProbe builds a Probe for the host.
func NewProbe(p Platform, runner process.Runner, net netprobe.Prober) *Probe {
	return &Probe{Platform: p, Runner: runner, Net: net, System: HostSystem{}}
}

// Detect gathers the report. Subprocess failures read as "not installed".
func (p *Probe) Detect(ctx context.Context) EnvReport {
	var r EnvReport
	r.OSOK, r.OSInfo = p.checkOS(ctx)
	r.NodeJSVersion, r.NodeJSInstalled = p.checkNode(ctx)
	r.DockerVersion, r.DockerInstalled = process.Output(ctx, p.Runner, process.Command{Name: "docker", Args: []string{"--version"}})
	r.WSL2Enabled = p.checkWSL2(ctx)

	free, _ := p.System.MaxFreeDisk(ctx)
	r.DiskOK, r.DiskAvailable = free >= MinDiskFree, FormatBytes(free)

	total, _ := p.System.TotalMemory(ctx)
	r.MemoryOK, r.MemoryTotal = total >= MinMemory, FormatBytes(total)

	target := p.NetworkTarget
	if target == "" {
		target = netprobe.ReferenceEndpoint
	}
	r.NetworkOK = p.Net.Reachable(ctx, target, NetworkProbeWait)
	return r
}

func (p *Probe) checkOS(ctx context.Context) (bool, string) {
	name, ver, _ := p.System.OS(ctx)
	info := strings.TrimSpace(name + " " + ver)
	if !p.Platform.IsWindows() {
		return true, info + " (dev mode)"
	}
	return MajorVersion(ver) >= MinWindowsMajor, info
}

func (p *Probe) checkNode(ctx context.Context) (string, bool) {
	out, ok := process.Output(ctx, p.Runner, process.Command{Name: "node", Args: []string{"--version"}})
	if !ok {
		return "", false
	}
	return out, MajorVersion(out) >= MinNodeMajor
}

func (p *Probe) checkWSL2(ctx context.Context) bool {
	if !p.Platform.IsWindows() {
		return false
	}
	res, err := p.Runner.Run(ctx, process.Command{Name: "wsl", Args: []string{"--status"}})
	return err == nil && res.Success()
}

// MajorVersion parses strings like "v22.12.0" or "10.0.19045 Build 19045".
// Unparseable input yields 0.
func MajorVersion(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := version.NewVersion(fields[0])
	if err != nil {
		return 0
	}
	return v.Segments()[0]
}

// FormatBytes renders sizes as "%.1f GB" from one GiB up, otherwise "%.0f MB".
func FormatBytes(b uint64) string {
	gb := float64(b) / GiB
	if gb >= 1 {
		return fmt.Sprintf("%.1f GB", gb)
	}
	return fmt.Sprintf("%.0f MB", float64(b)/(1<<20))
}

// HostSystem reads facts through gopsutil.
type HostSystem struct{}

// OS implements SystemInfo.
func (HostSystem) OS(ctx context.Context) (string, string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", "", err
	}
	return info.Platform, info.PlatformVersion, nil
}

// TotalMemory implements SystemInfo.
func (HostSystem) TotalMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// MaxFreeDisk implements SystemInfo by taking the largest free space across mounted volumes.
func (HostSystem) MaxFreeDisk(ctx context.Context) (uint64, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return 0, err
	}
	var best uint64
	for _, part := range parts {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			continue
		}
		if usage.Free > best {
			best = usage.Free
		}
	}
	return best, nil
}
