// Package diagnostics runs the troubleshooting checks and the small set of
// automatic fixes offered for them.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/netprobe"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Severity of an issue.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue ids.
const (
	IssuePortConflict    = "port_conflict"
	IssueNodeJSMissing   = "nodejs_missing"
	IssueOpenClawMissing = "openclaw_missing"
	IssueConfigInvalid   = "config_invalid"
)

// Probe timeouts.
const (
	PortProbeTimeout    = 1 * time.Second
	GatewayProbeTimeout = 2 * time.Second
	NetworkProbeTimeout = 3 * time.Second
)

// Supported node majors for the gateway.
var supportedNodeMajors = map[int]bool{22: true, 23: true}

// Issue is one finding of RunDiagnostics.
type Issue struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	FixAvailable   bool     `json:"fix_available"`
	FixDescription *string  `json:"fix_description"`
}

// Report is the result of RunDiagnostics.
type Report struct {
	Issues  []Issue `json:"issues"`
	Healthy bool    `json:"healthy"`
}

// Check is one line of the doctor report.
type Check struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Diagnostics holds the collaborators the checks need.
type Diagnostics struct {
	adapter platform.Adapter
	runner  process.Runner
	prober  netprobe.Prober
	layout  clawconfig.Layout
	host    string
	port    int
	network string
}

// Option configures Diagnostics.
type Option func(*Diagnostics)

// WithGatewayAddress overrides the gateway host and port.
func WithGatewayAddress(host string, port int) Option {
	return func(d *Diagnostics) {
		if host != "" {
			d.host = host
		}
		if port > 0 {
			d.port = port
		}
	}
}

// WithNetworkEndpoint overrides the reference endpoint used by the doctor.
func WithNetworkEndpoint(addr string) Option {
	return func(d *Diagnostics) { d.network = addr }
}

// New creates Diagnostics. A layout with an empty home makes the config
// checks report a missing home directory.
func New(adapter platform.Adapter, runner process.Runner, prober netprobe.Prober, layout clawconfig.Layout, opts ...Option) *Diagnostics {
	d := &Diagnostics{
		adapter: adapter,
		runner:  runner,
		prober:  prober,
		layout:  layout,
		host:    netprobe.GatewayHost,
		port:    netprobe.GatewayPort,
		network: netprobe.ReferenceEndpoint,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func fix(s string) *string { return &s }

// RunDiagnostics runs the port, node, openclaw and config checks.
func (d *Diagnostics) RunDiagnostics(ctx context.Context) Report {
	issues := []Issue{}

	if d.prober.Reachable(ctx, netprobe.Addr(d.host, d.port), PortProbeTimeout) {
		issues = append(issues, Issue{
			ID:             IssuePortConflict,
			Severity:       SeverityCritical,
			Title:          fmt.Sprintf("Port %d is occupied", d.port),
			Description:    fmt.Sprintf("Gateway port is in use: Port %d is already in use", d.port),
			FixAvailable:   true,
			FixDescription: fix(fmt.Sprintf("Kill the process using port %d", d.port)),
		})
	}

	if err := d.checkNode(ctx); err != nil {
		issues = append(issues, Issue{
			ID:             IssueNodeJSMissing,
			Severity:       SeverityCritical,
			Title:          "Node.js not found",
			Description:    err.Error(),
			FixDescription: fix("Please install Node.js 22 or higher"),
		})
	}

	if err := d.checkOpenClaw(ctx); err != nil {
		issues = append(issues, Issue{
			ID:             IssueOpenClawMissing,
			Severity:       SeverityWarning,
			Title:          "OpenClaw not installed",
			Description:    err.Error(),
			FixDescription: fix("Run the installer to install OpenClaw"),
		})
	}

	if err := d.checkConfig(); err != nil {
		issues = append(issues, Issue{
			ID:             IssueConfigInvalid,
			Severity:       SeverityWarning,
			Title:          "Configuration file invalid",
			Description:    err.Error(),
			FixAvailable:   true,
			FixDescription: fix("Reset configuration to defaults"),
		})
	}

	healthy := true
	for _, issue := range issues {
		if issue.Severity != SeverityInfo {
			healthy = false
		}
	}
	logger.Debug("Diagnostics finished", logger.Fields{"issues": len(issues), "healthy": healthy})
	return Report{Issues: issues, Healthy: healthy}
}

func (d *Diagnostics) checkNode(ctx context.Context) error {
	res, err := d.runner.Run(ctx, process.Command{Name: "node", Args: []string{"--version"}})
	if err != nil {
		return fmt.Errorf("Node.js is not installed or not in PATH")
	}
	if !res.Success() {
		return fmt.Errorf("Failed to execute node --version")
	}
	raw := strings.TrimSpace(res.Stdout)
	v, err := version.NewVersion(raw)
	if err != nil || !strings.HasPrefix(raw, "v") || !supportedNodeMajors[v.Segments()[0]] {
		return fmt.Errorf("Node.js version %s is not supported. Please install v22 or higher.", raw)
	}
	return nil
}

func (d *Diagnostics) checkOpenClaw(ctx context.Context) error {
	res, err := d.runner.Run(ctx, process.Command{Name: d.adapter.NPMCommand(), Args: []string{"list", "-g", "openclaw"}})
	if err != nil {
		return fmt.Errorf("Failed to check OpenClaw installation")
	}
	if !res.Success() {
		return fmt.Errorf("OpenClaw is not installed globally")
	}
	return nil
}

// checkConfig validates openclaw.json, the file the config store writes, so the
// config_invalid fix repairs the same file the gateway reads.
func (d *Diagnostics) checkConfig() error {
	if d.layout.Home == "" {
		return fmt.Errorf("Cannot determine home directory")
	}
	err := clawconfig.NewStore(d.layout).Valid()
	var pathErr *os.PathError
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return fmt.Errorf("Configuration file not found")
	case errors.As(err, &pathErr):
		return fmt.Errorf("Failed to read config file: %v", err)
	default:
		return fmt.Errorf("Invalid JSON in config file: %v", err)
	}
}

// FixIssue applies the automatic fix for id.
func (d *Diagnostics) FixIssue(ctx context.Context, id string) (string, error) {
	switch id {
	case IssuePortConflict:
		pid, err := d.adapter.KillPIDOnPort(ctx, d.port)
		if err != nil {
			logger.Warn("Port conflict fix failed", logger.Fields{"port": d.port, "error": err.Error()})
			return "", err
		}
		logger.Info("Killed process holding gateway port", logger.Fields{"pid": pid, "port": d.port})
		return fmt.Sprintf("Killed process %d using port %d", pid, d.port), nil
	case IssueConfigInvalid:
		if d.layout.Home == "" {
			return "", errors.ErrNoHomeDir
		}
		if err := clawconfig.NewStore(d.layout).Reset(); err != nil {
			return "", errors.Wrap(err, "Failed to reset config")
		}
		return "Configuration reset to defaults", nil
	default:
		return "", errors.Detail(errors.ErrNoFixAvailable, "%s", id)
	}
}

// RunDoctor runs the quick dashboard checks.
func (d *Diagnostics) RunDoctor(ctx context.Context) ([]Check, error) {
	if d.layout.Home == "" {
		return nil, errors.ErrNoHomeDir
	}
	checks := make([]Check, 0, 5)

	nodeOK := d.succeeds(ctx, process.Command{Name: "node", Args: []string{"--version"}})
	checks = append(checks, Check{ID: "nodejs", Label: "Node.js", OK: nodeOK, Message: pick(nodeOK, "Installed", "Not found")})

	ocOK := d.succeeds(ctx, process.Command{Name: d.adapter.OpenClawCommand(), Args: []string{"--version"}})
	checks = append(checks, Check{ID: "openclaw", Label: "OpenClaw CLI", OK: ocOK, Message: pick(ocOK, "Installed", "Not found")})

	gwOK := d.prober.Reachable(ctx, netprobe.Addr(d.host, d.port), GatewayProbeTimeout)
	checks = append(checks, Check{
		ID:      "gateway",
		Label:   fmt.Sprintf("Gateway (port %d)", d.port),
		OK:      gwOK,
		Message: pick(gwOK, "Running", "Not responding"),
	})

	path := d.layout.ConfigPath()
	_, statErr := os.Stat(path)
	cfgOK := statErr == nil
	checks = append(checks, Check{ID: "config", Label: "Config file", OK: cfgOK, Message: pick(cfgOK, path, "Not found")})

	netOK := d.prober.Reachable(ctx, d.network, NetworkProbeTimeout)
	checks = append(checks, Check{ID: "network", Label: "Network", OK: netOK, Message: pick(netOK, "Connected", "No connection")})

	return checks, nil
}

func (d *Diagnostics) succeeds(ctx context.Context, cmd process.Command) bool {
	res, err := d.runner.Run(ctx, cmd)
	return err == nil && res.Success()
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
