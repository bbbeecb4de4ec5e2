// Package gateway starts, stops and probes the local OpenClaw gateway through
// its own CLI.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/netprobe"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Timings used by the controller.
const (
	RestartPause  = 1 * time.Second
	StatusTimeout = 2 * time.Second
)

// Status is the result of gateway_status. PID is never known.
type Status struct {
	Running bool `json:"running"`
	PID     *int `json:"pid"`
	Port    int  `json:"port"`
}

// CommandError is returned when the openclaw CLI exits non-zero. Its message is
// the trimmed stderr.
type CommandError struct {
	Op       string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("gateway %s failed (exit code: %d)", e.Op, e.ExitCode)
	}
	return e.Stderr
}

func (e *CommandError) Unwrap() error { return errors.ErrGatewayCommand }

// Binary resolves the openclaw launcher at call time.
type Binary interface {
	OpenClawCommand() string
}

// Controller wraps `openclaw gateway ...`.
type Controller struct {
	binary Binary
	runner process.Runner
	prober netprobe.Prober
	host   string
	port   int
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithAddress overrides the probed host and port.
func WithAddress(host string, port int) Option {
	return func(c *Controller) {
		if host != "" {
			c.host = host
		}
		if port > 0 {
			c.port = port
		}
	}
}

// WithSleep replaces the restart pause.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a Controller.
func NewController(binary Binary, runner process.Runner, prober netprobe.Prober, opts ...Option) *Controller {
	c := &Controller{
		binary: binary,
		runner: runner,
		prober: prober,
		host:   netprobe.GatewayHost,
		port:   netprobe.GatewayPort,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) run(ctx context.Context, op string) (process.Result, error) {
	return c.runner.Run(ctx, process.Command{Name: c.binary.OpenClawCommand(), Args: []string{"gateway", op}})
}

func commandError(op string, res process.Result) error {
	return &CommandError{Op: op, Stderr: strings.TrimSpace(res.Stderr), ExitCode: res.ExitCode}
}

// Start runs `openclaw gateway start` and returns its trimmed stdout.
func (c *Controller) Start(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "start")
	if err != nil {
		return "", errors.Wrap(err, "Failed to start gateway")
	}
	if !res.Success() {
		return "", commandError("start", res)
	}
	logger.Info("Gateway started")
	return strings.TrimSpace(res.Stdout), nil
}

// Stop runs `openclaw gateway stop`.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "stop")
	if err != nil {
		return "", errors.Wrap(err, "Failed to stop gateway")
	}
	if !res.Success() {
		return "", commandError("stop", res)
	}
	logger.Info("Gateway stopped")
	return "Gateway stopped", nil
}

// Restart stops the gateway, ignoring the outcome, waits RestartPause and
// starts it again.
func (c *Controller) Restart(ctx context.Context) (string, error) {
	if res, err := c.run(ctx, "stop"); err != nil || !res.Success() {
		logger.Debug("Gateway stop before restart did not succeed", logger.Fields{"exit_code": res.ExitCode})
	}
	if err := c.sleep(ctx, RestartPause); err != nil {
		return "", err
	}
	res, err := c.run(ctx, "start")
	if err != nil {
		return "", errors.Wrap(err, "Failed to restart gateway")
	}
	if !res.Success() {
		return "", commandError("start", res)
	}
	logger.Info("Gateway restarted")
	return "Gateway restarted", nil
}

// Status probes the gateway port with a bare connect.
func (c *Controller) Status(ctx context.Context) Status {
	return Status{
		Running: c.prober.Reachable(ctx, netprobe.Addr(c.host, c.port), StatusTimeout),
		Port:    c.port,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
