// Package orchestrator drives the OpenClaw install pipelines: a fixed table of
// named steps per mode, each reported through the event sink, with the gateway
// health check shared between modes.
package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/clawconfig"
	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/hooks"
	"github.com/glorpus-work/clawstrap/pkg/netprobe"
	"github.com/glorpus-work/clawstrap/pkg/platform"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// LockFileName is the cross-process install lock under the temp directory.
const LockFileName = "openclaw-installer.lock"

// Orchestrator ties the platform adapter, process runner and gateway probe
// together for installs.
type Orchestrator struct {
	Adapter platform.Adapter
	Runner  process.Runner
	Prober  netprobe.Prober
	Sink    events.Sink
	Layout  clawconfig.Layout
	Bundle  BundleSource

	// InstallDir overrides the platform bundled install directory.
	InstallDir  string
	HooksDir    string
	GatewayHost string
	GatewayPort int
	LockDir     string
	Sleep       Sleeper

	mu sync.Mutex
}

// Run is the state shared by the steps of one pipeline.
type Run struct {
	ID           string
	Mode         Mode
	UseMirror    bool
	Binary       string
	InstallDir   string
	ShortcutName string

	pipeline *Pipeline
}

// Progress publishes an extra running message for the current step.
func (r *Run) Progress(message string) {
	r.pipeline.Progress(message)
}

// Install runs the pipeline for mode. Prior events stay published when a step
// fails; the returned error is the failing *StepError.
func (o *Orchestrator) Install(ctx context.Context, mode Mode, useMirror bool) (*Result, error) {
	plan, ok := modeTable[mode]
	if !ok {
		return nil, pkgerrors.Detail(pkgerrors.ErrUnknownInstallMode, "%s", mode)
	}

	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	run := &Run{
		ID:           uuid.NewString(),
		Mode:         mode,
		UseMirror:    useMirror,
		Binary:       o.Adapter.OpenClawCommand(),
		ShortcutName: plan.ShortcutName,
		pipeline:     NewPipeline(o.sink(), plan.Steps),
	}
	fields := logger.Fields{"run_id": run.ID, "mode": string(mode), "mirror": useMirror}
	logger.Info("Starting install pipeline", fields)

	for _, step := range plan.Steps {
		if err := o.runStep(ctx, run, step); err != nil {
			logger.Error("Install pipeline failed", logger.Fields{"run_id": run.ID, "step": step.ID, "error": err.Error()})
			return &Result{RunID: run.ID, Mode: mode, Steps: run.pipeline.States()}, err
		}
	}

	logger.Success("Install pipeline finished", fields)
	o.runHooks(ctx, run)
	return &Result{RunID: run.ID, Mode: mode, Steps: run.pipeline.States()}, nil
}

func (o *Orchestrator) runStep(ctx context.Context, run *Run, step Step) error {
	if err := run.pipeline.Start(step.ID, step.Running); err != nil {
		return err
	}
	logger.Debug("Step started", logger.Fields{"run_id": run.ID, "step": step.ID})

	out, err := step.Run(o, ctx, run)
	if err != nil {
		var se *StepError
		if !errors.As(err, &se) {
			se = &StepError{Message: err.Error(), Err: err}
		}
		se.Step = step.ID
		if ferr := run.pipeline.Finish(step.ID, events.StatusError, se.Message, se.Log); ferr != nil {
			return ferr
		}
		return se
	}
	return run.pipeline.Finish(step.ID, events.StatusDone, out.Message, out.Log)
}

// acquire refuses a second pipeline in this process or in another process
// sharing the temp directory.
func (o *Orchestrator) acquire() (func(), error) {
	if !o.mu.TryLock() {
		return nil, pkgerrors.ErrInstallBusy
	}
	dir := o.LockDir
	if dir == "" {
		dir = os.TempDir()
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		o.mu.Unlock()
		return nil, pkgerrors.Wrap(err, "failed to take install lock")
	}
	if !locked {
		o.mu.Unlock()
		return nil, pkgerrors.ErrInstallBusy
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release install lock", logger.Fields{"error": err.Error()})
		}
		o.mu.Unlock()
	}, nil
}

// HookDir returns the directory post-install scripts are loaded from, or ""
// when neither HooksDir nor a home directory is known.
func (o *Orchestrator) HookDir() string {
	if o.HooksDir != "" {
		return o.HooksDir
	}
	if o.Layout.Home == "" {
		return ""
	}
	return o.Layout.HooksDir()
}

// runHooks executes the optional post-install script. Failures only log.
func (o *Orchestrator) runHooks(ctx context.Context, run *Run) {
	dir := o.HookDir()
	if dir == "" {
		return
	}
	manager := hooks.NewHookManager()
	if err := hooks.LoadHooksFromDir(manager, dir); err != nil {
		logger.Warn("Failed to load post-install hooks", logger.Fields{"run_id": run.ID, "error": err.Error()})
		return
	}
	if !manager.HasHook(hooks.PostInstall) {
		return
	}
	err := manager.Run(ctx, hooks.PostInstall, hooks.HookContext{
		Mode:        string(run.Mode),
		RunID:       run.ID,
		Home:        o.Layout.Home,
		InstallDir:  run.InstallDir,
		GatewayPort: o.GatewayPort,
	})
	if err != nil {
		logger.Warn("Post-install hook failed", logger.Fields{"run_id": run.ID, "error": err.Error()})
		return
	}
	logger.Info("Post-install hook finished", logger.Fields{"run_id": run.ID})
}

func (o *Orchestrator) sink() events.Sink {
	if o.Sink == nil {
		return events.Discard
	}
	return o.Sink
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d unless ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) gatewayPort() int {
	if o.GatewayPort > 0 {
		return o.GatewayPort
	}
	return netprobe.GatewayPort
}

func (o *Orchestrator) gatewayAddr() string {
	host := o.GatewayHost
	if host == "" {
		host = netprobe.GatewayHost
	}
	return netprobe.Addr(host, o.gatewayPort())
}
