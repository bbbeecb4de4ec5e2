package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/process"
)

// Mode selects the step list of an install pipeline.
type Mode string

// Install modes.
const (
	ModeNPM     Mode = "npm"
	ModeDocker  Mode = "docker"
	ModeBundled Mode = "bundled"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modeTable[m]; !ok {
		return "", errors.Detail(errors.ErrUnknownInstallMode, "%s", s)
	}
	return m, nil
}

// Modes lists the known modes in a stable order.
func Modes() []Mode {
	return []Mode{ModeNPM, ModeDocker, ModeBundled}
}

// Outcome is what a step reports on success.
type Outcome struct {
	Message string
	Log     string
}

// StepFunc is the body of a step. The Orchestrator is passed explicitly so the
// step table can hold method expressions.
type StepFunc func(o *Orchestrator, ctx context.Context, run *Run) (Outcome, error)

// Step is one row of a mode's step table.
type Step struct {
	ID      string
	Running string
	Run     StepFunc
}

// StepError is the failure of one pipeline step.
type StepError struct {
	Step    string
	Message string
	Log     string
	Err     error
}

func (e *StepError) Error() string { return e.Message }

func (e *StepError) Unwrap() error {
	if e.Err == nil {
		return errors.ErrStepFailed
	}
	return e.Err
}

func stepFailed(msg, log string, err error) *StepError {
	return &StepError{Message: msg, Log: log, Err: err}
}

func stepFailedf(err error, format string, args ...interface{}) *StepError {
	return &StepError{Message: fmt.Sprintf(format, args...), Err: err}
}

// BundleSource is the part of the resource bundle the bundled mode needs.
type BundleSource interface {
	Extract(ctx context.Context, targetDir string) (string, process.Result, error)
	SupervisorSource() string
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// StepState is the final state of one step after a run.
type StepState struct {
	ID      string            `json:"id"`
	Status  events.StepStatus `json:"status"`
	Message string            `json:"message"`
}

// Result summarises a pipeline run.
type Result struct {
	RunID string      `json:"run_id"`
	Mode  Mode        `json:"mode"`
	Steps []StepState `json:"steps"`
}

// Done reports whether every step finished done.
func (r *Result) Done() bool {
	for _, s := range r.Steps {
		if s.Status != events.StatusDone {
			return false
		}
	}
	return len(r.Steps) > 0
}
