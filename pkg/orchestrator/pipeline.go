package orchestrator

import (
	"sync"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
)

// Pipeline tracks per-step state for one run and publishes every transition.
// Steps move pending -> running -> done|error and never leave a terminal state.
type Pipeline struct {
	mu       sync.Mutex
	sink     events.Sink
	order    []string
	states   map[string]events.StepStatus
	messages map[string]string
	current  string
}

// NewPipeline creates a pipeline with every step pending.
func NewPipeline(sink events.Sink, steps []Step) *Pipeline {
	p := &Pipeline{
		sink:     sink,
		states:   make(map[string]events.StepStatus, len(steps)),
		messages: make(map[string]string, len(steps)),
	}
	for _, s := range steps {
		p.order = append(p.order, s.ID)
		p.states[s.ID] = events.StatusPending
	}
	return p
}

// Start moves id from pending to running.
func (p *Pipeline) Start(id, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states[id] != events.StatusPending {
		return errors.Detail(errors.ErrStepTransition, "%s: %s -> running", id, p.states[id])
	}
	p.states[id] = events.StatusRunning
	p.messages[id] = message
	p.current = id
	events.Step(p.sink, id, events.StatusRunning, message, "")
	return nil
}

// Progress publishes another running message for the current step.
func (p *Pipeline) Progress(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" || p.states[p.current] != events.StatusRunning {
		return
	}
	p.messages[p.current] = message
	events.Step(p.sink, p.current, events.StatusRunning, message, "")
}

// Finish moves a running step to a terminal status.
func (p *Pipeline) Finish(id string, status events.StepStatus, message, log string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !status.Terminal() || p.states[id] != events.StatusRunning {
		return errors.Detail(errors.ErrStepTransition, "%s: %s -> %s", id, p.states[id], status)
	}
	p.states[id] = status
	p.messages[id] = message
	p.current = ""
	events.Step(p.sink, id, status, message, log)
	return nil
}

// States returns every step in pipeline order.
func (p *Pipeline) States() []StepState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StepState, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, StepState{ID: id, Status: p.states[id], Message: p.messages[id]})
	}
	return out
}
