package events

import (
	"sync"
	"time"
)

// Recorded is an event plus the time it was published.
type Recorded struct {
	Event
	At time.Time
}

// Recorder is a Sink that keeps everything it receives. Used by tests and by
// the CLI to print a summary after a run.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Now    func() time.Time
}

// NewRecorder creates a Recorder using the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{Now: time.Now}
}

// Publish implements Sink.
func (r *Recorder) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Time{}
	if r.Now != nil {
		now = r.Now()
	}
	r.events = append(r.events, Recorded{Event: Event{Topic: topic, Payload: payload}, At: now})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Steps returns the install-step payloads in order.
func (r *Recorder) Steps() []StepRecord {
	var out []StepRecord
	for _, e := range r.Events() {
		if rec, ok := e.Payload.(StepRecord); ok && e.Topic == TopicInstallStep {
			out = append(out, rec)
		}
	}
	return out
}

// Progress returns the download-progress payloads in order.
func (r *Recorder) Progress() []DownloadProgress {
	var out []DownloadProgress
	for _, e := range r.Events() {
		if p, ok := e.Payload.(DownloadProgress); ok && e.Topic == TopicDownloadProgress {
			out = append(out, p)
		}
	}
	return out
}

// ProgressTimes returns the publish times of download-progress events in the given phase.
func (r *Recorder) ProgressTimes(phase Phase) []time.Time {
	var out []time.Time
	for _, e := range r.Events() {
		if p, ok := e.Payload.(DownloadProgress); ok && p.Phase == phase {
			out = append(out, e.At)
		}
	}
	return out
}

// Terminal returns the terminal step records in order.
func (r *Recorder) Terminal() []StepRecord {
	var out []StepRecord
	for _, s := range r.Steps() {
		if s.Status.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
