// Package events carries progress notifications from the installer back to
// the UI. Publishing is fire and forget.
package events

import "sync"

// Event topics.
const (
	TopicDownloadProgress = "download-progress"
	TopicInstallStep      = "install-step"
)

// Phase of a download.
type Phase string

// Download phases.
const (
	PhaseDownloading Phase = "downloading"
	PhaseVerifying   Phase = "verifying"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// DownloadProgress is the payload of TopicDownloadProgress.
type DownloadProgress struct {
	ID         string  `json:"id"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"` // 0 when the server sent no length
	Speed      int64   `json:"speed"` // bytes per second since the request started
	Phase      Phase   `json:"phase"`
	Error      *string `json:"error"`
}

// StepStatus is the state of one pipeline step.
type StepStatus string

// Step states.
const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusDone    StepStatus = "done"
	StatusError   StepStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s StepStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// StepRecord is the payload of TopicInstallStep.
type StepRecord struct {
	ID      string     `json:"id"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message"`
	Log     *string    `json:"log"`
}

// Event is one published message.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Sink receives events. Implementations must not block the publisher for long.
type Sink interface {
	Publish(topic string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(topic string, payload any)

// Publish implements Sink.
func (f SinkFunc) Publish(topic string, payload any) { f(topic, payload) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(string, any) {})

// Multi fans one publish out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(topic string, payload any) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(topic, payload)
			}
		}
	})
}

// Step publishes a StepRecord. An empty log is sent as null.
func Step(s Sink, id string, status StepStatus, message, log string) {
	if s == nil {
		return
	}
	rec := StepRecord{ID: id, Status: status, Message: message}
	if log != "" {
		rec.Log = &log
	}
	s.Publish(TopicInstallStep, rec)
}

// Progress publishes a DownloadProgress.
func Progress(s Sink, p DownloadProgress) {
	if s == nil {
		return
	}
	s.Publish(TopicDownloadProgress, p)
}

const defaultBufferSize = 256

// Subscription is one bus listener.
type Subscription struct {
	id int
	ch chan Event
}

// Ch returns the channel to receive events on.
func (s *Subscription) Ch() <-chan Event {
	return s.ch
}

// Bus is an in-process broadcaster. Slow subscribers miss events rather than
// stall the install pipeline.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscribe registers a listener.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, ch: make(chan Event, defaultBufferSize)}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
}

// Publish implements Sink with a non-blocking send to every subscriber.
func (b *Bus) Publish(topic string, payload any) {
	ev := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
