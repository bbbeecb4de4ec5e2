package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Handler executes one command. args is the raw JSON argument object and may
// be empty.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names lists the registered commands sorted by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Invoke runs the handler bound to name.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Detail(errors.ErrUnknownCommand, "%s", name)
	}
	logger.Debug("Invoking command", logger.Fields{"command": name})
	out, err := h(ctx, args)
	if err != nil {
		logger.Debug("Command failed", logger.Fields{"command": name, "error": err.Error()})
		return nil, err
	}
	return out, nil
}

// decodeArgs fills v from args. Empty and null arguments leave v untouched.
func decodeArgs(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return errors.Detail(errors.ErrInvalidArguments, "%v", err)
	}
	return nil
}

// typed adapts a handler taking a decoded argument struct.
func typed[A any, R any](fn func(ctx context.Context, args A) (R, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// noArgs adapts a handler that ignores its arguments.
func noArgs[R any](fn func(ctx context.Context) (R, error)) Handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}
