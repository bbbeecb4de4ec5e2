package hooks

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 30 * time.Second

// DefaultManager is the Runner backed by the Tengo executor.
type DefaultManager struct {
	executor *TengoExecutor
	timeout  time.Duration
}

// Option configures a DefaultManager.
type Option func(*DefaultManager)

// WithTimeout overrides DefaultTimeout. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(m *DefaultManager) { m.timeout = d }
}

// NewHookManager creates an empty hook manager.
func NewHookManager(opts ...Option) *DefaultManager {
	m := &DefaultManager{executor: NewTengoExecutor(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run implements Runner.
func (m *DefaultManager) Run(ctx context.Context, hookType HookType, hc HookContext) error {
	if hookType != PostInstall {
		return ErrUnsupportedHookEvent(string(hookType))
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.executor.Execute(ctx, hookType, hc)
}

// AddHook implements Registry. Only PostInstall scripts are accepted.
func (m *DefaultManager) AddHook(hook Hook) error {
	switch hook.Type {
	case "":
		return ErrHookTypeEmpty
	case PostInstall:
	default:
		return ErrUnsupportedHookEvent(string(hook.Type))
	}
	m.executor.AddScript(hook.Type, hook.Content)
	return nil
}

// RemoveHook drops the script for hookType.
func (m *DefaultManager) RemoveHook(hookType HookType) {
	m.executor.RemoveScript(hookType)
}

// HasHook implements Registry.
func (m *DefaultManager) HasHook(hookType HookType) bool {
	return m.executor.HasScript(hookType)
}
