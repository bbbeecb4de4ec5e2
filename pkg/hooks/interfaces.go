package hooks

import "context"

// Registry holds the scripts loaded for each hook type.
type Registry interface {
	AddHook(hook Hook) error
	HasHook(hookType HookType) bool
}

// Runner runs the loaded script for a hook type. A type without a script is a no-op.
type Runner interface {
	Registry
	Run(ctx context.Context, hookType HookType, hc HookContext) error
}
