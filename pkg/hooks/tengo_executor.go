package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// maxAllocs caps the objects a script may allocate.
const maxAllocs = 1 << 20

// scriptModules are the Tengo stdlib modules a hook may import.
var scriptModules = []string{"fmt", "os", "text", "times", "json"}

// TengoExecutor compiles and runs hook scripts.
type TengoExecutor struct {
	mu      sync.RWMutex
	scripts map[HookType]string
}

// NewTengoExecutor creates an executor without scripts.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{scripts: make(map[HookType]string)}
}

// Execute runs the script for hookType with the run described by hc as
// globals. A script fails the hook by assigning a non-empty string or an error
// to err.
func (e *TengoExecutor) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	e.mu.RLock()
	source, ok := e.scripts[hookType]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap(scriptModules...))
	script.SetMaxAllocs(maxAllocs)
	for name, value := range hc.globals() {
		if err := script.Add(name, value); err != nil {
			return fmt.Errorf("failed to add variable '%s' to script: %w", name, err)
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errors.ErrHookExecution, err)
	}

	if !compiled.IsDefined("err") {
		return nil
	}
	switch v := compiled.Get("err").Value().(type) {
	case error:
		return fmt.Errorf("%w: %w", errors.ErrHookScript, v)
	case string:
		if v != "" {
			return fmt.Errorf("%w: %s", errors.ErrHookScript, v)
		}
	}
	return nil
}

// AddScript sets the script for hookType, replacing any previous one.
func (e *TengoExecutor) AddScript(hookType HookType, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[hookType] = source
}

// RemoveScript drops the script for hookType.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scripts, hookType)
}

// HasScript reports whether a script is set for hookType.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.scripts[hookType]
	return ok
}
