// Package runner defines the dispatch boundary: a runner is a polymorphic
// black box with a single capability, Dispatch, and the container resolves
// a runner type's module locator to a concrete runner and invokes it.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/runforge-labs/actiond/internal/domain"
)

// Runner executes one validated live action and returns its result payload.
// A nil result with a nil error means the runner produced nothing; the
// orchestrator treats that as a runner-implementation defect.
type Runner interface {
	Dispatch(ctx context.Context, la domain.LiveAction) (domain.Metadata, error)
}

// Factory builds a fresh runner instance per dispatch.
type Factory func() (Runner, error)

// ErrUnknownModule is returned when a runner module locator has no
// registered factory.
var ErrUnknownModule = fmt.Errorf("unknown runner module")

// Container resolves runner modules to runner instances. Factories register
// at process startup; resolution at dispatch time is read-only.
type Container struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewContainer() *Container {
	return &Container{factories: make(map[string]Factory)}
}

func (c *Container) Register(module string, factory Factory) error {
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	module = strings.TrimSpace(module)
	if module == "" {
		return fmt.Errorf("runner module is required")
	}
	if factory == nil {
		return fmt.Errorf("runner factory is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[module]; exists {
		return fmt.Errorf("runner module %q already registered", module)
	}
	c.factories[module] = factory
	return nil
}

// Modules lists registered module locators, sorted.
func (c *Container) Modules() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	modules := make([]string, 0, len(c.factories))
	for module := range c.factories {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	return modules
}

// Dispatch loads the runner for the type's module and invokes it with the
// live action. A panicking runner surfaces as a fault, never as a crash of
// the dispatching worker.
func (c *Container) Dispatch(ctx context.Context, rt domain.RunnerType, la domain.LiveAction) (result domain.Metadata, err error) {
	if c == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	c.mu.RLock()
	factory, ok := c.factories[rt.RunnerModule]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load runner for %q: %w: %q", rt.Name, ErrUnknownModule, rt.RunnerModule)
	}
	instance, err := factory()
	if err != nil {
		return nil, fmt.Errorf("load runner module %q: %w", rt.RunnerModule, err)
	}

	defer func() {
		if v := recover(); v != nil {
			result = nil
			err = fmt.Errorf("runner %q panicked: %v", rt.RunnerModule, v)
		}
	}()
	return instance.Dispatch(ctx, la)
}
