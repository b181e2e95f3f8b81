// Package pipeline runs named plugins in order with require-once semantics.
//
// The registry and runner are generic over the context type so this package
// stays independent of the build layer; the build package instantiates them
// with its own Context.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// Plugin is a single pipeline step operating on a build context.
type Plugin[T any] func(T) error

// Registry maps plugin names to implementations.
type Registry[T any] struct {
	mu      sync.RWMutex
	plugins map[string]Plugin[T]
}

// NewRegistry creates an empty plugin registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{plugins: make(map[string]Plugin[T])}
}

// Register adds a plugin under name. Registering a nil plugin or reusing a
// name is an error.
func (r *Registry[T]) Register(name string, plugin Plugin[T]) error {
	if plugin == nil {
		return apperrors.InvalidArgument("pipeline.Register", "plugin must not be nil")
	}
	if name == "" {
		return apperrors.InvalidArgument("pipeline.Register", "plugin name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[name]; exists {
		return apperrors.Newf(apperrors.CategoryPipeline, apperrors.SeverityError,
			"plugin %s already registered", name)
	}
	r.plugins[name] = plugin
	return nil
}

// Get retrieves a plugin by name.
func (r *Registry[T]) Get(name string) (Plugin[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugin, ok := r.plugins[name]
	if !ok {
		return nil, apperrors.PluginNotFound(name)
	}
	return plugin, nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// Names returns all registered plugin names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered plugins.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Runner executes plugins against one build context. Each named plugin runs
// at most once per runner, so plugins can require their dependencies without
// worrying about duplicates.
type Runner[T any] struct {
	registry *Registry[T]
	applied  map[string]bool
	exit     []func() error
}

// NewRunner creates a runner resolving names through registry.
func NewRunner[T any](registry *Registry[T]) *Runner[T] {
	return &Runner[T]{
		registry: registry,
		applied:  make(map[string]bool),
	}
}

// Require runs the named plugin unless it already ran for this runner.
func (r *Runner[T]) Require(ctx T, name string) error {
	if r.applied[name] {
		return nil
	}
	plugin, err := r.registry.Get(name)
	if err != nil {
		return err
	}
	r.applied[name] = true
	if err := plugin(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryPipeline, apperrors.SeverityError,
			fmt.Sprintf("plugin %s failed", name))
	}
	return nil
}

// Apply runs an anonymous plugin directly, without dedupe.
func (r *Runner[T]) Apply(ctx T, plugin Plugin[T]) error {
	if plugin == nil {
		return apperrors.InvalidArgument("pipeline.Apply", "plugin must not be nil")
	}
	if err := plugin(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryPipeline, apperrors.SeverityError,
			"plugin failed")
	}
	return nil
}

// Run requires each name in order, stopping at the first failure.
func (r *Runner[T]) Run(ctx T, names []string) error {
	for _, name := range names {
		if err := r.Require(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// OnExit registers a task executed by Finalize after the main phase.
func (r *Runner[T]) OnExit(task func() error) {
	r.exit = append(r.exit, task)
}

// Finalize runs exit tasks in reverse registration order and clears them.
// All tasks run even when earlier ones fail; their errors are joined.
func (r *Runner[T]) Finalize() error {
	var errs []error
	for i := len(r.exit) - 1; i >= 0; i-- {
		if err := r.exit[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.exit = nil
	if len(errs) == 0 {
		return nil
	}
	return apperrors.Wrap(errors.Join(errs...), apperrors.CategoryPipeline,
		apperrors.SeverityError, "exit tasks failed")
}
