package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Registry is an immutable name-to-plugin map built once by the host.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry indexes plugins by name. Names must be unique.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		if p == nil {
			return nil, NewConfigurationError("plugin.NewRegistry", errors.New("nil plugin"))
		}
		if _, dup := r.plugins[p.Name()]; dup {
			return nil, NewConfigurationError("plugin.NewRegistry", fmt.Errorf("duplicate plugin %s", p.Name()))
		}
		r.plugins[p.Name()] = p
	}
	return r, nil
}

// Get returns the plugin called name.
func (r *Registry) Get(name string) (Plugin, error) {
	p, ok := r.plugins[name]
	if !ok {
		return nil, NewNotFoundError("plugin.Registry.Get", fmt.Errorf("%w: %s", ErrPluginNotFound, name))
	}
	return p, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the descriptor of every plugin, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.plugins))
	for _, name := range r.Names() {
		out = append(out, ToDescriptor(r.plugins[name]))
	}
	return out
}

// Query looks up a plugin and runs one of its methods.
func (r *Registry) Query(ctx context.Context, name, method string, params map[string]any) (any, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return p.Query(ctx, method, params)
}

// InitializeAll initializes every plugin in name order and stops at the first error.
func (r *Registry) InitializeAll(ctx context.Context, config map[string]any) error {
	for _, name := range r.Names() {
		if err := r.plugins[name].Initialize(ctx, config); err != nil {
			return err
		}
	}
	return nil
}

// ShutdownAll shuts every plugin down in reverse name order and joins the errors.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	names := r.Names()
	slices.Reverse(names)
	var errs []error
	for _, name := range names {
		if err := r.plugins[name].Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
