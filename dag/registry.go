package dag

import (
	"fmt"
	"sort"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/plugin"
	"github.com/kbukum/kindflow/validation"
)

// Registry provides plugin lookup by output name. It is read-only once built.
type Registry struct {
	plugins map[string]plugin.Plugin
}

// NewRegistry registers plugins under the name they provide. Every plugin
// must provide a valid name, and registering the same output twice fails.
func NewRegistry(plugins ...plugin.Plugin) (*Registry, error) {
	v := validation.New()
	for i, p := range plugins {
		field := fmt.Sprintf("plugins[%d].provides", i)
		name := p.Describe().Provides
		v.Required(field, name).Identifier(field, name)
	}
	if err := v.Error(); err != nil {
		return nil, errors.Configuration("invalid plugin declarations").WithCause(err)
	}

	r := &Registry{plugins: make(map[string]plugin.Plugin, len(plugins))}
	for _, p := range plugins {
		name := p.Describe().Provides
		if _, dup := r.plugins[name]; dup {
			return nil, errors.AlreadyExists("plugin", name)
		}
		r.plugins[name] = p
	}
	return r, nil
}

// Get retrieves a plugin by the name it provides.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// List returns sorted names of all registered plugins.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
