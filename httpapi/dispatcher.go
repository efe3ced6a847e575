// Package httpapi binds HTTP methods and resource-type endpoints to manager
// operations: the three syntactic forms of search, the discovery endpoints, and
// CRUD, per RFC 7644. It never implements storage itself.
package httpapi

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/registry"
)

// Dispatcher binds a frozen schema/resource-type registry to the resource
// managers that back each registered resource type.
type Dispatcher struct {
	reg      *registry.Registry
	managers map[string]manager.ResourceManager // keyed by lowercase resource type name
	log      *zerolog.Logger
}

// Builder accumulates resource managers before freezing them into a Dispatcher.
type Builder struct {
	reg      *registry.Registry
	log      *zerolog.Logger
	managers map[string]manager.ResourceManager
	errs     []error
}

// NewBuilder returns an empty Builder bound to reg. log receives one line per
// error response; successful manager invocations are not logged.
func NewBuilder(reg *registry.Registry, log *zerolog.Logger) *Builder {
	return &Builder{reg: reg, log: log, managers: make(map[string]manager.ResourceManager)}
}

// AddManager registers mgr as the backing store for the resource type it
// reports via ResourceType(). That resource type must already be registered in
// the Builder's registry.
func (b *Builder) AddManager(mgr manager.ResourceManager) *Builder {
	rt := mgr.ResourceType()
	if rt == nil {
		b.errs = append(b.errs, fmt.Errorf("manager reported a nil resource type"))
		return b
	}
	if b.reg.ResourceType(rt.Name) == nil {
		b.errs = append(b.errs, fmt.Errorf("manager for resource type %q: not present in registry", rt.Name))
		return b
	}
	b.managers[strings.ToLower(rt.Name)] = mgr
	return b
}

// Build validates that every registered resource type has a manager and freezes
// the result into a Dispatcher.
func (b *Builder) Build() (*Dispatcher, error) {
	var errs []error
	errs = append(errs, b.errs...)
	for _, rt := range b.reg.ResourceTypes() {
		if _, ok := b.managers[strings.ToLower(rt.Name)]; !ok {
			errs = append(errs, fmt.Errorf("resource type %q has no registered manager", rt.Name))
		}
	}
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("dispatcher: %s", strings.Join(msgs, "; "))
	}
	return &Dispatcher{reg: b.reg, managers: b.managers, log: b.log}, nil
}

func (d *Dispatcher) managerFor(resourceTypeName string) (manager.ResourceManager, bool) {
	mgr, ok := d.managers[strings.ToLower(resourceTypeName)]
	return mgr, ok
}

func (d *Dispatcher) managerForEndpoint(endpoint string) (manager.ResourceManager, bool) {
	rt := d.reg.ResourceTypeForEndpoint(endpoint)
	if rt == nil {
		return nil, false
	}
	return d.managerFor(rt.Name)
}
