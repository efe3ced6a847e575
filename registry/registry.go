// Package registry holds the frozen set of schemas and resource types a server was
// started with, and resolves the lookups the rest of the core needs: schema by
// URN, resource type by endpoint, and the declared attribute backing an AttrPath.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platformed/scimcore/spec"
)

// Registry is an immutable, concurrency-safe set of schemas and resource types. Build
// one with a Builder; a zero Registry is not valid.
type Registry struct {
	schemas       map[string]*spec.Schema
	resourceTypes map[string]*spec.ResourceType
	byEndpoint    map[string]*spec.ResourceType
	spConfig      *spec.ServiceProviderConfig
}

// Schema returns the schema registered under urn, case-insensitively, or nil.
func (r *Registry) Schema(urn string) *spec.Schema {
	return r.schemas[strings.ToLower(urn)]
}

// Schemas returns every registered schema, sorted by ID for deterministic listing.
func (r *Registry) Schemas() []*spec.Schema {
	out := make([]*spec.Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResourceType returns the resource type registered under name, case-insensitively,
// or nil.
func (r *Registry) ResourceType(name string) *spec.ResourceType {
	return r.resourceTypes[strings.ToLower(name)]
}

// ResourceTypes returns every registered resource type, sorted by Name.
func (r *Registry) ResourceTypes() []*spec.ResourceType {
	out := make([]*spec.ResourceType, 0, len(r.resourceTypes))
	for _, rt := range r.resourceTypes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResourceTypeForEndpoint returns the resource type mounted at the given endpoint
// path (e.g. "/Users"), or nil if none is mounted there.
func (r *Registry) ResourceTypeForEndpoint(endpoint string) *spec.ResourceType {
	return r.byEndpoint[endpoint]
}

// ServiceProviderConfig returns the registry's service provider configuration
// document.
func (r *Registry) ServiceProviderConfig() *spec.ServiceProviderConfig {
	return r.spConfig
}

// SchemasForResourceType returns the resource type's core schema followed by its
// declared extension schemas, in declaration order. A nil entry in the slice means
// the resource type names a schema URN this registry never had registered for it;
// callers should treat this as a configuration error, not a missing attribute.
func (r *Registry) SchemasForResourceType(rt *spec.ResourceType) []*spec.Schema {
	out := make([]*spec.Schema, 0, 1+len(rt.SchemaExtensions))
	out = append(out, r.Schema(rt.Schema))
	for _, ext := range rt.SchemaExtensions {
		out = append(out, r.Schema(ext.Schema))
	}
	return out
}

// Builder accumulates schemas and resource types before freezing them into a
// Registry. Registration order does not matter except that a resource type's core
// and extension schemas must be added (to this Builder or a predecessor) before
// Build is called.
type Builder struct {
	schemas       map[string]*spec.Schema
	resourceTypes map[string]*spec.ResourceType
	spConfig      *spec.ServiceProviderConfig
	errs          []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		schemas:       make(map[string]*spec.Schema),
		resourceTypes: make(map[string]*spec.ResourceType),
	}
}

// AddSchema registers a schema. A later AddSchema with the same URN (case-
// insensitive) replaces the earlier one.
func (b *Builder) AddSchema(s *spec.Schema) *Builder {
	if s.ID == "" {
		b.errs = append(b.errs, fmt.Errorf("schema missing id"))
		return b
	}
	b.schemas[strings.ToLower(s.ID)] = s
	return b
}

// AddResourceType registers a resource type. Its core schema and any extension
// schemas must already be registered (on this Builder) or Build will report an
// error naming the missing URN.
func (b *Builder) AddResourceType(rt *spec.ResourceType) *Builder {
	if rt.Name == "" {
		b.errs = append(b.errs, fmt.Errorf("resource type missing name"))
		return b
	}
	b.resourceTypes[strings.ToLower(rt.Name)] = rt
	return b
}

// WithServiceProviderConfig sets the document returned at GET /ServiceProviderConfig.
func (b *Builder) WithServiceProviderConfig(c *spec.ServiceProviderConfig) *Builder {
	b.spConfig = c
	return b
}

// Build validates cross-references and freezes the accumulated schemas and
// resource types into a Registry. It reports every missing schema reference and
// every endpoint collision it finds, rather than stopping at the first.
func (b *Builder) Build() (*Registry, error) {
	var errs []error
	errs = append(errs, b.errs...)

	byEndpoint := make(map[string]*spec.ResourceType, len(b.resourceTypes))
	for _, rt := range b.resourceTypes {
		if _, ok := b.schemas[strings.ToLower(rt.Schema)]; !ok {
			errs = append(errs, fmt.Errorf("resource type %q references unregistered schema %q", rt.Name, rt.Schema))
		}
		for _, ext := range rt.SchemaExtensions {
			if _, ok := b.schemas[strings.ToLower(ext.Schema)]; !ok {
				errs = append(errs, fmt.Errorf("resource type %q references unregistered extension schema %q", rt.Name, ext.Schema))
			}
		}
		if existing, ok := byEndpoint[rt.Endpoint]; ok {
			errs = append(errs, fmt.Errorf("endpoint %q claimed by both %q and %q", rt.Endpoint, existing.Name, rt.Name))
			continue
		}
		byEndpoint[rt.Endpoint] = rt
	}

	if b.spConfig == nil {
		errs = append(errs, fmt.Errorf("no service provider config registered"))
	}

	if len(errs) > 0 {
		return nil, joinErrors(errs)
	}

	return &Registry{
		schemas:       b.schemas,
		resourceTypes: b.resourceTypes,
		byEndpoint:    byEndpoint,
		spConfig:      b.spConfig,
	}, nil
}

func joinErrors(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("registry: %s", strings.Join(msgs, "; "))
}
