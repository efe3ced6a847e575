// Package selection computes which optional attributes a response must include,
// given a schema's declared returned classes and the caller's include/exclude
// lists.
package selection

import (
	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

// Resolver computes optional-attribute sets for a fixed resource type.
type Resolver struct {
	reg *registry.Registry
	rt  *spec.ResourceType
}

// New returns a Resolver scoped to rt's core and extension schemas.
func New(reg *registry.Registry, rt *spec.ResourceType) *Resolver {
	return &Resolver{reg: reg, rt: rt}
}

// OptionalAttributes returns the AttrPaths a manager must include in its response
// in addition to whatever it unconditionally returns. include and exclude must
// already be in canonical form (see normalize.Normalizer); both may be nil.
//
// Classification, per attribute and independently per sub-attribute of a complex
// attribute:
//
//	returned=always   -> always emitted by the manager; never listed here
//	returned=never    -> never emitted; the attribute and its sub-attributes are skipped entirely
//	returned=default  -> emitted iff not named in exclude (a non-empty include does not suppress it)
//	returned=request  -> emitted iff named in include
//
// The lenient default/include interaction mirrors the dispatcher's reference
// behavior: an include-list narrows which `request`-class attributes appear, but
// does not by itself hide `default`-class ones.
func (r *Resolver) OptionalAttributes(include, exclude []expr.AttrPath) []expr.AttrPath {
	var out []expr.AttrPath
	for _, schema := range r.reg.SchemasForResourceType(r.rt) {
		if schema == nil {
			continue
		}
		urn := registry.CanonicalURN(r.rt, schema)
		for _, attr := range schema.Attributes {
			r.classify(urn, attr, "", include, exclude, &out)
		}
	}
	return out
}

func (r *Resolver) classify(urn string, attr *spec.Attribute, parentSub string, include, exclude []expr.AttrPath, out *[]expr.AttrPath) {
	ap := expr.AttrPath{URN: urn, Name: attr.Name}
	if parentSub != "" {
		ap = expr.AttrPath{URN: urn, Name: parentSub, SubAttr: attr.Name}
	}

	switch attr.Returned {
	case spec.ReturnedNever:
		return
	case spec.ReturnedAlways:
		// unconditional; nothing to add, but sub-attributes are still classified
		// independently below.
	case spec.ReturnedRequest:
		if contains(include, ap) {
			*out = append(*out, ap)
		}
	case spec.ReturnedDefault:
		fallthrough
	default:
		if !contains(exclude, ap) {
			*out = append(*out, ap)
		}
	}

	if attr.Type == spec.TypeComplex && parentSub == "" {
		for _, sub := range attr.SubAttributes {
			r.classify(urn, sub, attr.Name, include, exclude, out)
		}
	}
}

func contains(list []expr.AttrPath, ap expr.AttrPath) bool {
	for _, item := range list {
		if item.URN != ap.URN || item.Name != ap.Name {
			continue
		}
		if item.SubAttr == "" {
			// a parent-level selector covers the whole attribute, including subs.
			return true
		}
		if item.SubAttr == ap.SubAttr {
			return true
		}
	}
	return false
}
