package registry

import (
	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/spec"
)

// Resolved is the schema metadata an AttrPath points at within a resource type:
// the schema it was found in, the top-level Attribute, and (if the path addressed
// one) the sub-attribute.
type Resolved struct {
	Schema  *spec.Schema
	Attr    *spec.Attribute
	SubAttr *spec.Attribute
}

// Resolve finds the attribute definition an AttrPath names within rt. When ap
// carries no URN, every schema attached to rt is searched in declaration order
// (core schema first, then extensions) and the first match wins; RFC 7643 requires
// core attribute names be unique across a resource type's schemas, so this is
// unambiguous in practice. Returns ok=false if no schema attached to rt declares a
// matching attribute.
func Resolve(r *Registry, rt *spec.ResourceType, ap expr.AttrPath) (Resolved, bool) {
	candidates := r.SchemasForResourceType(rt)
	if ap.HasURN() {
		s := r.Schema(ap.URN)
		if s == nil {
			return Resolved{}, false
		}
		candidates = []*spec.Schema{s}
	}
	for _, s := range candidates {
		if s == nil {
			continue
		}
		attr := s.AttributeForName(ap.Name)
		if attr == nil {
			continue
		}
		res := Resolved{Schema: s, Attr: attr}
		if ap.HasSubAttr() {
			sub := attr.SubAttributeForName(ap.SubAttr)
			if sub == nil {
				return Resolved{}, false
			}
			res.SubAttr = sub
		}
		return res, true
	}
	return Resolved{}, false
}

// CanonicalURN returns the URN an AttrPath should be stamped with once resolved:
// empty when attr belongs to rt's core schema (by SCIM convention the core schema's
// URN is implied and normally omitted), and the schema's own URN otherwise.
func CanonicalURN(rt *spec.ResourceType, schema *spec.Schema) string {
	if schema == nil {
		return ""
	}
	if schema.ID == rt.Schema {
		return ""
	}
	return schema.ID
}
