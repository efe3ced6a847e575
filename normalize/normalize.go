// Package normalize rewrites filters and paths supplied by a client into the
// canonical form the rest of the core expects: attribute names cased exactly as
// the schema declares them, and URNs present only where the schema is an
// extension. It never rejects a syntactically valid path; unknown attributes are
// surfaced by the caller, which already has the schema lookup result in hand.
package normalize

import (
	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

// Normalizer rewrites AttrPaths in place against a fixed resource type.
type Normalizer struct {
	reg *registry.Registry
	rt  *spec.ResourceType
}

// New returns a Normalizer that resolves attribute paths against rt's core and
// extension schemas.
func New(reg *registry.Registry, rt *spec.ResourceType) *Normalizer {
	return &Normalizer{reg: reg, rt: rt}
}

// VisitAttrPath implements expr.Visitor. An AttrPath naming an attribute absent
// from every schema attached to the resource type is left untouched; it will fail
// a subsequent registry.Resolve, which carries the error detail the caller needs.
func (n *Normalizer) VisitAttrPath(ap *expr.AttrPath) {
	resolved, ok := registry.Resolve(n.reg, n.rt, *ap)
	if !ok {
		return
	}
	ap.URN = registry.CanonicalURN(n.rt, resolved.Schema)
	ap.Name = resolved.Attr.Name
	if ap.HasSubAttr() {
		ap.SubAttr = resolved.SubAttr.Name
	}
}

// Filter rewrites every AttrPath reachable from f in place and returns f for
// convenient chaining.
func (n *Normalizer) Filter(f expr.Filter) expr.Filter {
	if f == nil {
		return nil
	}
	expr.Walk(n, f)
	return f
}

// ValuePath rewrites vp's AttrPath and any inline filter in place.
func (n *Normalizer) ValuePath(vp *expr.ValuePath) {
	if vp == nil {
		return
	}
	expr.WalkValuePath(n, vp)
}

// AttrPath rewrites a single bare AttrPath in place, for sortBy and the
// attributes/excludedAttributes lists.
func (n *Normalizer) AttrPath(ap *expr.AttrPath) {
	n.VisitAttrPath(ap)
}
