package expr

// Filter is the parsed form of a SCIM filter expression (RFC 7644 §3.4.2.2). The
// concrete types below form a closed set; a type switch over *Present, *Compare,
// *Has, *And, *Or, *Not is exhaustive.
type Filter interface {
	filterNode()
}

// CompareOp is one of the nine filter comparison operators.
type CompareOp string

const (
	OpEqual              CompareOp = "eq"
	OpNotEqual           CompareOp = "ne"
	OpContains           CompareOp = "co"
	OpStartsWith         CompareOp = "sw"
	OpEndsWith           CompareOp = "ew"
	OpGreaterThan        CompareOp = "gt"
	OpGreaterThanOrEqual CompareOp = "ge"
	OpLessThan           CompareOp = "lt"
	OpLessThanOrEqual    CompareOp = "le"
)

// CompValue is the right-hand side of a Compare filter: nil, bool, json.Number, or
// string, exactly one of JSON's non-container literal kinds.
type CompValue interface{}

// Present is "attrPath pr": true when the attribute has any value.
type Present struct {
	Attr AttrPath
}

// Compare is "attrPath op compValue".
type Compare struct {
	Attr  AttrPath
	Op    CompareOp
	Value CompValue
}

// Has is "attrPath[innerFilter]": true when attrPath is multi-valued and at least
// one element matches innerFilter. AttrPaths inside Inner are rewritten at parse
// time so that a bare name like "type" means "attrPath.type" relative to Attr; see
// applyHasPrefix.
type Has struct {
	Attr  AttrPath
	Inner Filter
}

// And is the conjunction of two or more filters.
type And struct {
	Filters []Filter
}

// Or is the disjunction of two or more filters.
type Or struct {
	Filters []Filter
}

// Not negates a single filter, which may itself be a parenthesized group.
type Not struct {
	Filter Filter
}

func (*Present) filterNode() {}
func (*Compare) filterNode() {}
func (*Has) filterNode()     {}
func (*And) filterNode()     {}
func (*Or) filterNode()      {}
func (*Not) filterNode()     {}

// Visitor observes every AttrPath reachable from a Filter or ValuePath. Walk and
// WalkValuePath pass each AttrPath by pointer so a Visitor may rewrite it in place
// (normalize.Normalizer does this to fix attribute casing).
type Visitor interface {
	VisitAttrPath(attr *AttrPath)
}

// Walk visits every AttrPath reachable from f, recursing into Has's inner filter
// and into every branch of And/Or/Not.
func Walk(v Visitor, f Filter) {
	switch x := f.(type) {
	case *Present:
		v.VisitAttrPath(&x.Attr)
	case *Compare:
		v.VisitAttrPath(&x.Attr)
	case *Has:
		v.VisitAttrPath(&x.Attr)
		Walk(v, x.Inner)
	case *And:
		for _, c := range x.Filters {
			Walk(v, c)
		}
	case *Or:
		for _, c := range x.Filters {
			Walk(v, c)
		}
	case *Not:
		Walk(v, x.Filter)
	}
}

// WalkValuePath visits vp's own AttrPath, then (if present) everything reachable
// from its inline filter.
func WalkValuePath(v Visitor, vp *ValuePath) {
	v.VisitAttrPath(&vp.Attr)
	if vp.Filter != nil {
		Walk(v, vp.Filter)
	}
}

type visitorFunc func(*AttrPath)

func (f visitorFunc) VisitAttrPath(attr *AttrPath) { f(attr) }

// VisitorFunc adapts a plain func(*AttrPath) to the Visitor interface.
func VisitorFunc(f func(*AttrPath)) Visitor { return visitorFunc(f) }

// applyHasPrefix rewrites the AttrPaths in f that are bare relative to parent, so
// that a reference like "type" inside "emails[type eq ...]" becomes
// "emails.type". Unlike Walk, it does not descend into a nested Has's own Inner:
// that inner expression was already resolved relative to the nested Has's
// attribute at the time its own brackets were parsed, and must be left alone.
func applyHasPrefix(parent AttrPath, f Filter) {
	rewrite := func(attr *AttrPath) {
		attr.SubAttr = attr.Name
		attr.Name = parent.Name
		attr.URN = parent.URN
	}
	switch x := f.(type) {
	case *Present:
		rewrite(&x.Attr)
	case *Compare:
		rewrite(&x.Attr)
	case *Has:
		rewrite(&x.Attr)
	case *And:
		for _, c := range x.Filters {
			applyHasPrefix(parent, c)
		}
	case *Or:
		for _, c := range x.Filters {
			applyHasPrefix(parent, c)
		}
	case *Not:
		applyHasPrefix(parent, x.Filter)
	}
}
