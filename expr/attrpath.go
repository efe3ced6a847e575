package expr

// AttrPath is a (urn?, name, subAttr?) triple locating a value within a resource.
// URN and SubAttr are the empty string when absent. Canonical form (after
// normalize.Normalizer has run) clears URN for attributes of the resource's core
// schema, and sets it to the schema's declared-case URN otherwise; Name and SubAttr
// are rewritten to the schema's declared casing.
type AttrPath struct {
	URN     string
	Name    string
	SubAttr string
}

// HasURN reports whether this path carries an explicit schema URN.
func (a AttrPath) HasURN() bool { return a.URN != "" }

// HasSubAttr reports whether this path addresses a sub-attribute of a complex
// attribute.
func (a AttrPath) HasSubAttr() bool { return a.SubAttr != "" }

// ValuePath is either a bare AttrPath or an AttrPath filtered by an inline value
// filter, optionally followed by a trailing sub-attribute selector (stored in
// Attr.SubAttr). Used as the "path" of a PATCH operation.
type ValuePath struct {
	Attr   AttrPath
	Filter Filter // nil for a bare attribute path
}

// Filtered reports whether this value path carries an inline filter
// (e.g. "emails[type eq \"work\"]").
func (v ValuePath) Filtered() bool { return v.Filter != nil }
