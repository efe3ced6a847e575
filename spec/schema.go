package spec

import "strings"

// Schema is a URN-identified, ordered set of Attribute definitions. A Schema is
// immutable once registered with a registry.Registry.
type Schema struct {
	Schemas     []string     `json:"schemas,omitempty"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Attributes  []*Attribute `json:"attributes"`
	Meta        *Meta        `json:"meta,omitempty"`
}

// AttributeForName returns the top-level attribute whose Name matches the given name
// case-insensitively, or nil if this schema declares no such attribute.
func (s *Schema) AttributeForName(name string) *Attribute {
	if s == nil {
		return nil
	}
	for _, attr := range s.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr
		}
	}
	return nil
}

// Locate populates Meta.Location with this schema's discovery URL, relative to the
// SCIM base path.
func (s *Schema) Locate() {
	if s.Meta == nil {
		s.Meta = &Meta{}
	}
	s.Meta.ResourceType = "Schema"
	s.Meta.Location = "/Schemas/" + s.ID
}
