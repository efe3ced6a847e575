package spec

import (
	"encoding/json"
	"strings"
)

// Attribute is a single attribute definition within a Schema. It is immutable once a
// Schema has been registered with a registry.Registry.
type Attribute struct {
	Name            string       `json:"name"`
	Type            Type         `json:"type"`
	MultiValued     bool         `json:"multiValued,omitempty"`
	Description     string       `json:"description,omitempty"`
	Required        bool         `json:"required,omitempty"`
	CanonicalValues []string     `json:"canonicalValues,omitempty"`
	CaseExact       bool         `json:"caseExact,omitempty"`
	Mutability      Mutability   `json:"mutability,omitempty"`
	Returned        Returned     `json:"returned,omitempty"`
	Uniqueness      Uniqueness   `json:"uniqueness,omitempty"`
	ReferenceTypes  []string     `json:"referenceTypes,omitempty"`
	SubAttributes   []*Attribute `json:"subAttributes,omitempty"`
}

// UnmarshalJSON applies the RFC 7643 defaults (mutability=readWrite, returned=default,
// uniqueness=none) the way the zero value of a Go string type otherwise would not.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	type alias Attribute
	aux := alias{
		Mutability: MutabilityReadWrite,
		Returned:   ReturnedDefault,
		Uniqueness: UniquenessNone,
		Type:       TypeString,
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Attribute(aux)
	return nil
}

// SubAttributeForName returns the sub-attribute whose Name matches the given name
// case-insensitively, or nil. Only meaningful when a.Type == TypeComplex.
func (a *Attribute) SubAttributeForName(name string) *Attribute {
	if a == nil {
		return nil
	}
	for _, sub := range a.SubAttributes {
		if strings.EqualFold(sub.Name, name) {
			return sub
		}
	}
	return nil
}

// Walk invokes fn for this attribute and, if complex, each of its sub-attributes.
func (a *Attribute) Walk(fn func(path []string, attr *Attribute)) {
	fn(nil, a)
	for _, sub := range a.SubAttributes {
		fn([]string{a.Name}, sub)
	}
}
