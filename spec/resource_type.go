package spec

import "strings"

// SchemaExtension pairs an extension schema URN with whether it is required on
// create.
type SchemaExtension struct {
	Schema   string `json:"schema"`
	Required bool   `json:"required"`
}

// ResourceType names a category of resources exposed at a URL endpoint, backed by a
// core schema plus an ordered set of extensions.
type ResourceType struct {
	Schemas          []string          `json:"schemas,omitempty"`
	ID               string            `json:"id,omitempty"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Endpoint         string            `json:"endpoint"`
	Schema           string            `json:"schema"`
	SchemaExtensions []SchemaExtension `json:"schemaExtensions,omitempty"`
	Meta             *Meta             `json:"meta,omitempty"`
}

// Locate populates Meta.Location with this resource type's discovery URL.
func (rt *ResourceType) Locate() {
	if rt.Meta == nil {
		rt.Meta = &Meta{}
	}
	rt.Meta.ResourceType = "ResourceType"
	rt.Meta.Location = "/ResourceTypes/" + rt.Name
}

// ExtensionURN reports whether urn names one of this resource type's registered
// extension schemas, case-insensitively.
func (rt *ResourceType) ExtensionURN(urn string) (SchemaExtension, bool) {
	for _, ext := range rt.SchemaExtensions {
		if strings.EqualFold(ext.Schema, urn) {
			return ext, true
		}
	}
	return SchemaExtension{}, false
}
