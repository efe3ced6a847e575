package spec

// Well-known schema URNs used in message envelopes and discovery documents.
const (
	ListResponseSchema = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	PatchOpSchema       = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	ErrorSchema         = "urn:ietf:params:scim:api:messages:2.0:Error"
	SchemaSchema        = "urn:ietf:params:scim:schemas:core:2.0:Schema"
	ResourceTypeSchema  = "urn:ietf:params:scim:schemas:core:2.0:ResourceType"
	ServiceProviderConfigSchemaURN = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
)

// ApplicationScimJSON is the content type mandated for every SCIM wire message.
const ApplicationScimJSON = "application/scim+json"

// ISO8601 is the timestamp layout used for meta.created / meta.lastModified.
const ISO8601 = "2006-01-02T15:04:05Z07:00"
