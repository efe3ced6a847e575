package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/spec"
)

func testSchemas() []*spec.Schema {
	return []*spec.Schema{
		{
			ID:   "urn:ietf:params:scim:schemas:core:2.0:User",
			Name: "User",
			Attributes: []*spec.Attribute{
				{Name: "userName", Type: spec.TypeString, CaseExact: true},
				{Name: "schemas", Type: spec.TypeString, MultiValued: true, CaseExact: true},
				{
					Name: "name", Type: spec.TypeComplex,
					SubAttributes: []*spec.Attribute{
						{Name: "familyName", Type: spec.TypeString, CaseExact: true},
					},
				},
				{
					Name: "emails", Type: spec.TypeComplex, MultiValued: true,
					SubAttributes: []*spec.Attribute{
						{Name: "value", Type: spec.TypeString, CaseExact: true},
						{Name: "type", Type: spec.TypeString, CaseExact: true},
					},
				},
			},
		},
	}
}

func transformJSON(t *testing.T, filterExpr string) string {
	t.Helper()
	f, err := expr.ParseFilter(filterExpr)
	require.NoError(t, err)
	doc, err := transform(testSchemas(), f)
	require.NoError(t, err)
	raw, err := bson.MarshalExtJSON(doc, true, true)
	require.NoError(t, err)
	return string(raw)
}

func TestTransform_TopLevelPresent(t *testing.T) {
	got := transformJSON(t, "userName pr")
	assert.JSONEq(t, `{"$and":[{"userName":{"$exists":true}},{"userName":{"$ne":null}},{"userName":{"$ne":""}}]}`, got)
}

func TestTransform_NestedPresent(t *testing.T) {
	got := transformJSON(t, "name.familyName pr")
	assert.JSONEq(t, `{"$and":[{"name.familyName":{"$exists":true}},{"name.familyName":{"$ne":null}},{"name.familyName":{"$ne":""}}]}`, got)
}

func TestTransform_MultiValuedEq(t *testing.T) {
	got := transformJSON(t, `schemas eq "foobar"`)
	assert.JSONEq(t, `{"schemas":{"$eq":"foobar"}}`, got)
}

func TestTransform_HasOverMultivalued(t *testing.T) {
	got := transformJSON(t, `emails[type eq "work"]`)
	assert.JSONEq(t, `{"emails":{"$elemMatch":{"type":{"$eq":"work"}}}}`, got)
}

func TestTransform_And(t *testing.T) {
	got := transformJSON(t, `userName eq "bjensen" and name.familyName eq "Jensen"`)
	assert.JSONEq(t, `{"$and":[{"userName":{"$eq":"bjensen"}},{"name.familyName":{"$eq":"Jensen"}}]}`, got)
}

func TestTransform_UnknownAttributeErrors(t *testing.T) {
	f, err := expr.ParseFilter(`nickname eq "bob"`)
	require.NoError(t, err)
	_, err = transform(testSchemas(), f)
	require.Error(t, err)
}
