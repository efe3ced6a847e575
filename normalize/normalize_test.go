package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

func setup(t *testing.T) (*registry.Registry, *spec.ResourceType) {
	t.Helper()
	user := &spec.Schema{
		ID:   "urn:ietf:params:scim:schemas:core:2.0:User",
		Name: "User",
		Attributes: []*spec.Attribute{
			{Name: "userName", Type: spec.TypeString},
			{Name: "emails", Type: spec.TypeComplex, MultiValued: true, SubAttributes: []*spec.Attribute{
				{Name: "type", Type: spec.TypeString},
				{Name: "value", Type: spec.TypeString},
			}},
		},
	}
	ent := &spec.Schema{
		ID:   "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User",
		Name: "EnterpriseUser",
		Attributes: []*spec.Attribute{
			{Name: "employeeNumber", Type: spec.TypeString},
		},
	}
	rt := &spec.ResourceType{
		Name: "User", Endpoint: "/Users", Schema: user.ID,
		SchemaExtensions: []spec.SchemaExtension{{Schema: ent.ID}},
	}
	reg, err := registry.NewBuilder().
		AddSchema(user).AddSchema(ent).AddResourceType(rt).
		WithServiceProviderConfig(&spec.ServiceProviderConfig{}).Build()
	require.NoError(t, err)
	return reg, rt
}

func TestNormalizer_FixesCasing(t *testing.T) {
	reg, rt := setup(t)
	f, err := expr.ParseFilter(`USERNAME eq "bjensen"`)
	require.NoError(t, err)
	n := New(reg, rt)
	f = n.Filter(f)
	cmp := f.(*expr.Compare)
	require.Equal(t, "userName", cmp.Attr.Name)
}

func TestNormalizer_StampsExtensionURN(t *testing.T) {
	reg, rt := setup(t)
	f, err := expr.ParseFilter(`employeeNumber eq "1"`)
	require.NoError(t, err)
	f = New(reg, rt).Filter(f)
	cmp := f.(*expr.Compare)
	require.Equal(t, "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User", cmp.Attr.URN)
}

func TestNormalizer_LeavesExplicitCoreURNBlank(t *testing.T) {
	reg, rt := setup(t)
	f, err := expr.ParseFilter(`urn:ietf:params:scim:schemas:core:2.0:User:userName eq "a"`)
	require.NoError(t, err)
	f = New(reg, rt).Filter(f)
	cmp := f.(*expr.Compare)
	require.Equal(t, "", cmp.Attr.URN)
}

func TestNormalizer_LeavesUnknownAttributeUntouched(t *testing.T) {
	reg, rt := setup(t)
	f, err := expr.ParseFilter(`bogus eq "a"`)
	require.NoError(t, err)
	f = New(reg, rt).Filter(f)
	cmp := f.(*expr.Compare)
	require.Equal(t, "bogus", cmp.Attr.Name)
}

func TestNormalizer_FixesCasingInsideHasFilter(t *testing.T) {
	reg, rt := setup(t)
	f, err := expr.ParseFilter(`EMAILS[TYPE eq "work"]`)
	require.NoError(t, err)
	f = New(reg, rt).Filter(f)
	has := f.(*expr.Has)
	require.Equal(t, "emails", has.Attr.Name)
	cmp := has.Inner.(*expr.Compare)
	require.Equal(t, "emails", cmp.Attr.Name)
	require.Equal(t, "type", cmp.Attr.SubAttr)
}

func TestNormalizer_ValuePath(t *testing.T) {
	reg, rt := setup(t)
	vp, err := expr.ParseValuePath(`EMAILS[TYPE eq "work"].VALUE`)
	require.NoError(t, err)
	New(reg, rt).ValuePath(vp)
	require.Equal(t, "emails", vp.Attr.Name)
	require.Equal(t, "value", vp.Attr.SubAttr)
}
