package expr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Compare(t *testing.T) {
	f, err := ParseFilter(`userName eq "bjensen"`)
	require.NoError(t, err)
	cmp, ok := f.(*Compare)
	require.True(t, ok)
	assert.Equal(t, "userName", cmp.Attr.Name)
	assert.Equal(t, OpEqual, cmp.Op)
	assert.Equal(t, "bjensen", cmp.Value)
}

func TestParseFilter_Number(t *testing.T) {
	f, err := ParseFilter(`age ge 18`)
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Equal(t, json.Number("18"), cmp.Value)
}

func TestParseFilter_Present(t *testing.T) {
	f, err := ParseFilter(`title pr`)
	require.NoError(t, err)
	p, ok := f.(*Present)
	require.True(t, ok)
	assert.Equal(t, "title", p.Attr.Name)
}

func TestParseFilter_AndOrPrecedence(t *testing.T) {
	// "and" binds tighter than "or": a or b and c == a or (b and c)
	f, err := ParseFilter(`userName eq "a" or title pr and active eq true`)
	require.NoError(t, err)
	or, ok := f.(*Or)
	require.True(t, ok)
	require.Len(t, or.Filters, 2)
	_, isCompare := or.Filters[0].(*Compare)
	assert.True(t, isCompare)
	and, ok := or.Filters[1].(*And)
	require.True(t, ok)
	assert.Len(t, and.Filters, 2)
}

func TestParseFilter_Grouping(t *testing.T) {
	f, err := ParseFilter(`(userName eq "a" or userName eq "b") and active eq true`)
	require.NoError(t, err)
	and, ok := f.(*And)
	require.True(t, ok)
	require.Len(t, and.Filters, 2)
	_, isOr := and.Filters[0].(*Or)
	assert.True(t, isOr)
}

func TestParseFilter_Not(t *testing.T) {
	f, err := ParseFilter(`not (title pr)`)
	require.NoError(t, err)
	n, ok := f.(*Not)
	require.True(t, ok)
	_, isPresent := n.Filter.(*Present)
	assert.True(t, isPresent)
}

func TestParseFilter_Has(t *testing.T) {
	f, err := ParseFilter(`emails[type eq "work" and value co "@example.com"]`)
	require.NoError(t, err)
	has, ok := f.(*Has)
	require.True(t, ok)
	assert.Equal(t, "emails", has.Attr.Name)

	and, ok := has.Inner.(*And)
	require.True(t, ok)
	require.Len(t, and.Filters, 2)

	left := and.Filters[0].(*Compare)
	assert.Equal(t, "emails", left.Attr.Name)
	assert.Equal(t, "type", left.Attr.SubAttr)

	right := and.Filters[1].(*Compare)
	assert.Equal(t, "emails", right.Attr.Name)
	assert.Equal(t, "value", right.Attr.SubAttr)
}

func TestParseFilter_HasNested(t *testing.T) {
	// nested Has inside Has: the outer bracket prefixes the nested Has's own
	// attribute (now "emails.addresses"), but leaves the nested Has's already-
	// resolved inner expression ("addresses.street") untouched.
	f, err := ParseFilter(`emails[type eq "work" or addresses[street pr]]`)
	require.NoError(t, err)
	has := f.(*Has)
	or := has.Inner.(*Or)
	inner := or.Filters[1].(*Has)
	assert.Equal(t, "emails", inner.Attr.Name)
	assert.Equal(t, "addresses", inner.Attr.SubAttr)
	present := inner.Inner.(*Present)
	assert.Equal(t, "addresses", present.Attr.Name)
	assert.Equal(t, "street", present.Attr.SubAttr)
}

func TestParseFilter_SubAttr(t *testing.T) {
	f, err := ParseFilter(`name.familyName eq "O'Malley"`)
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Equal(t, "name", cmp.Attr.Name)
	assert.Equal(t, "familyName", cmp.Attr.SubAttr)
	assert.Equal(t, "O'Malley", cmp.Value)
}

func TestParseFilter_URNPrefixedEnterpriseExtension(t *testing.T) {
	f, err := ParseFilter(`urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:manager.displayName eq "J"`)
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Equal(t, "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User", cmp.Attr.URN)
	assert.Equal(t, "manager", cmp.Attr.Name)
	assert.Equal(t, "displayName", cmp.Attr.SubAttr)
}

func TestParseFilter_CaseInsensitiveKeywords(t *testing.T) {
	f, err := ParseFilter(`userName EQ "bjensen" AND active PR`)
	require.NoError(t, err)
	and := f.(*And)
	assert.Len(t, and.Filters, 2)
}

func TestParseFilter_Null(t *testing.T) {
	f, err := ParseFilter(`manager eq null`)
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Nil(t, cmp.Value)
}

func TestParseFilter_UnicodeEscape(t *testing.T) {
	f, err := ParseFilter("displayName eq \"caf\\u00e9\"")
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Equal(t, "café", cmp.Value)
}

func TestParseFilter_TrailingGarbage(t *testing.T) {
	_, err := ParseFilter(`userName eq "a" )`)
	require.Error(t, err)
}

func TestParseFilter_KeywordPrefixNotConfused(t *testing.T) {
	// "notable" must not be parsed as "not" + "able".
	f, err := ParseFilter(`notable eq "x"`)
	require.NoError(t, err)
	cmp := f.(*Compare)
	assert.Equal(t, "notable", cmp.Attr.Name)
}

func TestParseAttrPath_Bare(t *testing.T) {
	ap, err := ParseAttrPath("name.familyName")
	require.NoError(t, err)
	assert.Equal(t, AttrPath{Name: "name", SubAttr: "familyName"}, ap)
}

func TestParseValuePath_WithFilterAndTrailingSubAttr(t *testing.T) {
	vp, err := ParseValuePath(`emails[type eq "work"].value`)
	require.NoError(t, err)
	assert.Equal(t, "emails", vp.Attr.Name)
	assert.Equal(t, "value", vp.Attr.SubAttr)
	require.NotNil(t, vp.Filter)
	cmp := vp.Filter.(*Compare)
	assert.Equal(t, "type", cmp.Attr.SubAttr)
}

func TestParseValuePath_Bare(t *testing.T) {
	vp, err := ParseValuePath("displayName")
	require.NoError(t, err)
	assert.False(t, vp.Filtered())
	assert.Equal(t, "displayName", vp.Attr.Name)
}

func TestWalk_VisitsEveryAttrPath(t *testing.T) {
	f, err := ParseFilter(`userName eq "a" and (title pr or emails[type eq "work"])`)
	require.NoError(t, err)
	var names []string
	Walk(VisitorFunc(func(ap *AttrPath) {
		names = append(names, ap.Name)
	}), f)
	assert.Equal(t, []string{"userName", "title", "emails", "emails"}, names)
}
