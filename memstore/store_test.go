package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/spec"
)

func userResourceType() *spec.ResourceType {
	return &spec.ResourceType{Name: "User", Endpoint: "/Users", Schema: "urn:ietf:params:scim:schemas:core:2.0:User"}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	id, err := s.Create(context.Background(), map[string]interface{}{"userName": "bjensen"})
	require.NoError(t, err)

	res, err := s.Get(context.Background(), manager.GetArgs{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "bjensen", res["userName"])
	meta := res["meta"].(map[string]interface{})
	assert.Equal(t, "User", meta["resourceType"])
	assert.Equal(t, "/Users/"+id, meta["location"])
}

func TestStore_GetUnknownIsNotFound(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	_, err := s.Get(context.Background(), manager.GetArgs{ID: "nope"})
	require.Error(t, err)
	scimErr, ok := err.(*spec.Error)
	require.True(t, ok)
	assert.Equal(t, 404, scimErr.Status)
}

func TestStore_ListFiltersByCompare(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	_, _ = s.Create(ctx, map[string]interface{}{"userName": "bjensen"})
	_, _ = s.Create(ctx, map[string]interface{}{"userName": "jsmith"})

	f, err := expr.ParseFilter(`userName eq "bjensen"`)
	require.NoError(t, err)

	result, err := s.List(ctx, manager.ListArgs{Filter: f, Count: 10})
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "bjensen", result.Resources[0]["userName"])
	assert.Equal(t, 1, result.TotalCount)
}

func TestStore_ListFiltersByHasOverMultivalued(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	_, _ = s.Create(ctx, map[string]interface{}{
		"userName": "bjensen",
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "bjensen@example.com"},
			map[string]interface{}{"type": "home", "value": "babs@example.com"},
		},
	})
	_, _ = s.Create(ctx, map[string]interface{}{
		"userName": "jsmith",
		"emails": []interface{}{
			map[string]interface{}{"type": "home", "value": "js@example.com"},
		},
	})

	f, err := expr.ParseFilter(`emails[type eq "work"]`)
	require.NoError(t, err)

	result, err := s.List(ctx, manager.ListArgs{Filter: f, Count: 10})
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "bjensen", result.Resources[0]["userName"])
}

func TestStore_ListSortsAndPages(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	_, _ = s.Create(ctx, map[string]interface{}{"userName": "charlie"})
	_, _ = s.Create(ctx, map[string]interface{}{"userName": "alice"})
	_, _ = s.Create(ctx, map[string]interface{}{"userName": "bob"})

	sortBy := expr.AttrPath{Name: "userName"}
	result, err := s.List(ctx, manager.ListArgs{SortBy: &sortBy, Count: 2})
	require.NoError(t, err)
	require.Len(t, result.Resources, 2)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, "alice", result.Resources[0]["userName"])
	assert.Equal(t, "bob", result.Resources[1]["userName"])
}

func TestStore_UpdateReplaceTopLevel(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	id, _ := s.Create(ctx, map[string]interface{}{"userName": "bjensen"})

	updated, err := s.Update(ctx, manager.UpdateArgs{
		ID: id,
		Items: []manager.UpdateItem{
			{Path: expr.ValuePath{Attr: expr.AttrPath{Name: "displayName"}}, Kind: manager.UpdateReplace, Value: "Babs Jensen"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Babs Jensen", updated["displayName"])
}

func TestStore_UpdateReplaceWithinFilteredElement(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	id, _ := s.Create(ctx, map[string]interface{}{
		"userName": "bjensen",
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "old@example.com"},
		},
	})

	vp, err := expr.ParseValuePath(`emails[type eq "work"].value`)
	require.NoError(t, err)

	updated, err := s.Update(ctx, manager.UpdateArgs{
		ID: id,
		Items: []manager.UpdateItem{
			{Path: *vp, Kind: manager.UpdateReplace, Value: "new@example.com"},
		},
	})
	require.NoError(t, err)
	emails := updated["emails"].([]interface{})
	assert.Equal(t, "new@example.com", emails[0].(map[string]interface{})["value"])
}

func TestStore_DeleteRemovesResource(t *testing.T) {
	s := New(userResourceType(), nil, 10)
	ctx := context.Background()
	id, _ := s.Create(ctx, map[string]interface{}{"userName": "bjensen"})

	require.NoError(t, s.Delete(ctx, id))
	_, err := s.Get(ctx, manager.GetArgs{ID: id})
	require.Error(t, err)
}
