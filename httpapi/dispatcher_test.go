package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

// fakeManager is a minimal, in-memory manager.ResourceManager double. It
// understands just enough filter syntax (top-level eq, meta.resourceType eq,
// And) to exercise the dispatcher's request/response plumbing; it is not a
// stand-in for memstore's more complete evaluator.
type fakeManager struct {
	mu       sync.Mutex
	rt       *spec.ResourceType
	schemas  []*spec.Schema
	store    map[string]map[string]interface{}
	nextID   int
	pageSize int
	pingErr  error
}

func newFakeManager(rt *spec.ResourceType, schemas []*spec.Schema) *fakeManager {
	return &fakeManager{rt: rt, schemas: schemas, store: make(map[string]map[string]interface{}), pageSize: 10}
}

func (m *fakeManager) ResourceType() *spec.ResourceType { return m.rt }
func (m *fakeManager) Schemas() []*spec.Schema           { return m.schemas }
func (m *fakeManager) DefaultPageSize() int              { return m.pageSize }

func (m *fakeManager) Ping(ctx context.Context) error { return m.pingErr }

func (m *fakeManager) Create(ctx context.Context, resource map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := strconv.Itoa(m.nextID)
	resource["id"] = id
	resource["meta"] = map[string]interface{}{
		"resourceType": m.rt.Name,
		"location":     m.rt.Endpoint + "/" + id,
		"version":      "W/\"1\"",
	}
	m.store[id] = resource
	return id, nil
}

func (m *fakeManager) Get(ctx context.Context, args manager.GetArgs) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.store[args.ID]
	if !ok {
		return nil, spec.NotFound()
	}
	return cloneMap(res), nil
}

func (m *fakeManager) Replace(ctx context.Context, id string, resource map[string]interface{}) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[id]
	if !ok {
		return nil, spec.NotFound()
	}
	resource["id"] = id
	resource["meta"] = existing["meta"]
	m.store[id] = resource
	return cloneMap(resource), nil
}

func (m *fakeManager) Update(ctx context.Context, args manager.UpdateArgs) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.store[args.ID]
	if !ok {
		return nil, spec.NotFound()
	}
	for _, item := range args.Items {
		if item.Kind == manager.UpdateRemove {
			delete(res, item.Path.Attr.Name)
			continue
		}
		res[item.Path.Attr.Name] = item.Value
	}
	return cloneMap(res), nil
}

func (m *fakeManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return spec.NotFound()
	}
	delete(m.store, id)
	return nil
}

func (m *fakeManager) List(ctx context.Context, args manager.ListArgs) (manager.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []map[string]interface{}
	for _, res := range m.store {
		if args.Filter == nil || evalFilter(args.Filter, res, m.rt.Name) {
			matched = append(matched, cloneMap(res))
		}
	}
	total := len(matched)
	start := args.StartIndex
	if start > len(matched) {
		start = len(matched)
	}
	end := start + args.Count
	if args.Count == 0 || end > len(matched) {
		end = len(matched)
	}
	return manager.ListResult{Resources: matched[start:end], TotalCount: total}, nil
}

func evalFilter(f expr.Filter, res map[string]interface{}, resourceTypeName string) bool {
	switch v := f.(type) {
	case *expr.And:
		for _, c := range v.Filters {
			if !evalFilter(c, res, resourceTypeName) {
				return false
			}
		}
		return true
	case *expr.Or:
		for _, c := range v.Filters {
			if evalFilter(c, res, resourceTypeName) {
				return true
			}
		}
		return false
	case *expr.Not:
		return !evalFilter(v.Filter, res, resourceTypeName)
	case *expr.Present:
		_, ok := res[v.Attr.Name]
		return ok
	case *expr.Compare:
		if v.Attr.Name == "meta" && v.Attr.SubAttr == "resourceType" {
			return v.Op == expr.OpEqual && v.Value == resourceTypeName
		}
		val, ok := res[v.Attr.Name]
		if !ok {
			return false
		}
		return v.Op == expr.OpEqual && val == v.Value
	default:
		return false
	}
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func setupDispatcher(t *testing.T) (*Dispatcher, *fakeManager) {
	t.Helper()
	userSchema := &spec.Schema{
		ID:   "urn:ietf:params:scim:schemas:core:2.0:User",
		Name: "User",
		Attributes: []*spec.Attribute{
			{Name: "userName", Type: spec.TypeString},
			{Name: "displayName", Type: spec.TypeString},
		},
	}
	rt := &spec.ResourceType{Name: "User", Endpoint: "/Users", Schema: userSchema.ID}

	reg, err := registry.NewBuilder().
		AddSchema(userSchema).
		AddResourceType(rt).
		WithServiceProviderConfig(&spec.ServiceProviderConfig{}).
		Build()
	require.NoError(t, err)

	mgr := newFakeManager(rt, []*spec.Schema{userSchema})

	log := zerolog.Nop()
	d, err := NewBuilder(reg, &log).AddManager(mgr).Build()
	require.NoError(t, err)
	return d, mgr
}

func doRequest(h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestDispatcher_CreateAndGet(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "/v2")

	w := doRequest(h, http.MethodPost, "http://example.com/v2/Users", map[string]interface{}{"userName": "bjensen"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))
	assert.Equal(t, "W/\"1\"", w.Header().Get("ETag"))

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	w = doRequest(h, http.MethodGet, "http://example.com/v2/Users/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "bjensen", fetched["userName"])
	meta := fetched["meta"].(map[string]interface{})
	assert.Equal(t, "http://example.com/v2/Users/"+id, meta["location"])
}

func TestDispatcher_ListWithFilter(t *testing.T) {
	d, mgr := setupDispatcher(t)
	h := Router(d, "")
	_, err := mgr.Create(context.Background(), map[string]interface{}{"userName": "bjensen"})
	require.NoError(t, err)
	_, err = mgr.Create(context.Background(), map[string]interface{}{"userName": "jsmith"})
	require.NoError(t, err)

	w := doRequest(h, http.MethodGet, `/Users?filter=userName+eq+"bjensen"`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lr listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	require.Len(t, lr.Resources, 1)
	assert.Equal(t, "bjensen", lr.Resources[0]["userName"])
	assert.Equal(t, 1, lr.TotalResults)
	assert.Equal(t, 1, lr.StartIndex)
}

func TestDispatcher_PatchReplace(t *testing.T) {
	d, mgr := setupDispatcher(t)
	h := Router(d, "")
	id, err := mgr.Create(context.Background(), map[string]interface{}{"userName": "bjensen"})
	require.NoError(t, err)

	body := map[string]interface{}{
		"schemas": []string{"urn:ietf:params:scim:api:messages:2.0:PatchOp"},
		"Operations": []map[string]interface{}{
			{"op": "replace", "path": "displayName", "value": "Babs Jensen"},
		},
	}
	w := doRequest(h, http.MethodPatch, "/Users/"+id, body)
	require.Equal(t, http.StatusOK, w.Code)
	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Babs Jensen", updated["displayName"])
}

func TestDispatcher_GetUnknownResourceIs404(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "")
	w := doRequest(h, http.MethodGet, "/Users/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "404", body.Status)
}

func TestDispatcher_UnknownEndpointIs404(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "")
	w := doRequest(h, http.MethodGet, "/Groups", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatcher_UnsupportedMethodIs405(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "")
	w := doRequest(h, http.MethodTrace, "/Users", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestDispatcher_CrossTypeSearch(t *testing.T) {
	d, mgr := setupDispatcher(t)
	h := Router(d, "")
	_, err := mgr.Create(context.Background(), map[string]interface{}{"userName": "bjensen"})
	require.NoError(t, err)

	w := doRequest(h, http.MethodPost, "/.search", map[string]interface{}{
		"filter": `meta.resourceType eq "User"`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var lr listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	require.Len(t, lr.Resources, 1)
	assert.Equal(t, "bjensen", lr.Resources[0]["userName"])
}

func TestDispatcher_CrossTypeSearchWithoutResourceTypeConjunctFails(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "")
	w := doRequest(h, http.MethodPost, "/.search", map[string]interface{}{
		"filter": `userName eq "bjensen"`,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatcher_Discovery(t *testing.T) {
	d, _ := setupDispatcher(t)
	h := Router(d, "/v2")

	w := doRequest(h, http.MethodGet, "http://example.com/v2/ServiceProviderConfig", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(h, http.MethodGet, "http://example.com/v2/Schemas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lr listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	require.Len(t, lr.Resources, 1)
	meta := lr.Resources[0]["meta"].(map[string]interface{})
	assert.Equal(t, "http://example.com/v2/Schemas/urn:ietf:params:scim:schemas:core:2.0:User", meta["location"])

	w = doRequest(h, http.MethodGet, "http://example.com/v2/ResourceTypes/User", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDispatcher_Health(t *testing.T) {
	d, mgr := setupDispatcher(t)
	h := Router(d, "")

	w := doRequest(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	mgr.pingErr = assertError{"store unreachable"}
	w = doRequest(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
