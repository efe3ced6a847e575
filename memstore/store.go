// Package memstore is an in-memory manager.ResourceManager, intended for
// testing and showcasing rather than production use: it holds every resource
// as a plain map guarded by a single RWMutex and evaluates filters by
// scanning the whole set. It does not implement manager.Pinger, since an
// in-memory map has no reachability of its own to report.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/spec"
)

// Store is a manager.ResourceManager backed by an in-process map. Safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	rt       *spec.ResourceType
	schemas  []*spec.Schema
	data     map[string]map[string]interface{}
	pageSize int
}

// New returns an empty Store for rt, backed by schemas (rt's core schema
// followed by its extensions, as returned by registry.SchemasForResourceType).
// defaultPageSize is returned from DefaultPageSize.
func New(rt *spec.ResourceType, schemas []*spec.Schema, defaultPageSize int) *Store {
	return &Store{
		rt:       rt,
		schemas:  schemas,
		data:     make(map[string]map[string]interface{}),
		pageSize: defaultPageSize,
	}
}

func (s *Store) ResourceType() *spec.ResourceType { return s.rt }
func (s *Store) Schemas() []*spec.Schema          { return s.schemas }
func (s *Store) DefaultPageSize() int             { return s.pageSize }

func (s *Store) Create(_ context.Context, resource map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := time.Now().UTC()
	resource["id"] = id
	resource["meta"] = map[string]interface{}{
		"resourceType": s.rt.Name,
		"created":      now,
		"lastModified": now,
		"location":     s.rt.Endpoint + "/" + id,
		"version":      etag(1),
	}
	s.data[id] = resource
	return id, nil
}

func (s *Store) Get(_ context.Context, args manager.GetArgs) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.data[args.ID]
	if !ok {
		return nil, spec.NotFound()
	}
	return cloneResource(res), nil
}

func (s *Store) Replace(_ context.Context, id string, resource map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.data[id]
	if !ok {
		return nil, spec.NotFound()
	}
	resource["id"] = id
	resource["meta"] = bumpMeta(existing["meta"])
	s.data[id] = resource
	return cloneResource(resource), nil
}

func (s *Store) Update(_ context.Context, args manager.UpdateArgs) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.data[args.ID]
	if !ok {
		return nil, spec.NotFound()
	}
	for _, item := range args.Items {
		if err := applyUpdate(res, item); err != nil {
			return nil, err
		}
	}
	res["meta"] = bumpMeta(res["meta"])
	return cloneResource(res), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return spec.NotFound()
	}
	delete(s.data, id)
	return nil
}

func (s *Store) List(_ context.Context, args manager.ListArgs) (manager.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []map[string]interface{}
	for _, res := range s.data {
		if matches(res, args.Filter) {
			candidates = append(candidates, res)
		}
	}

	if args.SortBy != nil {
		sortResources(candidates, *args.SortBy, args.SortOrder)
	}

	total := len(candidates)
	start := args.StartIndex
	if start > total {
		start = total
	}
	end := total
	if args.Count > 0 && start+args.Count < end {
		end = start + args.Count
	}

	page := make([]map[string]interface{}, 0, end-start)
	for _, res := range candidates[start:end] {
		page = append(page, cloneResource(res))
	}
	return manager.ListResult{Resources: page, TotalCount: total}, nil
}

func sortResources(resources []map[string]interface{}, by expr.AttrPath, order manager.SortOrder) {
	sort.SliceStable(resources, func(i, j int) bool {
		vi, _ := resolveTopLevel(resources[i], by)
		vj, _ := resolveTopLevel(resources[j], by)
		less := fmt.Sprint(vi) < fmt.Sprint(vj)
		if order == manager.Descending {
			return !less
		}
		return less
	})
}

func applyUpdate(res map[string]interface{}, item manager.UpdateItem) error {
	base := res
	if item.Path.Attr.URN != "" {
		ext, ok := base[item.Path.Attr.URN].(map[string]interface{})
		if !ok {
			if item.Kind == manager.UpdateRemove {
				return nil
			}
			ext = map[string]interface{}{}
			base[item.Path.Attr.URN] = ext
		}
		base = ext
	}

	name := item.Path.Attr.Name
	sub := item.Path.Attr.SubAttr

	if item.Path.Filter != nil {
		arr, _ := base[name].([]interface{})
		matched := false
		for _, el := range arr {
			m, ok := el.(map[string]interface{})
			if !ok {
				continue
			}
			if evalFilter(item.Path.Filter, res, m) {
				matched = true
				applyLeaf(m, sub, item.Kind, item.Value)
			}
		}
		if !matched && item.Kind != manager.UpdateRemove {
			return spec.NoTarget("no element of " + name + " matches the patch filter")
		}
		return nil
	}

	if sub != "" {
		m, ok := base[name].(map[string]interface{})
		if !ok {
			if item.Kind == manager.UpdateRemove {
				return nil
			}
			m = map[string]interface{}{}
			base[name] = m
		}
		applyLeaf(m, sub, item.Kind, item.Value)
		return nil
	}

	applyLeaf(base, name, item.Kind, item.Value)
	return nil
}

func applyLeaf(m map[string]interface{}, key string, kind manager.UpdateKind, value interface{}) {
	switch kind {
	case manager.UpdateRemove:
		delete(m, key)
	case manager.UpdateAdd:
		if existing, ok := m[key].([]interface{}); ok {
			if added, ok := value.([]interface{}); ok {
				m[key] = append(existing, added...)
			} else {
				m[key] = append(existing, value)
			}
			return
		}
		m[key] = value
	case manager.UpdateReplace:
		m[key] = value
	}
}

func bumpMeta(existing interface{}) map[string]interface{} {
	m, ok := existing.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["lastModified"] = time.Now().UTC()
	n := 1
	if v, ok := out["version"].(string); ok {
		fmt.Sscanf(v, `W/"%d"`, &n)
		n++
	}
	out["version"] = etag(n)
	return out
}

func etag(n int) string {
	return fmt.Sprintf(`W/"%d"`, n)
}

func cloneResource(res map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(res))
	for k, v := range res {
		out[k] = v
	}
	return out
}
