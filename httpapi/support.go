package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/normalize"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/selection"
	"github.com/platformed/scimcore/spec"
)

func parseFilterOrEmpty(s string) (expr.Filter, error) {
	if s == "" {
		return nil, nil
	}
	return expr.ParseFilter(s)
}

func attrsFromQuery(r *http.Request, reg *registry.Registry, rt *spec.ResourceType) (include, exclude []expr.AttrPath, err error) {
	n := normalize.New(reg, rt)
	q := r.URL.Query()
	include, err = parseAttrPaths(splitMultiString(q.Get(paramAttributes)), n)
	if err != nil {
		return nil, nil, err
	}
	exclude, err = parseAttrPaths(splitMultiString(q.Get(paramExcludedAttributes)), n)
	if err != nil {
		return nil, nil, err
	}
	return include, exclude, nil
}

func selectionFor(reg *registry.Registry, rt *spec.ResourceType, include, exclude []expr.AttrPath) []expr.AttrPath {
	return selection.New(reg, rt).OptionalAttributes(include, exclude)
}

func writeDocument(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", spec.ApplicationScimJSON)
	w.WriteHeader(status)
	writeJSON(w, v)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}

// toMaps round-trips a slice of documents through JSON so they can sit alongside
// manager-supplied map[string]interface{} resources in a ListResponse envelope.
func toMaps[T any](items []T) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
