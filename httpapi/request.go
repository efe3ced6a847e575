package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/normalize"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/selection"
	"github.com/platformed/scimcore/spec"
)

const (
	paramFilter             = "filter"
	paramSortBy             = "sortBy"
	paramSortOrder          = "sortOrder"
	paramStartIndex         = "startIndex"
	paramCount              = "count"
	paramAttributes         = "attributes"
	paramExcludedAttributes = "excludedAttributes"
)

// searchRequest is the normalized form of a list/search request before it has
// been turned into manager.ListArgs; it is built identically whether the
// original request was a GET query string or a POST .search JSON body.
type searchRequest struct {
	Filter             string
	SortBy             string
	SortOrder          string
	StartIndex         int // 1-based, 0 means unset
	Count              int
	Attributes         []string
	ExcludedAttributes []string
}

func listArgsFromQuery(r *http.Request, reg *registry.Registry, rt *spec.ResourceType, defaultPageSize int) (manager.ListArgs, error) {
	q := r.URL.Query()
	sr := searchRequest{
		Filter:    q.Get(paramFilter),
		SortBy:    q.Get(paramSortBy),
		SortOrder: q.Get(paramSortOrder),
	}
	if v := q.Get(paramStartIndex); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 1 {
			return manager.ListArgs{}, spec.InvalidSyntax("startIndex must be a 1-based integer")
		}
		sr.StartIndex = idx
	}
	if v := q.Get(paramCount); v != "" {
		count, err := strconv.Atoi(v)
		if err != nil || count < 0 {
			return manager.ListArgs{}, spec.InvalidSyntax("count must be a non-negative integer")
		}
		sr.Count = count
	}
	sr.Attributes = splitMultiString(q.Get(paramAttributes))
	sr.ExcludedAttributes = splitMultiString(q.Get(paramExcludedAttributes))
	return buildListArgs(sr, reg, rt, defaultPageSize)
}

// searchRequestSchema is the schema URN RFC 7644 §3.4.3 requires on a POST
// .search body.
const searchRequestSchema = "urn:ietf:params:scim:api:messages:2.0:SearchRequest"

func listArgsFromBody(r *http.Request, reg *registry.Registry, rt *spec.ResourceType, defaultPageSize int) (manager.ListArgs, error) {
	var wire struct {
		Schemas             []string        `json:"schemas"`
		Filter              string          `json:"filter"`
		SortBy              string          `json:"sortBy"`
		SortOrder           string          `json:"sortOrder"`
		StartIndex          int             `json:"startIndex"`
		Count               int             `json:"count"`
		Attributes          json.RawMessage `json:"attributes"`
		ExcludedAttributes  json.RawMessage `json:"excludedAttributes"`
	}
	if err := decodeBody(r, &wire); err != nil {
		return manager.ListArgs{}, err
	}
	if len(wire.Schemas) > 0 && !(len(wire.Schemas) == 1 && wire.Schemas[0] == searchRequestSchema) {
		return manager.ListArgs{}, spec.InvalidSyntax("unexpected schemas for search request")
	}
	attrs, err := decodeMultiString(wire.Attributes)
	if err != nil {
		return manager.ListArgs{}, err
	}
	excl, err := decodeMultiString(wire.ExcludedAttributes)
	if err != nil {
		return manager.ListArgs{}, err
	}
	sr := searchRequest{
		Filter: wire.Filter, SortBy: wire.SortBy, SortOrder: wire.SortOrder,
		StartIndex: wire.StartIndex, Count: wire.Count,
		Attributes: attrs, ExcludedAttributes: excl,
	}
	return buildListArgs(sr, reg, rt, defaultPageSize)
}

func buildListArgs(sr searchRequest, reg *registry.Registry, rt *spec.ResourceType, defaultPageSize int) (manager.ListArgs, error) {
	n := normalize.New(reg, rt)

	var filter expr.Filter
	if sr.Filter != "" {
		f, err := expr.ParseFilter(sr.Filter)
		if err != nil {
			return manager.ListArgs{}, err
		}
		filter = n.Filter(f)
	}

	var sortBy *expr.AttrPath
	if sr.SortBy != "" {
		ap, err := expr.ParseAttrPath(sr.SortBy)
		if err != nil {
			return manager.ListArgs{}, err
		}
		n.AttrPath(&ap)
		sortBy = &ap
	}

	order := manager.Ascending
	if strings.EqualFold(sr.SortOrder, "descending") {
		order = manager.Descending
	}

	startIndex := 0
	if sr.StartIndex > 1 {
		startIndex = sr.StartIndex - 1
	}

	count := sr.Count
	if count == 0 {
		count = defaultPageSize
	}

	include, err := parseAttrPaths(sr.Attributes, n)
	if err != nil {
		return manager.ListArgs{}, err
	}
	exclude, err := parseAttrPaths(sr.ExcludedAttributes, n)
	if err != nil {
		return manager.ListArgs{}, err
	}

	return manager.ListArgs{
		Filter:             filter,
		SortBy:             sortBy,
		SortOrder:          order,
		StartIndex:         startIndex,
		Count:              count,
		OptionalAttributes: selection.New(reg, rt).OptionalAttributes(include, exclude),
	}, nil
}

func parseAttrPaths(raw []string, n *normalize.Normalizer) ([]expr.AttrPath, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]expr.AttrPath, 0, len(raw))
	for _, s := range raw {
		ap, err := expr.ParseAttrPath(s)
		if err != nil {
			return nil, err
		}
		n.AttrPath(&ap)
		out = append(out, ap)
	}
	return out, nil
}

// splitMultiString accepts a comma-separated attribute list from a query
// parameter; an empty string yields nil.
func splitMultiString(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeMultiString accepts either a JSON array of strings or a single
// comma-separated string, matching the wire leniency RFC 7644 implementations
// commonly extend to POST .search bodies.
func decodeMultiString(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, spec.InvalidSyntax("attributes/excludedAttributes must be a string or array of strings")
	}
	return splitMultiString(single), nil
}

func decodeBody(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return spec.InvalidSyntax("request body is empty")
		}
		return spec.InvalidSyntax(err.Error())
	}
	return nil
}
