// Package patch translates a SCIM PATCH request body (RFC 7644 §3.5.2) into a flat
// list of canonical update items a manager can apply uniformly, regardless of
// which of the wire's several equivalent shapes the client used.
package patch

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/normalize"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

// Kind is the operation an Item applies.
type Kind int

const (
	Add Kind = iota
	Replace
	Remove
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// RawOperation is one element of a PATCH request's "Operations" array, as decoded
// straight from JSON. Value is kept as raw JSON, not interface{}, so that a
// path-less object value can later be walked in its original key order —
// map[string]interface{} would have already lost that order by the time it
// reached this struct.
type RawOperation struct {
	Op    string          `json:"op"`
	Path  *string         `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Item is one canonical update: a value path to apply it at, and the operation
// kind. Value is nil for Remove.
type Item struct {
	Path  expr.ValuePath
	Kind  Kind
	Value interface{}
}

// Translate converts a PATCH body's operations into a flat Item list, parsing and
// normalizing every path against rt's schemas. A path-less Add or Replace whose
// value is a JSON object is flattened into one Item per top-level key (RFC 7644
// §3.5.2.1): a key matching a registered extension URN recurses one level into
// that key's own object value; every other key becomes a core-schema Item.
func Translate(reg *registry.Registry, rt *spec.ResourceType, ops []RawOperation) ([]Item, error) {
	n := normalize.New(reg, rt)
	var items []Item
	for _, raw := range ops {
		kind, err := parseKind(raw.Op)
		if err != nil {
			return nil, err
		}

		if raw.Path != nil && *raw.Path != "" {
			vp, err := expr.ParseValuePath(*raw.Path)
			if err != nil {
				return nil, err
			}
			n.ValuePath(vp)
			val, err := decodeValue(raw.Value)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Path: *vp, Kind: kind, Value: val})
			continue
		}

		if kind == Remove {
			return nil, spec.NoTarget("remove operation requires a path")
		}

		fields, err := decodeOrderedObject(raw.Value)
		if err != nil {
			return nil, spec.Expected("an object value for a path-less add/replace operation")
		}
		flat, err := flatten(n, rt, kind, fields)
		if err != nil {
			return nil, err
		}
		items = append(items, flat...)
	}
	return items, nil
}

func flatten(n *normalize.Normalizer, rt *spec.ResourceType, kind Kind, fields []orderedField) ([]Item, error) {
	var items []Item
	for _, f := range fields {
		if ext, ok := rt.ExtensionURN(f.Key); ok {
			inner, err := decodeOrderedObject(f.Value)
			if err != nil {
				return nil, spec.Expected("an object value for schema extension " + ext.Schema)
			}
			for _, innerField := range inner {
				innerVal, err := decodeValue(innerField.Value)
				if err != nil {
					return nil, err
				}
				vp := &expr.ValuePath{Attr: expr.AttrPath{URN: f.Key, Name: innerField.Key}}
				n.ValuePath(vp)
				items = append(items, Item{Path: *vp, Kind: kind, Value: innerVal})
			}
			continue
		}
		val, err := decodeValue(f.Value)
		if err != nil {
			return nil, err
		}
		vp := &expr.ValuePath{Attr: expr.AttrPath{Name: f.Key}}
		n.ValuePath(vp)
		items = append(items, Item{Path: *vp, Kind: kind, Value: val})
	}
	return items, nil
}

// orderedField is one key/value pair of a JSON object, decoded without losing
// its position in the source — unlike map[string]interface{}, which discards
// key order on unmarshal and is further scrambled by Go's randomized map
// iteration.
type orderedField struct {
	Key   string
	Value json.RawMessage
}

// decodeOrderedObject decodes a JSON object's top-level fields in source order.
func decodeOrderedObject(data json.RawMessage) ([]orderedField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, spec.Expected("a JSON object")
	}
	var fields []orderedField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, spec.Expected("a JSON object")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, orderedField{Key: key, Value: raw})
	}
	return fields, nil
}

// decodeValue unmarshals a single value, not an object's fields, so order
// never matters here: the result is attached to exactly one Item.
func decodeValue(data json.RawMessage) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var val interface{}
	if err := json.Unmarshal(data, &val); err != nil {
		return nil, spec.Expected("valid JSON in value")
	}
	return val, nil
}

func parseKind(op string) (Kind, error) {
	switch strings.ToLower(op) {
	case "add":
		return Add, nil
	case "replace":
		return Replace, nil
	case "remove":
		return Remove, nil
	default:
		return 0, spec.Expected("op to be one of add, replace, remove")
	}
}
