package memstore

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/platformed/scimcore/expr"
)

// matches evaluates f against res, a resource in the flat JSON-object form every
// manager.ResourceManager works with.
func matches(res map[string]interface{}, f expr.Filter) bool {
	if f == nil {
		return true
	}
	return evalFilter(f, res, nil)
}

// evalFilter evaluates f against res. elem, when non-nil, is the multivalued
// element currently under consideration inside an enclosing Has filter; an
// AttrPath whose SubAttr was stamped by the Has rewrite resolves against elem
// instead of res.
func evalFilter(f expr.Filter, res, elem map[string]interface{}) bool {
	switch v := f.(type) {
	case *expr.And:
		for _, c := range v.Filters {
			if !evalFilter(c, res, elem) {
				return false
			}
		}
		return true
	case *expr.Or:
		for _, c := range v.Filters {
			if evalFilter(c, res, elem) {
				return true
			}
		}
		return false
	case *expr.Not:
		return !evalFilter(v.Filter, res, elem)
	case *expr.Present:
		val, ok := resolveValue(res, elem, v.Attr)
		return ok && !isEmpty(val)
	case *expr.Compare:
		val, ok := resolveValue(res, elem, v.Attr)
		if !ok {
			return false
		}
		return compareValues(val, v.Op, v.Value)
	case *expr.Has:
		for _, item := range resolveMultiValued(res, v.Attr) {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if evalFilter(v.Inner, res, m) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func resolveValue(res, elem map[string]interface{}, attr expr.AttrPath) (interface{}, bool) {
	if elem != nil && attr.SubAttr != "" {
		val, ok := elem[attr.SubAttr]
		return val, ok
	}
	return resolveTopLevel(res, attr)
}

func resolveTopLevel(res map[string]interface{}, attr expr.AttrPath) (interface{}, bool) {
	base := res
	if attr.URN != "" {
		ext, ok := res[attr.URN].(map[string]interface{})
		if !ok {
			return nil, false
		}
		base = ext
	}
	val, ok := base[attr.Name]
	if !ok {
		return nil, false
	}
	if attr.SubAttr == "" {
		return val, true
	}
	m, ok := val.(map[string]interface{})
	if !ok {
		return nil, false
	}
	sub, ok := m[attr.SubAttr]
	return sub, ok
}

func resolveMultiValued(res map[string]interface{}, attr expr.AttrPath) []interface{} {
	val, ok := resolveTopLevel(res, expr.AttrPath{URN: attr.URN, Name: attr.Name})
	if !ok {
		return nil
	}
	arr, _ := val.([]interface{})
	return arr
}

func isEmpty(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func compareValues(val interface{}, op expr.CompareOp, target expr.CompValue) bool {
	if s, ok := val.(string); ok {
		ts, ok := target.(string)
		if !ok {
			return false
		}
		return compareStrings(s, op, ts)
	}
	if n, ok := asFloat(val); ok {
		tn, ok := asFloat(target)
		if !ok {
			return false
		}
		return compareNumbers(n, op, tn)
	}
	if b, ok := val.(bool); ok {
		tb, ok := target.(bool)
		if !ok || op != expr.OpEqual && op != expr.OpNotEqual {
			return false
		}
		if op == expr.OpEqual {
			return b == tb
		}
		return b != tb
	}
	return false
}

func compareStrings(s string, op expr.CompareOp, target string) bool {
	cmp := strings.Compare(strings.ToLower(s), strings.ToLower(target))
	switch op {
	case expr.OpEqual:
		return cmp == 0
	case expr.OpNotEqual:
		return cmp != 0
	case expr.OpContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(target))
	case expr.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(target))
	case expr.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(s), strings.ToLower(target))
	case expr.OpGreaterThan:
		return cmp > 0
	case expr.OpGreaterThanOrEqual:
		return cmp >= 0
	case expr.OpLessThan:
		return cmp < 0
	case expr.OpLessThanOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

func compareNumbers(n float64, op expr.CompareOp, target float64) bool {
	switch op {
	case expr.OpEqual:
		return n == target
	case expr.OpNotEqual:
		return n != target
	case expr.OpGreaterThan:
		return n > target
	case expr.OpGreaterThanOrEqual:
		return n >= target
	case expr.OpLessThan:
		return n < target
	case expr.OpLessThanOrEqual:
		return n <= target
	default:
		return false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
