package httpapi

import (
	"strings"

	"github.com/platformed/scimcore/expr"
)

// extractResourceTypeFilter implements the cross-type search contract for POST
// /.search: the supplied filter must be, or must conjunctively contain, exactly
// one "meta.resourceType eq <name>" clause. It returns the remaining filter (nil
// if nothing is left, unwrapped if exactly one conjunct remains) and the named
// resource type.
func extractResourceTypeFilter(f expr.Filter) (residual expr.Filter, resourceType string, ok bool) {
	if f == nil {
		return nil, "", false
	}
	if name, matched := asResourceTypeConjunct(f); matched {
		return nil, name, true
	}

	and, isAnd := f.(*expr.And)
	if !isAnd {
		return nil, "", false
	}

	var rest []expr.Filter
	var found string
	matches := 0
	for _, c := range and.Filters {
		if name, matched := asResourceTypeConjunct(c); matched {
			matches++
			found = name
			continue
		}
		rest = append(rest, c)
	}
	if matches != 1 {
		return nil, "", false
	}
	switch len(rest) {
	case 0:
		return nil, found, true
	case 1:
		return rest[0], found, true
	default:
		return &expr.And{Filters: rest}, found, true
	}
}

func asResourceTypeConjunct(f expr.Filter) (string, bool) {
	cmp, ok := f.(*expr.Compare)
	if !ok || cmp.Op != expr.OpEqual {
		return "", false
	}
	if !strings.EqualFold(cmp.Attr.Name, "meta") || !strings.EqualFold(cmp.Attr.SubAttr, "resourceType") {
		return "", false
	}
	name, ok := cmp.Value.(string)
	return name, ok
}
