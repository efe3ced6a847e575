package mongostore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/spec"
)

// transform compiles a SCIM filter AST down to a MongoDB query document. It
// is the bson counterpart to memstore's in-process evalFilter, mirroring the
// teacher's decision to keep the in-memory and MongoDB-backed stores'
// filter evaluators as two independent implementations rather than sharing
// an abstract one.
func transform(schemas []*spec.Schema, f expr.Filter) (bson.D, error) {
	if f == nil {
		return bson.D{}, nil
	}
	return transformFilter(schemas, f)
}

func transformFilter(schemas []*spec.Schema, f expr.Filter) (bson.D, error) {
	switch x := f.(type) {
	case *expr.And:
		return transformJunction(schemas, "$and", x.Filters)
	case *expr.Or:
		return transformJunction(schemas, "$or", x.Filters)
	case *expr.Not:
		inner, err := transformFilter(schemas, x.Filter)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	case *expr.Present:
		attr := lookupAttr(schemas, x.Attr)
		if attr == nil {
			return nil, spec.InvalidFilter("unknown attribute in filter: " + x.Attr.Name)
		}
		return rearrangeForPr(mongoPath(x.Attr), presentDoc(attr)), nil
	case *expr.Compare:
		attr := lookupAttr(schemas, x.Attr)
		if attr == nil {
			return nil, spec.InvalidFilter("unknown attribute in filter: " + x.Attr.Name)
		}
		val, err := compareDoc(attr, x.Op, x.Value)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: mongoPath(x.Attr), Value: val}}, nil
	case *expr.Has:
		return transformHas(schemas, x)
	default:
		return nil, spec.InvalidFilter("unsupported filter node")
	}
}

func transformJunction(schemas []*spec.Schema, key string, filters []expr.Filter) (bson.D, error) {
	arr := make(bson.A, 0, len(filters))
	for _, sub := range filters {
		doc, err := transformFilter(schemas, sub)
		if err != nil {
			return nil, err
		}
		arr = append(arr, doc)
	}
	return bson.D{{Key: key, Value: arr}}, nil
}

// transformHas translates "attrPath[inner]" to a $elemMatch over the array
// field, applying inner directly since the parser already rewrote its
// AttrPaths to have SubAttr set relative to attrPath.
func transformHas(schemas []*spec.Schema, h *expr.Has) (bson.D, error) {
	inner, err := transformElemFilter(schemas, h.Inner)
	if err != nil {
		return nil, err
	}
	return bson.D{
		{Key: mongoPath(h.Attr), Value: bson.D{{Key: "$elemMatch", Value: inner}}},
	}, nil
}

// transformElemFilter is transformFilter restricted to the element-relative
// shape produced inside a Has: every AttrPath's SubAttr (not Name) names the
// field within the array element.
func transformElemFilter(schemas []*spec.Schema, f expr.Filter) (bson.D, error) {
	switch x := f.(type) {
	case *expr.And:
		return transformJunctionElem(schemas, "$and", x.Filters)
	case *expr.Or:
		return transformJunctionElem(schemas, "$or", x.Filters)
	case *expr.Not:
		inner, err := transformElemFilter(schemas, x.Filter)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	case *expr.Present:
		attr := lookupElemAttr(schemas, x.Attr)
		if attr == nil {
			return nil, spec.InvalidFilter("unknown attribute in filter: " + x.Attr.SubAttr)
		}
		return rearrangeForPr(x.Attr.SubAttr, presentDoc(attr)), nil
	case *expr.Compare:
		attr := lookupElemAttr(schemas, x.Attr)
		if attr == nil {
			return nil, spec.InvalidFilter("unknown attribute in filter: " + x.Attr.SubAttr)
		}
		val, err := compareDoc(attr, x.Op, x.Value)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: x.Attr.SubAttr, Value: val}}, nil
	default:
		return nil, spec.InvalidFilter("unsupported filter inside value path")
	}
}

func transformJunctionElem(schemas []*spec.Schema, key string, filters []expr.Filter) (bson.D, error) {
	arr := make(bson.A, 0, len(filters))
	for _, sub := range filters {
		doc, err := transformElemFilter(schemas, sub)
		if err != nil {
			return nil, err
		}
		arr = append(arr, doc)
	}
	return bson.D{{Key: key, Value: arr}}, nil
}

// lookupAttr resolves a top-level AttrPath against the resource type's core
// schema (schemas[0]) or, if URN is set, the matching extension schema.
func lookupAttr(schemas []*spec.Schema, attr expr.AttrPath) *spec.Attribute {
	schema := schemaFor(schemas, attr.URN)
	top := schema.AttributeForName(attr.Name)
	if attr.SubAttr == "" {
		return top
	}
	return top.SubAttributeForName(attr.SubAttr)
}

// lookupElemAttr resolves an element-relative AttrPath (as rewritten inside a
// Has) against the multi-valued attribute's own sub-attributes.
func lookupElemAttr(schemas []*spec.Schema, attr expr.AttrPath) *spec.Attribute {
	schema := schemaFor(schemas, attr.URN)
	top := schema.AttributeForName(attr.Name)
	return top.SubAttributeForName(attr.SubAttr)
}

func schemaFor(schemas []*spec.Schema, urn string) *spec.Schema {
	if urn == "" {
		if len(schemas) == 0 {
			return nil
		}
		return schemas[0]
	}
	for _, s := range schemas {
		if strings.EqualFold(s.ID, urn) {
			return s
		}
	}
	return nil
}

func mongoPath(attr expr.AttrPath) string {
	parts := make([]string, 0, 3)
	if attr.URN != "" {
		parts = append(parts, attr.URN)
	}
	parts = append(parts, mongoKey(attr.Name))
	if attr.SubAttr != "" {
		parts = append(parts, mongoKey(attr.SubAttr))
	}
	return strings.Join(parts, ".")
}

// rearrangeForPr turns "{field: {$and: [c1, c2, ...]}}" into
// "{$and: [{field: c1}, {field: c2}, ...]}", matching the teacher's
// rearrangeForPr: MongoDB cannot apply two sibling operators ($exists, $ne)
// to the same field key inside a single document, so each must get its own
// top-level clause joined by $and.
func rearrangeForPr(field string, doc bson.D) bson.D {
	if len(doc) != 1 || doc[0].Key != "$and" {
		return bson.D{{Key: field, Value: doc}}
	}
	criteria, ok := doc[0].Value.(bson.A)
	if !ok {
		return bson.D{{Key: field, Value: doc}}
	}
	out := make(bson.A, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, bson.D{{Key: field, Value: c}})
	}
	return bson.D{{Key: "$and", Value: out}}
}

func presentDoc(attr *spec.Attribute) bson.D {
	criteria := bson.A{
		bson.D{{Key: "$exists", Value: true}},
		bson.D{{Key: "$ne", Value: primitive.Null{}}},
	}
	if attr.MultiValued {
		criteria = append(criteria, bson.D{{Key: "$not", Value: bson.A{bson.D{{Key: "$size", Value: 0}}}}})
	} else if attr.Type == spec.TypeString || attr.Type == spec.TypeReference || attr.Type == spec.TypeBinary {
		criteria = append(criteria, bson.D{{Key: "$ne", Value: ""}})
	}
	return bson.D{{Key: "$and", Value: criteria}}
}

func compareDoc(attr *spec.Attribute, op expr.CompareOp, value expr.CompValue) (interface{}, error) {
	switch op {
	case expr.OpEqual:
		return eqDoc(attr, value), nil
	case expr.OpNotEqual:
		return bson.D{{Key: "$ne", Value: toComparable(attr, value)}}, nil
	case expr.OpStartsWith:
		return regexDoc(attr, "^"+regexEscape(stringValue(value)), ""), nil
	case expr.OpEndsWith:
		return regexDoc(attr, regexEscape(stringValue(value))+"$", ""), nil
	case expr.OpContains:
		return regexDoc(attr, regexEscape(stringValue(value)), ""), nil
	case expr.OpGreaterThan:
		return rangeDoc("$gt", attr, value)
	case expr.OpGreaterThanOrEqual:
		return rangeDoc("$gte", attr, value)
	case expr.OpLessThan:
		return rangeDoc("$lt", attr, value)
	case expr.OpLessThanOrEqual:
		return rangeDoc("$lte", attr, value)
	default:
		return nil, spec.InvalidFilter(fmt.Sprintf("unsupported comparison operator %q", op))
	}
}

func eqDoc(attr *spec.Attribute, value expr.CompValue) interface{} {
	if attr.Type != spec.TypeString || attr.CaseExact {
		return bson.D{{Key: "$eq", Value: toComparable(attr, value)}}
	}
	return regexDoc(attr, "^"+regexEscape(stringValue(value))+"$", "i")
}

func regexDoc(attr *spec.Attribute, pattern, forceOptions string) primitive.Regex {
	options := forceOptions
	if options == "" && !attr.CaseExact {
		options = "i"
	}
	return primitive.Regex{Pattern: pattern, Options: options}
}

func rangeDoc(op string, attr *spec.Attribute, value expr.CompValue) (bson.D, error) {
	v, err := toTypedValue(attr, value)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: op, Value: v}}, nil
}

func toComparable(attr *spec.Attribute, value expr.CompValue) interface{} {
	v, err := toTypedValue(attr, value)
	if err != nil {
		return stringValue(value)
	}
	return v
}

// toTypedValue converts a filter's raw CompValue (nil/bool/json.Number/string)
// to the Go type that matches what Create/Replace would have stored for this
// attribute's type, so comparisons line up with the stored BSON type.
func toTypedValue(attr *spec.Attribute, value expr.CompValue) (interface{}, error) {
	switch attr.Type {
	case spec.TypeDateTime:
		t, err := time.Parse(spec.ISO8601, stringValue(value))
		if err != nil {
			return nil, spec.InvalidFilter("value incompatible with dateTime attribute " + attr.Name)
		}
		return t.Format(spec.ISO8601), nil
	case spec.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, spec.InvalidFilter("value incompatible with boolean attribute " + attr.Name)
		}
		return b, nil
	case spec.TypeInteger:
		n, ok := value.(json.Number)
		if !ok {
			return nil, spec.InvalidFilter("value incompatible with integer attribute " + attr.Name)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, spec.InvalidFilter("value incompatible with integer attribute " + attr.Name)
		}
		return i, nil
	case spec.TypeDecimal:
		n, ok := value.(json.Number)
		if !ok {
			return nil, spec.InvalidFilter("value incompatible with decimal attribute " + attr.Name)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, spec.InvalidFilter("value incompatible with decimal attribute " + attr.Name)
		}
		return f, nil
	default:
		return stringValue(value), nil
	}
}

func stringValue(value expr.CompValue) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func regexEscape(s string) string {
	special := `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
