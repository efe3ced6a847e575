package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
)

// mongoKey aliases the one SCIM attribute name illegal as a MongoDB field
// name: "$ref" (used by group member and similar references). This is a
// hardcoded special case of the teacher's general externally-registered
// metadata-alias scheme (mongo/v2/metadata.go); a single well-known
// attribute name does not need a full alias registry.
func mongoKey(name string) string {
	if name == "$ref" {
		return "x_ref"
	}
	return name
}

func scimKey(name string) string {
	if name == "x_ref" {
		return "$ref"
	}
	return name
}

// toMongoDoc recursively aliases map keys so the result is safe to pass to
// the MongoDB driver.
func toMongoDoc(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[mongoKey(k)] = toMongoDoc(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = toMongoDoc(val)
		}
		return out
	default:
		return v
	}
}

// fromMongoDoc recursively unaliases map keys and normalizes the driver's own
// bson.M/bson.A (or primitive.M/primitive.A) container types back to plain
// map[string]interface{}/[]interface{}, so the rest of the module never has
// to know a document came from MongoDB.
func fromMongoDoc(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[scimKey(k)] = fromMongoDoc(val)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(x))
		for _, e := range x {
			out[scimKey(e.Key)] = fromMongoDoc(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = fromMongoDoc(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[scimKey(k)] = fromMongoDoc(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = fromMongoDoc(val)
		}
		return out
	default:
		return v
	}
}
