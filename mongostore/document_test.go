package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestToMongoDoc_AliasesDollarRef(t *testing.T) {
	in := map[string]interface{}{
		"members": []interface{}{
			map[string]interface{}{"value": "u1", "$ref": "https://example.com/Users/u1"},
		},
	}
	out := toMongoDoc(in).(map[string]interface{})
	members := out["members"].([]interface{})
	member := members[0].(map[string]interface{})
	assert.Equal(t, "https://example.com/Users/u1", member["x_ref"])
	_, hasDollar := member["$ref"]
	assert.False(t, hasDollar)
}

func TestFromMongoDoc_RoundTripsAlias(t *testing.T) {
	doc := bson.M{
		"members": bson.A{
			bson.D{{Key: "value", Value: "u1"}, {Key: "x_ref", Value: "https://example.com/Users/u1"}},
		},
	}
	out := fromMongoDoc(doc).(map[string]interface{})
	members := out["members"].([]interface{})
	member := members[0].(map[string]interface{})
	assert.Equal(t, "https://example.com/Users/u1", member["$ref"])
}
