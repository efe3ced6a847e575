// Package mongostore is a manager.ResourceManager backed by MongoDB, one
// collection per resource type. It mirrors the teacher's mongo/v2 package but
// persists the plain map[string]interface{} resource model directly through
// the driver's own bson.Marshal support rather than a hand-rolled property
// visitor, since there is no prop.Resource tree here to traverse.
//
// Replace and Delete use the document's id as the sole match criterion;
// unlike the teacher, there is no meta.version compare-and-swap, because manager.ResourceManager's contract
// does not thread an expected version into Replace/Delete.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/spec"
)

// Connect dials MongoDB at uri and pings the resulting client, retrying both
// with exponential backoff until they succeed, ctx is done, or the backoff's
// maximum elapsed time runs out.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	var client *mongo.Client
	err := backoff.Retry(func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(backoff.NewExponentialBackOff(), ctx))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Store is a manager.ResourceManager persisting one resource type's documents
// in a single MongoDB collection. Safe for concurrent use; all state lives in
// MongoDB.
type Store struct {
	coll     *mongo.Collection
	rt       *spec.ResourceType
	schemas  []*spec.Schema
	pageSize int
}

// New returns a Store for rt backed by coll. schemas is rt's core schema
// followed by its extensions, as returned by registry.SchemasForResourceType.
// An index on "id" is attempted opportunistically; failure to create it is
// not fatal, matching the teacher's ensureIndex treating index errors as
// non-errors.
func New(ctx context.Context, coll *mongo.Collection, rt *spec.ResourceType, schemas []*spec.Schema, defaultPageSize int) *Store {
	s := &Store{coll: coll, rt: rt, schemas: schemas, pageSize: defaultPageSize}
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return s
}

func (s *Store) ResourceType() *spec.ResourceType { return s.rt }
func (s *Store) Schemas() []*spec.Schema          { return s.schemas }
func (s *Store) DefaultPageSize() int             { return s.pageSize }

// Ping reports whether the backing MongoDB deployment is reachable; the
// dispatcher's /health handler calls this through the manager.Pinger
// interface.
func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Store) Create(ctx context.Context, resource map[string]interface{}) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(spec.ISO8601)
	resource["id"] = id
	resource["meta"] = map[string]interface{}{
		"resourceType": s.rt.Name,
		"created":      now,
		"lastModified": now,
		"location":     s.rt.Endpoint + "/" + id,
		"version":      etag(1),
	}
	if _, err := s.coll.InsertOne(ctx, toMongoDoc(resource)); err != nil {
		return "", spec.Internal(err.Error())
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, args manager.GetArgs) (map[string]interface{}, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.D{{Key: "id", Value: args.ID}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, spec.NotFound()
	}
	if err != nil {
		return nil, spec.Internal(err.Error())
	}
	return fromMongoDoc(doc).(map[string]interface{}), nil
}

func (s *Store) Replace(ctx context.Context, id string, resource map[string]interface{}) (map[string]interface{}, error) {
	var existing bson.M
	if err := s.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&existing); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, spec.NotFound()
		}
		return nil, spec.Internal(err.Error())
	}

	resource["id"] = id
	resource["meta"] = bumpMeta(existing["meta"])

	res := s.coll.FindOneAndReplace(ctx, bson.D{{Key: "id", Value: id}}, toMongoDoc(resource))
	if err := res.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, spec.NotFound()
		}
		return nil, spec.Internal(err.Error())
	}
	return resource, nil
}

func (s *Store) Update(ctx context.Context, args manager.UpdateArgs) (map[string]interface{}, error) {
	var doc bson.M
	if err := s.coll.FindOne(ctx, bson.D{{Key: "id", Value: args.ID}}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, spec.NotFound()
		}
		return nil, spec.Internal(err.Error())
	}

	resource := fromMongoDoc(doc).(map[string]interface{})
	for _, item := range args.Items {
		if err := applyUpdate(resource, item); err != nil {
			return nil, err
		}
	}
	resource["meta"] = bumpMeta(resource["meta"])

	if _, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "id", Value: args.ID}}, toMongoDoc(resource)); err != nil {
		return nil, spec.Internal(err.Error())
	}
	return resource, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return spec.Internal(err.Error())
	}
	if res.DeletedCount == 0 {
		return spec.NotFound()
	}
	return nil
}

func (s *Store) List(ctx context.Context, args manager.ListArgs) (manager.ListResult, error) {
	filterDoc, err := transform(s.schemas, args.Filter)
	if err != nil {
		return manager.ListResult{}, err
	}

	total, err := s.coll.CountDocuments(ctx, filterDoc)
	if err != nil {
		return manager.ListResult{}, spec.Internal(err.Error())
	}

	opt := options.Find().SetSkip(int64(args.StartIndex)).SetLimit(int64(args.Count))
	if args.SortBy != nil {
		dir := 1
		if args.SortOrder == manager.Descending {
			dir = -1
		}
		opt.SetSort(bson.D{{Key: mongoKey(args.SortBy.Name), Value: dir}})
	}

	cursor, err := s.coll.Find(ctx, filterDoc, opt)
	if err != nil {
		return manager.ListResult{}, spec.Internal(err.Error())
	}
	defer func() { _ = cursor.Close(ctx) }()

	resources := make([]map[string]interface{}, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return manager.ListResult{}, spec.Internal(err.Error())
		}
		resources = append(resources, fromMongoDoc(doc).(map[string]interface{}))
	}
	if err := cursor.Err(); err != nil {
		return manager.ListResult{}, spec.Internal(err.Error())
	}

	return manager.ListResult{Resources: resources, TotalCount: int(total)}, nil
}

func etag(n int) string {
	return fmt.Sprintf(`W/"%d"`, n)
}

func bumpMeta(existing interface{}) map[string]interface{} {
	conv, _ := fromMongoDoc(existing).(map[string]interface{})
	out := make(map[string]interface{}, len(conv)+1)
	for k, v := range conv {
		out[k] = v
	}
	out["lastModified"] = time.Now().UTC().Format(spec.ISO8601)
	n := 1
	if v, ok := out["version"].(string); ok {
		_, _ = fmt.Sscanf(v, `W/"%d"`, &n)
		n++
	}
	out["version"] = etag(n)
	return out
}
