package logstats

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Defaults for the nginx log collection.
const (
	DefaultMongoURI   = "mongodb://127.0.0.1:27017"
	DefaultDatabase   = "logs"
	DefaultCollection = "nginx"
)

// ErrMissingCollection is returned by Connect when the database or collection
// name is empty.
var ErrMissingCollection = errors.New("logstats: database and collection are required")

// MongoOptions locates the log collection.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoOptions returns the local logs.nginx collection.
func DefaultMongoOptions() MongoOptions {
	return MongoOptions{
		URI:        DefaultMongoURI,
		Database:   DefaultDatabase,
		Collection: DefaultCollection,
	}
}

// MongoCollection is a Collection backed by a mongo-driver collection.
type MongoCollection struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps coll.
func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

// CountDocuments runs countDocuments with an equality filter.
func (m *MongoCollection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	return m.coll.CountDocuments(ctx, filterDoc(filter))
}

// TopIPs runs the ip aggregation pipeline.
func (m *MongoCollection) TopIPs(ctx context.Context, limit int) ([]IPCount, error) {
	cur, err := m.coll.Aggregate(ctx, TopIPsPipeline(limit))
	if err != nil {
		return nil, err
	}
	out := []IPCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopIPsPipeline groups by ip, sorts by count descending and keeps limit rows.
func TopIPsPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$ip"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

// filterDoc orders fields by name so the same filter always encodes the same.
func filterDoc(f Filter) bson.D {
	doc := bson.D{}
	for _, k := range f.Keys() {
		doc = append(doc, bson.E{Key: k, Value: f[k]})
	}
	return doc
}

// MongoSource owns a client and the log collection it reads from.
type MongoSource struct {
	*MongoCollection
	client *mongo.Client
}

// Connect opens a client for opts. The driver connects lazily; use Ping to
// check reachability.
func Connect(ctx context.Context, opts MongoOptions) (*MongoSource, error) {
	if opts.Database == "" || opts.Collection == "" {
		return nil, ErrMissingCollection
	}
	uri := opts.URI
	if uri == "" {
		uri = DefaultMongoURI
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("logstats: connect: %w", err)
	}
	coll := client.Database(opts.Database).Collection(opts.Collection)
	return &MongoSource{MongoCollection: NewMongoCollection(coll), client: client}, nil
}

// Ping checks that the primary is reachable.
func (s *MongoSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Collection = (*MongoCollection)(nil)
