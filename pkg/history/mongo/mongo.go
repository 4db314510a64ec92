// Package mongo stores run history in a MongoDB collection, for servers
// that share history between instances.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/viastitch/pkg/history"
)

// Collection is the name of the runs collection.
const Collection = "runs"

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "viastitch"

// Store is a [history.Store] backed by MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// Connect dials uri and prepares the runs collection in database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s, err := New(ctx, client, database)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing client. Close does not disconnect it.
func New(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	coll := client.Database(database).Collection(Collection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "net", Value: 1}, {Key: "started_at", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return &Store{client: client, coll: coll}, nil
}

// Save upserts r by ID.
func (s *Store) Save(ctx context.Context, r *history.Record) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts history.ListOptions) ([]history.Record, error) {
	filter := bson.M{}
	if opts.Net != "" {
		filter["net"] = opts.Net
	}
	find := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.EffectiveLimit()))

	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	var out []history.Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return out, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Record, error) {
	var r history.Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, history.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

// Close disconnects the client if the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ history.Store = (*Store)(nil)
