// Package mongo is a load.Backend for MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/ToniPaltus/airflow-intro/internal/load"
)

// codeNamespaceExists is returned by create on an existing collection.
const codeNamespaceExists = 48

// PoolConfig sizes the client's connection pool. Zero values keep the
// driver defaults.
type PoolConfig struct {
	MaxConns int
	MinConns int
}

// Store wraps a connected client.
type Store struct {
	client *mongo.Client
}

// Open creates a client for uri. The driver connects lazily; use Ping to
// check reachability.
func Open(uri string, cfg PoolConfig) (*Store, error) {
	opts := options.Client().ApplyURI(uri)
	if cfg.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.MinConns))
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Create(ctx context.Context, dest load.Destination) error {
	err := s.client.Database(dest.Database).CreateCollection(ctx, dest.Collection)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create collection %s: %w", dest, err)
	}
	return nil
}

func (s *Store) Drop(ctx context.Context, dest load.Destination) error {
	if err := s.collection(dest).Drop(ctx); err != nil {
		return fmt.Errorf("drop collection %s: %w", dest, err)
	}
	return nil
}

// InsertMany performs an ordered insert; documents before a failure stay
// written.
func (s *Store) InsertMany(ctx context.Context, dest load.Destination, docs []load.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.collection(dest).InsertMany(ctx, toBSON(docs)); err != nil {
		return fmt.Errorf("insert into %s: %w", dest, err)
	}
	return nil
}

// Rename runs renameCollection with dropTarget, which replaces the target
// in one step.
func (s *Store) Rename(ctx context.Context, from, to load.Destination) error {
	if from.Database != to.Database {
		return fmt.Errorf("rename %s to %s: databases differ", from, to)
	}
	cmd := bson.D{
		{Key: "renameCollection", Value: from.String()},
		{Key: "to", Value: to.String()},
		{Key: "dropTarget", Value: true},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, dest load.Destination) (int64, error) {
	n, err := s.collection(dest).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", dest, err)
	}
	return n, nil
}

// Documents returns every document of a collection without its _id.
func (s *Store) Documents(ctx context.Context, dest load.Destination) ([]bson.M, error) {
	cur, err := s.collection(dest).Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}).SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", dest, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read %s: %w", dest, err)
	}
	return docs, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(dest load.Destination) *mongo.Collection {
	return s.client.Database(dest.Database).Collection(dest.Collection)
}

// toBSON keeps each document's field order.
func toBSON(docs []load.Document) []bson.D {
	out := make([]bson.D, len(docs))
	for i, doc := range docs {
		d := make(bson.D, len(doc))
		for j, f := range doc {
			d[j] = bson.E{Key: f.Name, Value: f.Value}
		}
		out[i] = d
	}
	return out
}

var _ load.Backend = (*Store)(nil)
