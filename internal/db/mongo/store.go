package mongo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kestrel-data/nlmongo/internal/db"
)

// Compile-time check: Store implements db.DocumentStore.
var _ db.DocumentStore = (*Store)(nil)

// Config holds connection parameters for a MongoDB store.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store implements db.DocumentStore via the official MongoDB driver.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewStore connects to MongoDB and selects the configured database.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts = opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, database: client.Database(cfg.Database)}, nil
}

// Ping checks connectivity against the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// ListCollectionNames returns all collection names in the database.
func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, &db.Error{Op: db.OpListCollections, Err: err}
	}
	return names, nil
}

// CollectionExists reports whether a collection with the given name exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, &db.Error{Op: db.OpListCollections, Err: err}
	}
	return len(names) > 0, nil
}

// CountDocuments returns the document count of a collection.
func (s *Store) CountDocuments(ctx context.Context, collection string) (int64, error) {
	n, err := s.database.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// Find runs a filtered read. sort and projection may be nil; limit <= 0 means
// no limit.
func (s *Store) Find(
	ctx context.Context, collection string, filter, sort, projection any, limit int64,
) ([]map[string]any, error) {
	if filter == nil {
		filter = bson.D{}
	}

	opts := options.Find()
	if sort != nil {
		opts = opts.SetSort(sort)
	}
	if projection != nil {
		opts = opts.SetProjection(projection)
	}
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := s.database.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	defer cursor.Close(ctx)

	var results []map[string]any
	if err := cursor.All(ctx, &results); err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	return results, nil
}

// Aggregate runs a pipeline against a collection.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline any) ([]map[string]any, error) {
	cursor, err := s.database.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	defer cursor.Close(ctx)

	var results []map[string]any
	if err := cursor.All(ctx, &results); err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return results, nil
}

// SampleDocuments returns up to limit documents from the head of a collection.
func (s *Store) SampleDocuments(ctx context.Context, collection string, limit int64) ([]map[string]any, error) {
	return s.Find(ctx, collection, nil, nil, nil, limit)
}

// InsertMany writes docs into a collection and returns the inserted count.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := s.database.Collection(collection).InsertMany(ctx, docs)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return len(res.InsertedIDs), nil
}

// DropCollection removes a collection. Dropping a missing collection is not
// an error.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	if err := s.database.Collection(collection).Drop(ctx); err != nil {
		return &db.Error{Op: db.OpDrop, Err: err}
	}
	return nil
}

// SampleFieldValues reads up to limit present, non-null values of one field
// and renders each to its canonical string form. Values without a canonical
// scalar rendering (arrays, nested documents) are skipped.
func (s *Store) SampleFieldValues(
	ctx context.Context, collection, field string, limit int64,
) ([]string, error) {
	filter := bson.M{field: bson.M{"$exists": true, "$ne": nil}}
	projection := bson.M{field: 1, "_id": 0}

	docs, err := s.Find(ctx, collection, filter, nil, projection, limit)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(docs))
	for _, doc := range docs {
		raw, ok := lookupPath(doc, field)
		if !ok {
			continue
		}
		if v, ok := renderFieldValue(raw); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// lookupPath walks a dotted field path through nested documents.
func lookupPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// renderFieldValue produces a canonical string for a sampled value so that
// numerically equal values compare equal regardless of their stored width:
// int32(5), int64(5) and float64(5) all render as "5".
func renderFieldValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) &&
			t >= math.MinInt64 && t <= math.MaxInt64 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case primitive.Decimal128:
		return t.String(), true
	case primitive.ObjectID:
		return t.Hex(), true
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339), true
	case time.Time:
		return t.UTC().Format(time.RFC3339), true
	default:
		return "", false
	}
}
