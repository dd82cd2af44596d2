package db

import (
	"context"
	"time"
)

// DocumentStore is the facade over the primary document database. Repositories
// consume narrow subsets of it; the full interface exists for wiring in main.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type DocumentStore interface {
	Pinger
	CollectionLister
	DocumentReader
	DocumentWriter
	ValueSampler
	Close(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// CacheStore is the facade over the cache database.
type CacheStore interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionLister enumerates and inspects collections.
type CollectionLister interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
}

// DocumentReader runs read queries against a collection. Filters, pipelines,
// sort and projection documents are driver-native values (bson.D / bson.A).
type DocumentReader interface {
	Find(ctx context.Context, collection string, filter, sort, projection any, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline any) ([]map[string]any, error)
	SampleDocuments(ctx context.Context, collection string, limit int64) ([]map[string]any, error)
}

// DocumentWriter mutates collections.
type DocumentWriter interface {
	InsertMany(ctx context.Context, collection string, docs []any) (int, error)
	DropCollection(ctx context.Context, collection string) error
}

// ValueSampler draws distinct-ish field values for overlap measurement.
type ValueSampler interface {
	SampleFieldValues(ctx context.Context, collection, field string, limit int64) ([]string, error)
}

// KVStore provides simple key-value operations with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
