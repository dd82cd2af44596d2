package dataset

import (
	"context"
	"fmt"
)

// store is the consumer interface for dataset persistence (ISP).
type store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	InsertMany(ctx context.Context, collection string, docs []any) (int, error)
	DropCollection(ctx context.Context, collection string) error
}

// Repo persists uploaded datasets.
type Repo struct {
	store store
}

// New creates a dataset repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Exists reports whether the named collection already holds data.
func (r *Repo) Exists(ctx context.Context, collection string) (bool, error) {
	return r.store.CollectionExists(ctx, collection)
}

// Replace drops any existing collection of the same name and inserts the
// given documents, returning the inserted count.
func (r *Repo) Replace(ctx context.Context, collection string, docs []map[string]any) (int, error) {
	if err := r.store.DropCollection(ctx, collection); err != nil {
		return 0, fmt.Errorf("drop collection %s: %w", collection, err)
	}

	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = doc
	}
	n, err := r.store.InsertMany(ctx, collection, payload)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return n, nil
}

// Drop removes a collection outright.
func (r *Repo) Drop(ctx context.Context, collection string) error {
	if err := r.store.DropCollection(ctx, collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}
