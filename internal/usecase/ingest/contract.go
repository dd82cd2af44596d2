package ingest

import "context"

// Repository defines the storage contract for uploaded datasets.
type Repository interface {
	Exists(ctx context.Context, collection string) (bool, error)
	Replace(ctx context.Context, collection string, docs []map[string]any) (int, error)
	Drop(ctx context.Context, collection string) error
}
