package query

import (
	"context"

	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

// SchemaProvider supplies the current schema and inferred relationships.
type SchemaProvider interface {
	Describe(ctx context.Context) (domschema.Snapshot, []inference.Relationship, error)
}

// Executor runs validated queries against the document store.
type Executor interface {
	Find(ctx context.Context, collection string, filter, sort, projection domquery.Node, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline domquery.Node) ([]map[string]any, error)
}
