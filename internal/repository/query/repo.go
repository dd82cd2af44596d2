package query

import (
	"context"
	"fmt"

	dbmongo "github.com/kestrel-data/nlmongo/internal/db/mongo"
	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
)

// store is the consumer interface for query execution (ISP).
type store interface {
	Find(ctx context.Context, collection string, filter, sort, projection any, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline any) ([]map[string]any, error)
}

// Repo executes validated queries against the document store and normalizes
// results into JSON-friendly documents.
type Repo struct {
	store store
}

// New creates a query repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Find runs a filtered read. Sort and projection nodes may be zero.
func (r *Repo) Find(
	ctx context.Context, collection string,
	filter, sort, projection domquery.Node, limit int64,
) ([]map[string]any, error) {
	var sortDoc, projDoc any
	if d := ToDocument(sort); d != nil {
		sortDoc = d
	}
	if d := ToDocument(projection); d != nil {
		projDoc = d
	}

	docs, err := r.store.Find(ctx, collection, ToDocument(filter), sortDoc, projDoc, limit)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return normalize(docs), nil
}

// Aggregate runs a pipeline.
func (r *Repo) Aggregate(ctx context.Context, collection string, pipeline domquery.Node) ([]map[string]any, error) {
	docs, err := r.store.Aggregate(ctx, collection, ToPipeline(pipeline))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}
	return normalize(docs), nil
}

func normalize(docs []map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = dbmongo.NormalizeDocument(doc)
	}
	return out
}
