package insights

import (
	"context"

	"github.com/kestrel-data/nlmongo/internal/domain/insight"
)

// Repository defines the aggregation contract for field statistics.
type Repository interface {
	FirstDocumentFields(ctx context.Context, collection string) ([]string, error)
	FieldSample(ctx context.Context, collection, field string) (any, bool, error)
	DistinctAndNullCounts(ctx context.Context, collection, field string) (unique, nulls int64, err error)
	NumericStats(ctx context.Context, collection, field string) (minVal, maxVal any, avg *float64, err error)
	MostCommon(ctx context.Context, collection, field string) ([]insight.ValueCount, error)
}

// CollectionChecker reports whether a collection exists.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
}
