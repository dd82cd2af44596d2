package inference

import "context"

// ValueSource is the storage capability the overlap sampler consumes: draw up
// to limit documents where the field exists and is non-null, projected to
// that field, with each observed value rendered to a canonical string.
type ValueSource interface {
	SampleFieldValues(ctx context.Context, collection, field string, limit int) ([]string, error)
}

// OverlapSampler computes the fraction of sampled distinct source-field
// values also observed among sampled target-field values.
type OverlapSampler interface {
	Overlap(ctx context.Context, sourceCollection, sourceField, targetCollection, targetField string) float64
}
