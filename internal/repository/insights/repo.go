package insights

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	dbmongo "github.com/kestrel-data/nlmongo/internal/db/mongo"
	"github.com/kestrel-data/nlmongo/internal/domain/insight"
)

// mostCommonLimit bounds the most-common-values ranking per field.
const mostCommonLimit = 5

// store is the consumer interface for insight aggregations (ISP).
type store interface {
	Find(ctx context.Context, collection string, filter, sort, projection any, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline any) ([]map[string]any, error)
}

// Repo runs the statistical aggregations behind field insights.
type Repo struct {
	store store
}

// New creates an insights repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// FirstDocumentFields returns the field names of the first document in a
// collection, minus _id. An empty collection yields an empty slice.
func (r *Repo) FirstDocumentFields(ctx context.Context, collection string) ([]string, error) {
	docs, err := r.store.Find(ctx, collection, nil, nil, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("first document of %s: %w", collection, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(docs[0]))
	for name := range docs[0] {
		if name == "_id" {
			continue
		}
		fields = append(fields, name)
	}
	return fields, nil
}

// FieldSample returns one present, non-null value of a field, used to decide
// the field's reported data type.
func (r *Repo) FieldSample(ctx context.Context, collection, field string) (any, bool, error) {
	filter := bson.M{field: bson.M{"$exists": true, "$ne": nil}}
	docs, err := r.store.Find(ctx, collection, filter, nil, nil, 1)
	if err != nil {
		return nil, false, fmt.Errorf("sample %s.%s: %w", collection, field, err)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	v, ok := docs[0][field]
	return v, ok, nil
}

// DistinctAndNullCounts measures the distinct value count and the null or
// missing count of a field in one aggregation pass.
func (r *Repo) DistinctAndNullCounts(ctx context.Context, collection, field string) (unique, nulls int64, err error) {
	ref := "$" + field
	pipeline := bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "unique_values", Value: bson.D{{Key: "$addToSet", Value: ref}}},
			{Key: "null_count", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$or", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{ref, nil}}},
						bson.D{{Key: "$eq", Value: bson.A{
							bson.D{{Key: "$type", Value: ref}}, "missing",
						}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "unique_count", Value: bson.D{{Key: "$size", Value: "$unique_values"}}},
			{Key: "null_count", Value: 1},
		}}},
	}

	results, err := r.store.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("distinct counts for %s.%s: %w", collection, field, err)
	}
	if len(results) == 0 {
		return 0, 0, nil
	}
	return asInt64(results[0]["unique_count"]), asInt64(results[0]["null_count"]), nil
}

// NumericStats returns min, max and average of a numeric field, restricted to
// documents where the field holds a numeric BSON type.
func (r *Repo) NumericStats(ctx context.Context, collection, field string) (minVal, maxVal any, avg *float64, err error) {
	ref := "$" + field
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: field, Value: bson.D{
				{Key: "$exists", Value: true},
				{Key: "$ne", Value: nil},
				{Key: "$type", Value: bson.A{"int", "double", "long", "decimal"}},
			}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "min_val", Value: bson.D{{Key: "$min", Value: ref}}},
			{Key: "max_val", Value: bson.D{{Key: "$max", Value: ref}}},
			{Key: "avg_val", Value: bson.D{{Key: "$avg", Value: ref}}},
		}}},
	}

	results, err := r.store.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("numeric stats for %s.%s: %w", collection, field, err)
	}
	if len(results) == 0 {
		return nil, nil, nil, nil
	}
	row := results[0]
	if v, ok := asFloat64(row["avg_val"]); ok {
		avg = &v
	}
	return dbmongo.NormalizeValue(row["min_val"]), dbmongo.NormalizeValue(row["max_val"]), avg, nil
}

// MostCommon ranks the top values of a field by frequency.
func (r *Repo) MostCommon(ctx context.Context, collection, field string) ([]insight.ValueCount, error) {
	ref := "$" + field
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: field, Value: bson.D{
				{Key: "$exists", Value: true},
				{Key: "$ne", Value: nil},
			}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: ref},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		bson.D{{Key: "$limit", Value: mostCommonLimit}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "value", Value: "$_id"},
			{Key: "count", Value: 1},
			{Key: "_id", Value: 0},
		}}},
	}

	results, err := r.store.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return nil, fmt.Errorf("most common for %s.%s: %w", collection, field, err)
	}

	ranked := make([]insight.ValueCount, 0, len(results))
	for _, row := range results {
		ranked = append(ranked, insight.ValueCount{
			Value: dbmongo.NormalizeValue(row["value"]),
			Count: asInt64(row["count"]),
		})
	}
	return ranked, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
