package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NormalizeDocument converts a decoded BSON document into plain JSON-friendly
// values: ObjectIDs become hex strings, BSON timestamps become RFC 3339
// strings, and driver container types become plain maps and slices.
func NormalizeDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeValue converts a single decoded BSON value. Unknown types pass
// through unchanged.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return t.String()
	case map[string]any:
		return NormalizeDocument(t)
	case bson.M:
		return NormalizeDocument(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = NormalizeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}
