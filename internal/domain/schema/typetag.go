package schema

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TypeTag is the inferred type of a sampled field.
type TypeTag string

const (
	// TagNumber marks integer values.
	TagNumber TypeTag = "number"
	// TagDouble marks floating-point values.
	TagDouble TypeTag = "double"
	// TagBoolean marks booleans.
	TagBoolean TypeTag = "boolean"
	// TagArray marks arrays.
	TagArray TypeTag = "array"
	// TagObject marks embedded documents.
	TagObject TypeTag = "object"
	// TagNull marks observed nulls.
	TagNull TypeTag = "null"
	// TagString marks strings and string-like values (ObjectIDs, timestamps).
	TagString TypeTag = "string"
	// TagUnknown marks values no other tag covers.
	TagUnknown TypeTag = "unknown"
)

// TagOf infers the type tag for a sampled value as decoded by the bson
// driver or by JSON/CSV ingestion.
func TagOf(v any) TypeTag {
	switch v.(type) {
	case nil:
		return TagNull
	case bool:
		return TagBoolean
	case int, int32, int64:
		return TagNumber
	case float32, float64:
		return TagDouble
	case string:
		return TagString
	case []any, bson.A:
		return TagArray
	case map[string]any, bson.M, bson.D:
		return TagObject
	case primitive.ObjectID, primitive.DateTime, time.Time:
		// Rendered as strings everywhere the snapshot is consumed.
		return TagString
	default:
		return TagUnknown
	}
}
