package query

import (
	"go.mongodb.org/mongo-driver/bson"

	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
)

// ToBSON converts a validated query node into driver-native values. Objects
// become bson.D so key order survives into the wire command; whole numbers
// become int64 and fractional ones float64.
func ToBSON(n domquery.Node) any {
	switch n.Kind() {
	case domquery.Null, domquery.Invalid:
		return nil
	case domquery.Bool:
		return n.Bool()
	case domquery.Number:
		if v, ok := n.Int64(); ok {
			return v
		}
		f, _ := n.Float64()
		return f
	case domquery.String:
		return n.Str()
	case domquery.Array:
		elems := n.Elems()
		out := make(bson.A, len(elems))
		for i, e := range elems {
			out[i] = ToBSON(e)
		}
		return out
	case domquery.Object:
		members := n.Members()
		out := make(bson.D, len(members))
		for i, m := range members {
			out[i] = bson.E{Key: m.Key, Value: ToBSON(m.Value)}
		}
		return out
	default:
		return nil
	}
}

// ToDocument converts an object node to bson.D. A zero node yields nil so
// callers can pass it straight through as an absent option.
func ToDocument(n domquery.Node) bson.D {
	if n.IsZero() {
		return nil
	}
	d, _ := ToBSON(n).(bson.D)
	return d
}

// ToPipeline converts an array node of stages to bson.A.
func ToPipeline(n domquery.Node) bson.A {
	a, _ := ToBSON(n).(bson.A)
	return a
}
