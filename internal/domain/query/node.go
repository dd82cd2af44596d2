// Package query models untrusted query documents as an explicit tagged-variant
// tree. Every filter, projection, sort spec, and aggregation pipeline coming
// from a translator or an API caller is parsed into a Node before anything
// else looks at it, so downstream code can switch exhaustively over kinds
// instead of type-asserting through dynamic maps.
package query

import (
	"encoding/json"
	"strconv"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	// Invalid is the zero Kind; it marks an absent or unparsed node.
	Invalid Kind = iota
	// Null is a JSON null.
	Null
	// Bool is a JSON boolean.
	Bool
	// Number is a JSON number, kept as its literal text.
	Number
	// String is a JSON string.
	String
	// Array is an ordered sequence of nodes.
	Array
	// Object is an ordered sequence of key/value members with unique keys.
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// Member is one key/value entry of an object node.
type Member struct {
	Key   string
	Value Node
}

// Node is one value inside an untrusted query document. The zero value is
// Invalid. Nodes are immutable once built; sharing them across goroutines
// is safe.
type Node struct {
	kind Kind
	b    bool
	num  string
	str  string
	arr  []Node
	obj  []Member
}

// NullNode returns a null node.
func NullNode() Node { return Node{kind: Null} }

// BoolNode returns a boolean node.
func BoolNode(v bool) Node { return Node{kind: Bool, b: v} }

// NumberNode returns a number node holding the given literal (e.g. "42", "1.5").
func NumberNode(literal string) Node { return Node{kind: Number, num: literal} }

// IntNode returns a number node for an integer value.
func IntNode(v int64) Node { return Node{kind: Number, num: strconv.FormatInt(v, 10)} }

// FloatNode returns a number node for a floating-point value.
func FloatNode(v float64) Node {
	return Node{kind: Number, num: strconv.FormatFloat(v, 'g', -1, 64)}
}

// StringNode returns a string node.
func StringNode(v string) Node { return Node{kind: String, str: v} }

// ArrayNode returns an array node over the given elements.
func ArrayNode(elems ...Node) Node { return Node{kind: Array, arr: elems} }

// ObjectNode returns an object node over the given members, preserving order.
func ObjectNode(members ...Member) Node { return Node{kind: Object, obj: members} }

// M builds an object member.
func M(key string, value Node) Member { return Member{Key: key, Value: value} }

// Kind reports the variant of the node.
func (n Node) Kind() Kind { return n.kind }

// IsZero reports whether the node is the absent/invalid zero value.
func (n Node) IsZero() bool { return n.kind == Invalid }

// Bool returns the boolean value; valid only for Bool nodes.
func (n Node) Bool() bool { return n.b }

// Str returns the string value; valid only for String nodes.
func (n Node) Str() string { return n.str }

// NumberLiteral returns the number literal text; valid only for Number nodes.
func (n Node) NumberLiteral() string { return n.num }

// Int64 returns the integer value of a Number node. ok is false for
// non-numbers and for numbers that are not exact integers.
func (n Node) Int64() (v int64, ok bool) {
	if n.kind != Number {
		return 0, false
	}
	v, err := strconv.ParseInt(n.num, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float64 returns the floating-point value of a Number node.
func (n Node) Float64() (v float64, ok bool) {
	if n.kind != Number {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Elems returns the elements of an Array node.
func (n Node) Elems() []Node { return n.arr }

// Members returns the members of an Object node in document order.
func (n Node) Members() []Member { return n.obj }

// Len returns the element count of an Array node or member count of an
// Object node; 0 for everything else.
func (n Node) Len() int {
	switch n.kind {
	case Array:
		return len(n.arr)
	case Object:
		return len(n.obj)
	default:
		return 0
	}
}

// Lookup returns the value of the first member with the given key.
func (n Node) Lookup(key string) (Node, bool) {
	for _, m := range n.obj {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Node{}, false
}

// Interface converts the node to plain Go values: nil, bool, int64 or
// float64, string, []any, or map[string]any (losing member order).
func (n Node) Interface() any {
	switch n.kind {
	case Null:
		return nil
	case Bool:
		return n.b
	case Number:
		if v, ok := n.Int64(); ok {
			return v
		}
		v, _ := n.Float64()
		return v
	case String:
		return n.str
	case Array:
		out := make([]any, len(n.arr))
		for i, e := range n.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(n.obj))
		for _, m := range n.obj {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

var _ json.Marshaler = Node{}
var _ json.Unmarshaler = (*Node)(nil)
