package query

import (
	"testing"
)

func TestParse_PreservesMemberOrder(t *testing.T) {
	n, err := Parse([]byte(`{"zeta":1,"alpha":{"$gt":5},"mid":[1,2,3]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Kind() != Object {
		t.Fatalf("expected object, got %v", n.Kind())
	}
	keys := []string{}
	for _, m := range n.Members() {
		keys = append(keys, m.Key)
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("member %d: expected %q, got %q", i, k, keys[i])
		}
	}
}

func TestParse_NumberFidelity(t *testing.T) {
	n, err := Parse([]byte(`{"int":42,"neg":-1,"float":1.5,"big":9007199254740993}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	v, _ := n.Lookup("int")
	if i, ok := v.Int64(); !ok || i != 42 {
		t.Errorf("int: got %d, %v", i, ok)
	}
	v, _ = n.Lookup("neg")
	if i, ok := v.Int64(); !ok || i != -1 {
		t.Errorf("neg: got %d, %v", i, ok)
	}
	v, _ = n.Lookup("float")
	if _, ok := v.Int64(); ok {
		t.Error("1.5 should not be an exact integer")
	}
	if f, ok := v.Float64(); !ok || f != 1.5 {
		t.Errorf("float: got %v, %v", f, ok)
	}
	// Literal above float64 precision must survive untouched.
	v, _ = n.Lookup("big")
	if v.NumberLiteral() != "9007199254740993" {
		t.Errorf("big literal mangled: %q", v.NumberLiteral())
	}
}

func TestParse_RejectsDuplicateKeys(t *testing.T) {
	if _, err := Parse([]byte(`{"a":1,"a":2}`)); err == nil {
		t.Fatal("expected error for duplicate keys")
	}
}

func TestParse_RejectsTrailingGarbage(t *testing.T) {
	if _, err := Parse([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	raw := `{"price":{"$gt":50},"tags":{"$in":["a","b"]},"active":true,"note":null}`
	n, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := n.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != raw {
		t.Errorf("round trip mismatch:\n in: %s\nout: %s", raw, out)
	}
}

func TestInterface(t *testing.T) {
	n := ObjectNode(
		M("count", IntNode(3)),
		M("ratio", FloatNode(0.5)),
		M("names", ArrayNode(StringNode("a"), NullNode())),
	)
	got, ok := n.Interface().(map[string]any)
	if !ok {
		t.Fatal("expected map")
	}
	if got["count"] != int64(3) {
		t.Errorf("count: %v", got["count"])
	}
	if got["ratio"] != 0.5 {
		t.Errorf("ratio: %v", got["ratio"])
	}
	names, ok := got["names"].([]any)
	if !ok || len(names) != 2 || names[0] != "a" || names[1] != nil {
		t.Errorf("names: %v", got["names"])
	}
}

func TestZeroNode(t *testing.T) {
	var n Node
	if !n.IsZero() {
		t.Error("zero node should be zero")
	}
	if n.Kind() != Invalid {
		t.Errorf("zero node kind: %v", n.Kind())
	}
	if NullNode().IsZero() {
		t.Error("explicit null is not the zero node")
	}
}
