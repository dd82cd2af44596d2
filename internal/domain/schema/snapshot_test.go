package schema

import "testing"

func sampleSnapshot() Snapshot {
	users := NewCollection("users", []Field{
		{Name: "id", Type: TagNumber},
		{Name: "name", Type: TagString},
		{Name: "city", Type: TagString},
	}, 10, nil)
	orders := NewCollection("orders", []Field{
		{Name: "user_id", Type: TagNumber},
		{Name: "total", Type: TagDouble},
	}, 25, nil)
	return NewSnapshot([]Collection{users, orders})
}

func TestSnapshot_OrderAndLookup(t *testing.T) {
	s := sampleSnapshot()

	names := s.Names()
	if len(names) != 2 || names[0] != "users" || names[1] != "orders" {
		t.Fatalf("unexpected order: %v", names)
	}

	c, ok := s.Collection("orders")
	if !ok {
		t.Fatal("orders not found")
	}
	if !c.HasField("user_id") || c.HasField("missing") {
		t.Error("field lookup wrong")
	}
	f, ok := c.Field("total")
	if !ok || f.Type != TagDouble {
		t.Errorf("total field: %+v, %v", f, ok)
	}
}

func TestSnapshot_Restrict(t *testing.T) {
	s := sampleSnapshot()
	r := s.Restrict("orders", "ghost")
	if r.Len() != 1 {
		t.Fatalf("expected 1 collection, got %d", r.Len())
	}
	if r.Names()[0] != "orders" {
		t.Errorf("restricted names: %v", r.Names())
	}
}

func TestSnapshot_FingerprintStability(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical snapshots must share a fingerprint")
	}

	changed := NewSnapshot([]Collection{
		NewCollection("users", []Field{{Name: "id", Type: TagString}}, 10, nil),
	})
	if a.Fingerprint() == changed.Fingerprint() {
		t.Error("structurally different snapshots must differ")
	}
}

func TestTagOf(t *testing.T) {
	cases := []struct {
		in   any
		want TypeTag
	}{
		{nil, TagNull},
		{true, TagBoolean},
		{int64(5), TagNumber},
		{int32(5), TagNumber},
		{5.5, TagDouble},
		{"x", TagString},
		{[]any{1}, TagArray},
		{map[string]any{"a": 1}, TagObject},
		{struct{}{}, TagUnknown},
	}
	for _, c := range cases {
		if got := TagOf(c.in); got != c.want {
			t.Errorf("TagOf(%#v) = %s, want %s", c.in, got, c.want)
		}
	}
}
