// Package schema holds the point-in-time snapshot of collection layouts that
// relationship inference and prompt assembly consume. A snapshot is built
// fresh per request from sampled documents and is immutable once built.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

// Field describes one sampled field of a collection.
type Field struct {
	Name   string
	Type   TypeTag
	Sample any
}

// Collection describes one collection: its fields in first-observed order,
// a document count, and a few sample documents for prompting.
type Collection struct {
	Name          string
	Fields        []Field
	DocumentCount int64
	SampleDocs    []map[string]any

	fieldIndex map[string]int
}

// NewCollection builds a collection descriptor, indexing fields by name.
func NewCollection(name string, fields []Field, count int64, samples []map[string]any) Collection {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return Collection{
		Name:          name,
		Fields:        fields,
		DocumentCount: count,
		SampleDocs:    samples,
		fieldIndex:    idx,
	}
}

// Field returns the named field descriptor.
func (c Collection) Field(name string) (Field, bool) {
	i, ok := c.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return c.Fields[i], true
}

// HasField reports whether the collection contains the named field.
func (c Collection) HasField(name string) bool {
	_, ok := c.fieldIndex[name]
	return ok
}

// Snapshot is an ordered mapping from collection name to collection layout.
type Snapshot struct {
	collections []Collection
	index       map[string]int
}

// NewSnapshot builds a snapshot over the given collections, keeping their order.
func NewSnapshot(collections []Collection) Snapshot {
	idx := make(map[string]int, len(collections))
	for i, c := range collections {
		idx[c.Name] = i
	}
	return Snapshot{collections: collections, index: idx}
}

// Collections returns all collections in snapshot order.
func (s Snapshot) Collections() []Collection { return s.collections }

// Names returns collection names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.collections))
	for i, c := range s.collections {
		names[i] = c.Name
	}
	return names
}

// Collection returns the named collection layout.
func (s Snapshot) Collection(name string) (Collection, bool) {
	i, ok := s.index[name]
	if !ok {
		return Collection{}, false
	}
	return s.collections[i], true
}

// Has reports whether the snapshot contains the named collection.
func (s Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of collections.
func (s Snapshot) Len() int { return len(s.collections) }

// Restrict returns a snapshot containing only the named collections, in the
// order given. Unknown names are skipped.
func (s Snapshot) Restrict(names ...string) Snapshot {
	var kept []Collection
	for _, name := range names {
		if c, ok := s.Collection(name); ok {
			kept = append(kept, c)
		}
	}
	return NewSnapshot(kept)
}

// Fingerprint returns a stable hash over collection names, field names, and
// type tags. Two snapshots of structurally identical databases share a
// fingerprint; translation caching keys off it.
func (s Snapshot) Fingerprint() string {
	h := sha256.New()
	for _, c := range s.collections {
		h.Write([]byte(c.Name))
		h.Write([]byte{0})
		for _, f := range c.Fields {
			h.Write([]byte(f.Name))
			h.Write([]byte{1})
			h.Write([]byte(f.Type))
			h.Write([]byte{2})
		}
		h.Write([]byte{3})
	}
	return hex.EncodeToString(h.Sum(nil))
}
