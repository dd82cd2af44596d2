package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	dbmongo "github.com/kestrel-data/nlmongo/internal/db/mongo"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
)

const (
	// schemaSampleLimit bounds how many documents are read per collection to
	// infer field names and types.
	schemaSampleLimit = 10
	// sampleDataLimit bounds how many example documents a collection snapshot
	// carries.
	sampleDataLimit = 3
)

// store is the consumer interface for schema extraction (ISP).
type store interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	SampleDocuments(ctx context.Context, collection string, limit int64) ([]map[string]any, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	SampleFieldValues(ctx context.Context, collection, field string, limit int64) ([]string, error)
}

// Repo extracts schema snapshots from the document store. It also serves as
// the value source for relationship inference sampling.
type Repo struct {
	store store
}

// New creates a schema repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Snapshot inspects every user collection and returns an immutable schema
// snapshot. System collections (system.*) are skipped. Field types come from
// the first sampled occurrence of each field; empty collections appear with a
// zero count and no fields.
func (r *Repo) Snapshot(ctx context.Context) (domschema.Snapshot, error) {
	names, err := r.store.ListCollectionNames(ctx)
	if err != nil {
		return domschema.Snapshot{}, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)

	collections := make([]domschema.Collection, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}

		col, err := r.describeCollection(ctx, name)
		if err != nil {
			return domschema.Snapshot{}, fmt.Errorf("describe collection %s: %w", name, err)
		}
		collections = append(collections, col)
	}

	return domschema.NewSnapshot(collections), nil
}

func (r *Repo) describeCollection(ctx context.Context, name string) (domschema.Collection, error) {
	docs, err := r.store.SampleDocuments(ctx, name, schemaSampleLimit)
	if err != nil {
		return domschema.Collection{}, fmt.Errorf("sample documents: %w", err)
	}
	if len(docs) == 0 {
		return domschema.NewCollection(name, nil, 0, nil), nil
	}

	// First sampled occurrence of a field decides its recorded type and
	// sample value.
	byName := map[string]domschema.Field{}
	for _, doc := range docs {
		for fieldName, value := range doc {
			if _, seen := byName[fieldName]; seen {
				continue
			}
			byName[fieldName] = domschema.Field{
				Name:   fieldName,
				Type:   domschema.TagOf(value),
				Sample: dbmongo.NormalizeValue(value),
			}
		}
	}
	fields := make([]domschema.Field, 0, len(byName))
	for _, f := range byName {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	count, err := r.store.CountDocuments(ctx, name)
	if err != nil {
		return domschema.Collection{}, fmt.Errorf("count documents: %w", err)
	}

	samples := make([]map[string]any, 0, sampleDataLimit)
	for _, doc := range docs[:min(len(docs), sampleDataLimit)] {
		samples = append(samples, dbmongo.NormalizeDocument(doc))
	}

	return domschema.NewCollection(name, fields, count, samples), nil
}

// SampleFieldValues satisfies the inference value source contract by
// delegating to the document store's canonical field sampling.
func (r *Repo) SampleFieldValues(ctx context.Context, collection, field string, limit int) ([]string, error) {
	return r.store.SampleFieldValues(ctx, collection, field, int64(limit))
}
