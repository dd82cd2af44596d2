package nlmongo

import (
	"time"

	"github.com/kestrel-data/nlmongo/internal/domain/insight"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
	ingestuc "github.com/kestrel-data/nlmongo/internal/usecase/ingest"
	queryuc "github.com/kestrel-data/nlmongo/internal/usecase/query"
)

// UploadResult describes a completed dataset upload.
type UploadResult struct {
	Collection    string
	Schema        map[string]string
	DocumentCount int
	SampleData    []map[string]any
}

// QueryResult is the outcome of one natural-language query.
type QueryResult struct {
	QueryType     string
	Collection    string
	Results       []map[string]any
	Fields        []string
	DocumentCount int
	ExecutionTime time.Duration
}

// SchemaField describes one sampled field of a collection.
type SchemaField struct {
	Name   string
	Type   string
	Sample any
}

// SchemaCollection describes one collection's layout.
type SchemaCollection struct {
	Name          string
	Fields        []SchemaField
	DocumentCount int64
	SampleDocs    []map[string]any
}

// Relationship is an inferred cross-collection reference.
type Relationship struct {
	SourceCollection string
	SourceField      string
	TargetCollection string
	TargetField      string
	Type             string
	Confidence       float64
}

// ColumnInsight carries per-field statistics.
type ColumnInsight struct {
	ColumnName   string
	DataType     string
	UniqueValues int64
	NullCount    int64
	MinValue     any
	MaxValue     any
	AvgValue     *float64
	MostCommon   []ValueCount
}

// ValueCount is one ranked value with its occurrence count.
type ValueCount struct {
	Value any
	Count int64
}

func uploadResultFromInternal(r ingestuc.Result) UploadResult {
	return UploadResult{
		Collection:    r.Collection,
		Schema:        r.Schema,
		DocumentCount: r.DocumentCount,
		SampleData:    r.SampleData,
	}
}

func queryResultFromInternal(r queryuc.Result) QueryResult {
	return QueryResult{
		QueryType:     string(r.Proposed.Type),
		Collection:    r.Proposed.Collection,
		Results:       r.Results,
		Fields:        r.Fields,
		DocumentCount: r.DocumentCount,
		ExecutionTime: r.ExecutionTime,
	}
}

func collectionsFromSnapshot(snap domschema.Snapshot) []SchemaCollection {
	out := make([]SchemaCollection, 0, snap.Len())
	for _, c := range snap.Collections() {
		fields := make([]SchemaField, len(c.Fields))
		for i, f := range c.Fields {
			fields[i] = SchemaField{Name: f.Name, Type: string(f.Type), Sample: f.Sample}
		}
		out = append(out, SchemaCollection{
			Name:          c.Name,
			Fields:        fields,
			DocumentCount: c.DocumentCount,
			SampleDocs:    c.SampleDocs,
		})
	}
	return out
}

func relationshipsFromInternal(rels []inference.Relationship) []Relationship {
	out := make([]Relationship, len(rels))
	for i, r := range rels {
		out[i] = Relationship{
			SourceCollection: r.SourceCollection,
			SourceField:      r.SourceField,
			TargetCollection: r.TargetCollection,
			TargetField:      r.TargetField,
			Type:             string(r.Type),
			Confidence:       r.Confidence,
		}
	}
	return out
}

func insightsFromInternal(results []insight.ColumnInsight) []ColumnInsight {
	out := make([]ColumnInsight, len(results))
	for i, r := range results {
		ranked := make([]ValueCount, len(r.MostCommon))
		for j, vc := range r.MostCommon {
			ranked[j] = ValueCount{Value: vc.Value, Count: vc.Count}
		}
		out[i] = ColumnInsight{
			ColumnName:   r.ColumnName,
			DataType:     r.DataType,
			UniqueValues: r.UniqueValues,
			NullCount:    r.NullCount,
			MinValue:     r.MinValue,
			MaxValue:     r.MaxValue,
			AvgValue:     r.AvgValue,
			MostCommon:   ranked,
		}
	}
	return out
}
