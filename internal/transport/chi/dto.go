package chi

import (
	"time"

	"github.com/kestrel-data/nlmongo/internal/domain/insight"
	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

// ErrorCode is a machine-readable rejection code carried in error responses.
type ErrorCode string

const (
	codeBadRequest            ErrorCode = "bad_request"
	codeValidationFailed      ErrorCode = "validation_failed"
	codeUnknownProvider       ErrorCode = "unknown_provider"
	codeCollectionNotFound    ErrorCode = "collection_not_found"
	codeEmptyDataset          ErrorCode = "empty_dataset"
	codeUnsupportedFileType   ErrorCode = "unsupported_file_type"
	codeInvalidTranslation    ErrorCode = "invalid_translation"
	codeTranslatorError       ErrorCode = "translation_provider_error"
	codeTranslatorUnavailable ErrorCode = "translator_unavailable"
	codeQueryFailed           ErrorCode = "query_failed"
	codeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UploadResponse describes a completed dataset upload.
type UploadResponse struct {
	CollectionName string            `json:"collection_name"`
	Schema         map[string]string `json:"schema"`
	DocumentCount  int               `json:"document_count"`
	SampleData     []map[string]any  `json:"sample_data"`
}

// QueryRequest carries a natural-language question. CollectionName, when set,
// scopes query generation to that collection.
type QueryRequest struct {
	Query          string `json:"query"`
	LLMProvider    string `json:"llm_provider,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
}

// QueryResponse carries the generated query and its results.
type QueryResponse struct {
	MongoDBQuery    domquery.Proposed `json:"mongodb_query"`
	Results         []map[string]any  `json:"results"`
	Fields          []string          `json:"fields"`
	DocumentCount   int               `json:"document_count"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
}

// FieldInfo describes one sampled field of a collection.
type FieldInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Sample any    `json:"sample,omitempty"`
}

// CollectionInfo describes one collection of the schema response.
type CollectionInfo struct {
	Name          string      `json:"name"`
	Fields        []FieldInfo `json:"fields"`
	DocumentCount int64       `json:"document_count"`
}

// SchemaResponse describes the database layout and inferred relationships.
type SchemaResponse struct {
	Collections      []CollectionInfo         `json:"collections"`
	TotalCollections int                      `json:"total_collections"`
	Relationships    []inference.Relationship `json:"relationships"`
}

// InsightsRequest names the collection and optionally the fields to analyze.
type InsightsRequest struct {
	CollectionName string   `json:"collection_name"`
	FieldNames     []string `json:"field_names,omitempty"`
}

// InsightsResponse carries per-field statistics.
type InsightsResponse struct {
	CollectionName string                  `json:"collection_name"`
	Insights       []insight.ColumnInsight `json:"insights"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// HealthResponse reports service and dependency health.
type HealthResponse struct {
	Status            string            `json:"status"`
	DatabaseConnected bool              `json:"database_connected"`
	CollectionsCount  int               `json:"collections_count"`
	Version           string            `json:"version"`
	UptimeSeconds     float64           `json:"uptime_seconds"`
	Checks            map[string]string `json:"checks,omitempty"`
}

// MessageResponse is a plain confirmation envelope.
type MessageResponse struct {
	Message string `json:"message"`
}
