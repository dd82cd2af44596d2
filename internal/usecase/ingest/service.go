package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/safety"
)

// sampleDataLimit bounds how many example documents an upload result carries.
const sampleDataLimit = 5

// Result describes a completed dataset upload.
type Result struct {
	Collection    string
	Schema        map[string]string
	DocumentCount int
	SampleData    []map[string]any
}

// Service converts uploaded CSV and JSON files into collections.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates an ingest service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Upload parses the file by extension, derives a safe collection name from
// the filename, and replaces any existing collection of that name.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (Result, error) {
	var docs []map[string]any
	var err error

	switch {
	case strings.HasSuffix(filename, ".csv"):
		docs, err = parseCSV(content)
	case strings.HasSuffix(filename, ".json"):
		docs, err = parseJSON(content)
	default:
		return Result{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, filename)
	}
	if err != nil {
		return Result{}, err
	}
	if len(docs) == 0 {
		return Result{}, domain.ErrEmptyDataset
	}

	collection := SanitizeCollectionName(strings.ReplaceAll(strings.ToLower(filename), " ", "_"))

	inserted, err := s.repo.Replace(ctx, collection, docs)
	if err != nil {
		return Result{}, fmt.Errorf("store dataset: %w", err)
	}

	s.logger.Info("dataset uploaded",
		zap.String("collection", collection),
		zap.Int("documents", inserted),
	)

	return Result{
		Collection:    collection,
		Schema:        inferFieldTypes(docs),
		DocumentCount: inserted,
		SampleData:    docs[:min(len(docs), sampleDataLimit)],
	}, nil
}

// Delete drops a previously uploaded collection. Deleting a collection that
// does not exist is an error, not a no-op.
func (s *Service) Delete(ctx context.Context, collection string) error {
	if err := safety.ValidateCollectionName(collection); err != nil {
		return err
	}

	exists, err := s.repo.Exists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	if err := s.repo.Drop(ctx, collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	s.logger.Info("collection dropped", zap.String("collection", collection))
	return nil
}

// SanitizeCollectionName makes an arbitrary name safe for use as a collection
// name: the extension is stripped, disallowed characters become underscores,
// and a name that still fails validation falls back to a hash-derived one.
func SanitizeCollectionName(name string) string {
	base := name
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	sanitized := b.String()

	if sanitized != "" && !isLetter(sanitized[0]) && sanitized[0] != '_' {
		sanitized = "_" + sanitized
	}
	if sanitized == "" {
		sanitized = "collection"
	}

	if err := safety.ValidateCollectionName(sanitized); err != nil {
		h := fnv.New32a()
		h.Write([]byte(name))
		sanitized = fmt.Sprintf("collection_%d", h.Sum32()%100000)
	}
	return sanitized
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// cleanColumnName normalizes a header for use as a field name.
func cleanColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "-", "_")
}

// parseCSV reads a header row and typed records. Cell values are inferred in
// order: integer, float, boolean, string; empty cells become null.
func parseCSV(content []byte) ([]map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = cleanColumnName(col)
	}

	docs := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		doc := make(map[string]any, len(header))
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			doc[header[i]] = inferCellValue(cell)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func inferCellValue(cell string) any {
	if cell == "" {
		return nil
	}
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v
	}
	switch strings.ToLower(cell) {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}

// parseJSON accepts an array of objects. Numbers keep integer identity where
// possible; column names are normalized like CSV headers.
func parseJSON(content []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("json must be an array of objects: %w", err)
	}

	docs := make([]map[string]any, len(raw))
	for i, obj := range raw {
		doc := make(map[string]any, len(obj))
		for k, v := range obj {
			doc[cleanColumnName(k)] = concretizeJSON(v)
		}
		docs[i] = doc
	}
	return docs, nil
}

func concretizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = concretizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = concretizeJSON(e)
		}
		return out
	default:
		return v
	}
}

// inferFieldTypes reports the type of each field from its first non-missing
// occurrence across the documents.
func inferFieldTypes(docs []map[string]any) map[string]string {
	types := map[string]string{}
	for _, doc := range docs {
		for name, value := range doc {
			if _, seen := types[name]; seen {
				continue
			}
			types[name] = string(domschema.TagOf(value))
		}
	}
	return types
}
