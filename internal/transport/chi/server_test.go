package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

func mustNode(t *testing.T, raw string) domquery.Node {
	t.Helper()
	n, err := domquery.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return n
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func postJSON(handler http.Handler, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint_Find(t *testing.T) {
	f := newFixture()
	f.translator.proposed = domquery.Proposed{
		Type:       domquery.TypeFind,
		Collection: "users",
		Query:      mustNode(t, `{"age": {"$gt": 30}}`),
	}
	f.executor.docs = []map[string]any{
		{"name": "ada", "age": int64(36)},
		{"name": "grace", "age": int64(41)},
	}

	rec := postJSON(f.handler(), "/api/query", `{"query": "users older than 30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["document_count"] != float64(2) {
		t.Errorf("document_count = %v", body["document_count"])
	}
	fields, _ := body["fields"].([]any)
	if len(fields) != 2 || fields[0] != "age" || fields[1] != "name" {
		t.Errorf("fields = %v", fields)
	}
	mq, _ := body["mongodb_query"].(map[string]any)
	if mq["collection"] != "users" || mq["query_type"] != "find" {
		t.Errorf("mongodb_query = %v", mq)
	}
	if _, ok := body["execution_time_ms"].(float64); !ok {
		t.Errorf("execution_time_ms = %v", body["execution_time_ms"])
	}
}

func TestQueryEndpoint_DangerousTranslationRejected(t *testing.T) {
	f := newFixture()
	f.translator.proposed = domquery.Proposed{
		Type:       domquery.TypeFind,
		Collection: "users",
		Query:      mustNode(t, `{"$where": "this.age > 30"}`),
	}

	rec := postJSON(f.handler(), "/api/query", `{"query": "anything"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != "dangerous_operator" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestQueryEndpoint_UnknownProvider(t *testing.T) {
	rec := postJSON(newFixture().handler(), "/api/query", `{"query": "q", "llm_provider": "anthropic"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "unknown_provider" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestQueryEndpoint_MissingQuery(t *testing.T) {
	rec := postJSON(newFixture().handler(), "/api/query", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpoint_TargetCollection(t *testing.T) {
	f := newFixture()
	f.schemaRepo.snap = domschema.NewSnapshot([]domschema.Collection{
		domschema.NewCollection("users", nil, 2, nil),
	})
	f.translator.proposed = domquery.Proposed{
		Type:       domquery.TypeFind,
		Collection: "users",
		Query:      mustNode(t, `{}`),
	}
	handler := f.handler()

	rec := postJSON(handler, "/api/query", `{"query": "q", "collection_name": "users"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(handler, "/api/query", `{"query": "q", "collection_name": "ghosts"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["code"] != "collection_not_found" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestUploadEndpoint(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sales.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("region,total\nwest,100\neast,250\n")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newFixture().handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["collection_name"] != "sales" {
		t.Errorf("collection_name = %v", body["collection_name"])
	}
	if body["document_count"] != float64(2) {
		t.Errorf("document_count = %v", body["document_count"])
	}
	schema, _ := body["schema"].(map[string]any)
	if schema["region"] != "string" || schema["total"] != "number" {
		t.Errorf("schema = %v", schema)
	}
}

func TestUploadEndpoint_MissingFile(t *testing.T) {
	rec := postJSON(newFixture().handler(), "/api/upload", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	f := newFixture()
	f.schemaRepo.snap = domschema.NewSnapshot([]domschema.Collection{
		domschema.NewCollection("users", []domschema.Field{
			{Name: "name", Type: domschema.TagString, Sample: "ada"},
		}, 3, nil),
	})
	f.detector.rels = []inference.Relationship{{
		SourceCollection: "orders",
		SourceField:      "user_id",
		TargetCollection: "users",
		TargetField:      "id",
		Type:             inference.OneToMany,
		Confidence:       0.9,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total_collections"] != float64(1) {
		t.Errorf("total_collections = %v", body["total_collections"])
	}
	rels, _ := body["relationships"].([]any)
	if len(rels) != 1 {
		t.Fatalf("relationships = %v", rels)
	}
	rel, _ := rels[0].(map[string]any)
	if rel["source_field"] != "user_id" || rel["relationship_type"] != "one_to_many" {
		t.Errorf("relationship = %v", rel)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	rec := postJSON(newFixture().handler(), "/api/insights", `{"collection_name": "users"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["collection_name"] != "users" {
		t.Errorf("collection_name = %v", body["collection_name"])
	}
	insights, _ := body["insights"].([]any)
	if len(insights) != 1 {
		t.Fatalf("insights = %v", insights)
	}
}

func TestInsightsEndpoint_MissingCollection(t *testing.T) {
	f := newFixture()
	f.checker.exists = false

	rec := postJSON(f.handler(), "/api/insights", `{"collection_name": "ghosts"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "collection_not_found" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestDeleteCollectionEndpoint(t *testing.T) {
	f := newFixture()
	f.dataset.exists = true

	req := httptest.NewRequest(http.MethodDelete, "/api/collection/sales", nil)
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(f.dataset.dropped) != 1 || f.dataset.dropped[0] != "sales" {
		t.Errorf("dropped = %v", f.dataset.dropped)
	}
}

func TestDeleteCollectionEndpoint_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/collection/ghosts", nil)
	rec := httptest.NewRecorder()
	newFixture().handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	newFixture().handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["database_connected"] != true {
		t.Errorf("body = %v", body)
	}
	if body["collections_count"] != float64(1) {
		t.Errorf("collections_count = %v", body["collections_count"])
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	f := newFixture()
	f.dbPinger.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "error" {
		t.Errorf("status = %v", body["status"])
	}
}
