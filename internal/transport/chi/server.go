package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/inference"
	"github.com/kestrel-data/nlmongo/internal/safety"
	healthuc "github.com/kestrel-data/nlmongo/internal/usecase/health"
	ingestuc "github.com/kestrel-data/nlmongo/internal/usecase/ingest"
	insightsuc "github.com/kestrel-data/nlmongo/internal/usecase/insights"
	queryuc "github.com/kestrel-data/nlmongo/internal/usecase/query"
	schemauc "github.com/kestrel-data/nlmongo/internal/usecase/schema"
	"github.com/kestrel-data/nlmongo/internal/version"
)

// maxUploadBytes caps the accepted size of an uploaded dataset file.
const maxUploadBytes = 32 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the HTTP API over a chi router.
type Server struct {
	ingest          *ingestuc.Service
	queries         map[string]*queryuc.Service
	defaultProvider string
	schemas         *schemauc.Service
	insights        *insightsuc.Service
	health          *healthuc.Service
	logger          *zap.Logger
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server. queries maps translation provider
// names to their query pipelines; defaultProvider selects the one used when a
// request does not name a provider.
func NewServer(
	ingest *ingestuc.Service,
	queries map[string]*queryuc.Service,
	defaultProvider string,
	schemas *schemauc.Service,
	insights *insightsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:          ingest,
		queries:         queries,
		defaultProvider: defaultProvider,
		schemas:         schemas,
		insights:        insights,
		health:          health,
		logger:          logger,
	}
	s.errorHandlers = []errorHandler{
		safetyRejectionHandler,
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrEmptyDataset, http.StatusBadRequest, codeEmptyDataset),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusBadRequest, codeUnsupportedFileType),
		sentinelHandler(domain.ErrInvalidTranslation, http.StatusBadGateway, codeInvalidTranslation),
		sentinelHandler(domain.ErrTranslatorError, http.StatusBadGateway, codeTranslatorError),
		sentinelHandler(domain.ErrTranslatorUnavailable, http.StatusServiceUnavailable, codeTranslatorUnavailable),
		sentinelHandler(domain.ErrQueryFailed, http.StatusInternalServerError, codeQueryFailed),
	}
	return s
}

// Register mounts the API routes on the given router.
func (s *Server) Register(r chirouter.Router) {
	r.Route("/api", func(r chirouter.Router) {
		r.Post("/upload", s.Upload)
		r.Post("/query", s.Query)
		r.Get("/schema", s.Schema)
		r.Post("/insights", s.Insights)
		r.Get("/health", s.HealthCheck)
		r.Delete("/collection/{collection}", s.DeleteCollection)
	})
	r.Get("/metrics", s.Metrics)
}

// Upload handles POST /api/upload.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing file field: "+err.Error())
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read upload: "+err.Error())
		return
	}

	res, err := s.ingest.Upload(r.Context(), header.Filename, content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		CollectionName: res.Collection,
		Schema:         res.Schema,
		DocumentCount:  res.DocumentCount,
		SampleData:     orEmptyDocs(res.SampleData),
	})
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	provider := req.LLMProvider
	if provider == "" {
		provider = s.defaultProvider
	}
	svc, ok := s.queries[provider]
	if !ok {
		writeError(w, http.StatusBadRequest, codeUnknownProvider, "unknown llm provider: "+provider)
		return
	}

	var targets []string
	if req.CollectionName != "" {
		targets = append(targets, req.CollectionName)
	}
	res, err := svc.Ask(r.Context(), req.Query, targets...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		MongoDBQuery:    res.Proposed,
		Results:         orEmptyDocs(res.Results),
		Fields:          orEmptyStrings(res.Fields),
		DocumentCount:   res.DocumentCount,
		ExecutionTimeMs: float64(res.ExecutionTime.Microseconds()) / 1000,
	})
}

// Schema handles GET /api/schema.
func (s *Server) Schema(w http.ResponseWriter, r *http.Request) {
	snap, rels, err := s.schemas.Describe(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	collections := make([]CollectionInfo, 0, snap.Len())
	for _, c := range snap.Collections() {
		fields := make([]FieldInfo, len(c.Fields))
		for i, f := range c.Fields {
			fields[i] = FieldInfo{Name: f.Name, Type: string(f.Type), Sample: f.Sample}
		}
		collections = append(collections, CollectionInfo{
			Name:          c.Name,
			Fields:        fields,
			DocumentCount: c.DocumentCount,
		})
	}
	if rels == nil {
		rels = []inference.Relationship{}
	}

	writeJSON(w, http.StatusOK, SchemaResponse{
		Collections:      collections,
		TotalCollections: len(collections),
		Relationships:    rels,
	})
}

// Insights handles POST /api/insights.
func (s *Server) Insights(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.CollectionName == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "collection_name is required")
		return
	}

	results, err := s.insights.Generate(r.Context(), req.CollectionName, req.FieldNames)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InsightsResponse{
		CollectionName: req.CollectionName,
		Insights:       results,
		GeneratedAt:    time.Now().UTC(),
	})
}

// HealthCheck handles GET /api/health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:            string(report.Status),
		DatabaseConnected: report.DatabaseConnected,
		CollectionsCount:  report.CollectionsCount,
		Version:           version.Version,
		UptimeSeconds:     report.Uptime.Seconds(),
		Checks:            checks,
	})
}

// DeleteCollection handles DELETE /api/collection/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	collection := chirouter.URLParam(r, "collection")

	if err := s.ingest.Delete(r.Context(), collection); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "Collection '" + collection + "' deleted successfully",
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	var verr *safety.Error
	if errors.As(err, &verr) {
		return verr.Message
	}

	sentinels := []error{
		domain.ErrCollectionNotFound,
		domain.ErrEmptyDataset,
		domain.ErrUnsupportedFileType,
		domain.ErrInvalidTranslation,
		domain.ErrTranslatorError,
		domain.ErrTranslatorUnavailable,
		domain.ErrQueryFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// safetyRejectionHandler maps validation rejections to 400 with the rejection
// category as the error code.
func safetyRejectionHandler(w http.ResponseWriter, err error, msg string) bool {
	var verr *safety.Error
	if !errors.As(err, &verr) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCode(verr.Category), msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func orEmptyDocs(docs []map[string]any) []map[string]any {
	if docs == nil {
		return []map[string]any{}
	}
	return docs
}

func orEmptyStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
