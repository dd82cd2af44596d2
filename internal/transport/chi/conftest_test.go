package chi

import (
	"context"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain/insight"
	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
	healthuc "github.com/kestrel-data/nlmongo/internal/usecase/health"
	ingestuc "github.com/kestrel-data/nlmongo/internal/usecase/ingest"
	insightsuc "github.com/kestrel-data/nlmongo/internal/usecase/insights"
	queryuc "github.com/kestrel-data/nlmongo/internal/usecase/query"
	schemauc "github.com/kestrel-data/nlmongo/internal/usecase/schema"
)

type stubSchemaRepo struct {
	snap domschema.Snapshot
	err  error
}

func (s *stubSchemaRepo) Snapshot(context.Context) (domschema.Snapshot, error) {
	return s.snap, s.err
}

type stubDetector struct {
	rels []inference.Relationship
}

func (s *stubDetector) DetectAll(context.Context, domschema.Snapshot, float64) []inference.Relationship {
	return s.rels
}

type stubTranslator struct {
	proposed domquery.Proposed
	err      error
}

func (s *stubTranslator) Translate(
	context.Context, string, domschema.Snapshot, []inference.Relationship,
) (domquery.Proposed, error) {
	return s.proposed, s.err
}

type stubExecutor struct {
	docs []map[string]any
	err  error
}

func (s *stubExecutor) Find(
	context.Context, string, domquery.Node, domquery.Node, domquery.Node, int64,
) ([]map[string]any, error) {
	return s.docs, s.err
}

func (s *stubExecutor) Aggregate(context.Context, string, domquery.Node) ([]map[string]any, error) {
	return s.docs, s.err
}

type stubDatasetRepo struct {
	exists  bool
	err     error
	dropped []string
}

func (s *stubDatasetRepo) Exists(context.Context, string) (bool, error) {
	return s.exists, s.err
}

func (s *stubDatasetRepo) Replace(_ context.Context, _ string, docs []map[string]any) (int, error) {
	return len(docs), s.err
}

func (s *stubDatasetRepo) Drop(_ context.Context, collection string) error {
	s.dropped = append(s.dropped, collection)
	return s.err
}

type stubInsightsRepo struct{}

func (stubInsightsRepo) FirstDocumentFields(context.Context, string) ([]string, error) {
	return []string{"name"}, nil
}

func (stubInsightsRepo) FieldSample(context.Context, string, string) (any, bool, error) {
	return "ada", true, nil
}

func (stubInsightsRepo) DistinctAndNullCounts(context.Context, string, string) (int64, int64, error) {
	return 2, 0, nil
}

func (stubInsightsRepo) NumericStats(context.Context, string, string) (any, any, *float64, error) {
	return nil, nil, nil, nil
}

func (stubInsightsRepo) MostCommon(context.Context, string, string) ([]insight.ValueCount, error) {
	return nil, nil
}

type stubChecker struct {
	exists bool
}

func (s *stubChecker) CollectionExists(context.Context, string) (bool, error) {
	return s.exists, nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

type stubCounter struct {
	names []string
}

func (s *stubCounter) ListCollectionNames(context.Context) ([]string, error) {
	return s.names, nil
}

// serverFixture builds a fully wired server over stub collaborators.
type serverFixture struct {
	translator *stubTranslator
	executor   *stubExecutor
	dataset    *stubDatasetRepo
	schemaRepo *stubSchemaRepo
	detector   *stubDetector
	checker    *stubChecker
	dbPinger   *stubPinger
}

func newFixture() *serverFixture {
	return &serverFixture{
		translator: &stubTranslator{},
		executor:   &stubExecutor{},
		dataset:    &stubDatasetRepo{},
		schemaRepo: &stubSchemaRepo{},
		detector:   &stubDetector{},
		checker:    &stubChecker{exists: true},
		dbPinger:   &stubPinger{},
	}
}

func (f *serverFixture) handler() http.Handler {
	logger := zap.NewNop()

	schemaSvc := schemauc.New(f.schemaRepo, f.detector, 0.3, logger)
	querySvc := queryuc.New(schemaSvc, f.translator, f.executor, 100, logger)
	ingestSvc := ingestuc.New(f.dataset, logger)
	insightsSvc := insightsuc.New(stubInsightsRepo{}, f.checker, logger)
	healthSvc := healthuc.New(f.dbPinger, &stubCounter{names: []string{"users"}}, nil, nil)

	server := NewServer(
		ingestSvc,
		map[string]*queryuc.Service{"openai": querySvc},
		"openai",
		schemaSvc,
		insightsSvc,
		healthSvc,
		logger,
	)

	r := chirouter.NewRouter()
	server.Register(r)
	return r
}
