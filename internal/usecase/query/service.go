package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	"github.com/kestrel-data/nlmongo/internal/inference"
	"github.com/kestrel-data/nlmongo/internal/metrics"
	"github.com/kestrel-data/nlmongo/internal/safety"
)

// DefaultLimit caps find results when the translation does not name a limit.
const DefaultLimit = 100

// Result is the outcome of one natural-language query round trip.
type Result struct {
	Proposed      domquery.Proposed
	Results       []map[string]any
	Fields        []string
	DocumentCount int
	ExecutionTime time.Duration
}

// Service runs the translate-validate-execute pipeline.
type Service struct {
	schemas      SchemaProvider
	translator   domain.Translator
	executor     Executor
	defaultLimit int64
	logger       *zap.Logger
}

// New creates a query service. defaultLimit <= 0 falls back to DefaultLimit.
func New(
	schemas SchemaProvider,
	translator domain.Translator,
	executor Executor,
	defaultLimit int64,
	logger *zap.Logger,
) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{
		schemas:      schemas,
		translator:   translator,
		executor:     executor,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Ask translates a natural-language question into a query, validates it, and
// executes it. The translation is never executed unless every part of it
// passes safety validation. Naming target collections scopes the schema shown
// to the translator to those collections only.
func (s *Service) Ask(ctx context.Context, question string, collections ...string) (Result, error) {
	snap, rels, err := s.schemas.Describe(ctx)
	if err != nil {
		return Result{}, err
	}

	if len(collections) > 0 {
		for _, name := range collections {
			if err := safety.ValidateCollectionName(name); err != nil {
				return Result{}, err
			}
			if !snap.Has(name) {
				return Result{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
			}
		}
		snap = snap.Restrict(collections...)
		rels = relationshipsTouching(rels, collections)
	}

	proposed, err := s.translator.Translate(ctx, question, snap, rels)
	if err != nil {
		return Result{}, fmt.Errorf("translate question: %w", err)
	}

	if err := validateProposed(proposed); err != nil {
		category := ""
		if cat, ok := safety.CategoryOf(err); ok {
			category = string(cat)
		}
		metrics.QueryValidationsTotal.WithLabelValues("rejected", category).Inc()
		s.logger.Warn("Generated query rejected",
			zap.String("collection", proposed.Collection),
			zap.String("query_type", string(proposed.Type)),
			zap.String("category", category),
			zap.Error(err),
		)
		return Result{}, err
	}
	metrics.QueryValidationsTotal.WithLabelValues("accepted", "none").Inc()

	if joined := lookupCollections(proposed); len(joined) > 0 {
		s.logger.Info("cross-collection query detected",
			zap.String("collection", proposed.Collection),
			zap.Strings("joined", joined),
		)
	}

	start := time.Now()
	results, err := s.execute(ctx, proposed)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}

	s.logger.Info("query processed",
		zap.String("collection", proposed.Collection),
		zap.String("query_type", string(proposed.Type)),
		zap.Int("documents", len(results)),
		zap.Duration("execution_time", elapsed),
	)

	return Result{
		Proposed:      proposed,
		Results:       results,
		Fields:        fieldNames(results),
		DocumentCount: len(results),
		ExecutionTime: elapsed,
	}, nil
}

func (s *Service) execute(ctx context.Context, proposed domquery.Proposed) ([]map[string]any, error) {
	if proposed.Type == domquery.TypeAggregate {
		return s.executor.Aggregate(ctx, proposed.Collection, proposed.Query)
	}

	limit := proposed.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.executor.Find(ctx, proposed.Collection, proposed.Query, proposed.Sort, proposed.Projection, limit)
}

// validateProposed checks every part of a translated query against the safety
// rules. Find filters and aggregation pipelines take different paths; sort
// and projection only apply to find.
func validateProposed(proposed domquery.Proposed) error {
	if err := safety.ValidateCollectionName(proposed.Collection); err != nil {
		return err
	}

	if proposed.Type == domquery.TypeAggregate {
		return safety.ValidateAggregationPipeline(proposed.Query)
	}

	if err := safety.ValidateFilter(proposed.Query); err != nil {
		return err
	}
	if !proposed.Sort.IsZero() {
		if err := safety.ValidateSortSpecification(proposed.Sort); err != nil {
			return err
		}
	}
	if !proposed.Projection.IsZero() {
		if err := safety.ValidateProjection(proposed.Projection); err != nil {
			return err
		}
	}
	return nil
}

// relationshipsTouching keeps relationships with at least one endpoint among
// the named collections, so a scoped prompt still mentions joins that reach
// outside the scope.
func relationshipsTouching(rels []inference.Relationship, names []string) []inference.Relationship {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	var kept []inference.Relationship
	for _, rel := range rels {
		if _, ok := wanted[rel.SourceCollection]; ok {
			kept = append(kept, rel)
			continue
		}
		if _, ok := wanted[rel.TargetCollection]; ok {
			kept = append(kept, rel)
		}
	}
	return kept
}

// lookupCollections lists the collections a pipeline joins via $lookup.
func lookupCollections(proposed domquery.Proposed) []string {
	if proposed.Type != domquery.TypeAggregate || proposed.Query.Kind() != domquery.Array {
		return nil
	}

	var joined []string
	seen := map[string]struct{}{}
	for _, stage := range proposed.Query.Elems() {
		lookup, ok := stage.Lookup("$lookup")
		if !ok {
			continue
		}
		from, ok := lookup.Lookup("from")
		if !ok || from.Kind() != domquery.String {
			continue
		}
		name := from.Str()
		if _, dup := seen[name]; dup || name == proposed.Collection {
			continue
		}
		joined = append(joined, name)
		seen[name] = struct{}{}
	}
	return joined
}

// fieldNames lists the keys of the first result document, sorted.
func fieldNames(results []map[string]any) []string {
	if len(results) == 0 {
		return nil
	}
	fields := make([]string, 0, len(results[0]))
	for name := range results[0] {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}
