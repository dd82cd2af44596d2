package insights

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/domain/insight"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/safety"
)

// Service produces per-field statistical insights for a collection.
type Service struct {
	repo    Repository
	checker CollectionChecker
	logger  *zap.Logger
}

// New creates an insights service.
func New(repo Repository, checker CollectionChecker, logger *zap.Logger) *Service {
	return &Service{repo: repo, checker: checker, logger: logger}
}

// Generate analyzes the given fields of a collection, or every field of its
// first document when none are named. Individual statistics are best-effort:
// a failing aggregation degrades that insight instead of failing the call.
func (s *Service) Generate(ctx context.Context, collection string, fields []string) ([]insight.ColumnInsight, error) {
	if err := safety.ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	exists, err := s.checker.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	if len(fields) == 0 {
		fields, err = s.repo.FirstDocumentFields(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("discover fields of %s: %w", collection, err)
		}
	} else {
		// Explicitly named fields must be valid; discovered ones are merely
		// skipped when they are not.
		for _, field := range fields {
			if err := safety.ValidateFieldName(field); err != nil {
				return nil, err
			}
		}
	}

	results := make([]insight.ColumnInsight, 0, len(fields))
	for _, field := range fields {
		if field == "_id" {
			continue
		}
		if err := safety.ValidateFieldName(field); err != nil {
			continue
		}
		results = append(results, s.analyzeField(ctx, collection, field))
	}
	return results, nil
}

func (s *Service) analyzeField(ctx context.Context, collection, field string) insight.ColumnInsight {
	result := insight.ColumnInsight{ColumnName: field, DataType: string(domschema.TagUnknown)}

	unique, nulls, err := s.repo.DistinctAndNullCounts(ctx, collection, field)
	if err != nil {
		s.warn("distinct counts", collection, field, err)
	} else {
		result.UniqueValues = unique
		result.NullCount = nulls
	}

	sample, ok, err := s.repo.FieldSample(ctx, collection, field)
	if err != nil {
		s.warn("field sample", collection, field, err)
	} else if ok {
		result.DataType = string(domschema.TagOf(sample))
	}

	if result.DataType == string(domschema.TagNumber) || result.DataType == string(domschema.TagDouble) {
		minVal, maxVal, avg, err := s.repo.NumericStats(ctx, collection, field)
		if err != nil {
			s.warn("numeric stats", collection, field, err)
		} else {
			result.MinValue = minVal
			result.MaxValue = maxVal
			result.AvgValue = avg
		}
	}

	ranked, err := s.repo.MostCommon(ctx, collection, field)
	if err != nil {
		s.warn("most common values", collection, field, err)
	} else {
		result.MostCommon = ranked
	}

	return result
}

func (s *Service) warn(stat, collection, field string, err error) {
	s.logger.Warn("insight statistic failed",
		zap.String("stat", stat),
		zap.String("collection", collection),
		zap.String("field", field),
		zap.Error(err),
	)
}
