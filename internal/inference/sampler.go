package inference

import (
	"context"

	"go.uber.org/zap"
)

// DefaultSampleSize bounds how many documents each side of an overlap check
// draws from storage.
const DefaultSampleSize = 100

// Sampler measures empirical value overlap between two (collection, field)
// pairs by sampling bounded document sets from a storage collaborator.
type Sampler struct {
	source     ValueSource
	sampleSize int
	logger     *zap.Logger
}

var _ OverlapSampler = (*Sampler)(nil)

// NewSampler creates an overlap sampler. sampleSize <= 0 falls back to
// DefaultSampleSize.
func NewSampler(source ValueSource, sampleSize int, logger *zap.Logger) *Sampler {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{source: source, sampleSize: sampleSize, logger: logger}
}

// Overlap returns |source values ∩ target values| / |source values|, clamped
// to at most 1.0. It returns 0.0 when either side samples empty, and treats
// any sampling failure as overlap 0.0 for this candidate only — a failure
// never aborts the surrounding inference pass.
func (s *Sampler) Overlap(
	ctx context.Context, sourceCollection, sourceField, targetCollection, targetField string,
) float64 {
	sourceValues, ok := s.distinct(ctx, sourceCollection, sourceField)
	if !ok || len(sourceValues) == 0 {
		return 0.0
	}

	targetValues, ok := s.distinct(ctx, targetCollection, targetField)
	if !ok || len(targetValues) == 0 {
		return 0.0
	}

	matches := 0
	for v := range sourceValues {
		if _, hit := targetValues[v]; hit {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(sourceValues))
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}

func (s *Sampler) distinct(ctx context.Context, collection, field string) (map[string]struct{}, bool) {
	values, err := s.source.SampleFieldValues(ctx, collection, field, s.sampleSize)
	if err != nil {
		s.logger.Warn("value overlap sampling failed",
			zap.String("collection", collection),
			zap.String("field", field),
			zap.Error(err),
		)
		return nil, false
	}

	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, true
}
