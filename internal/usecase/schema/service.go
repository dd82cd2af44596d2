package schema

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
	"github.com/kestrel-data/nlmongo/internal/metrics"
)

// Service extracts the database schema and the relationships inferred from it.
type Service struct {
	repo          Repository
	detector      Detector
	minConfidence float64
	logger        *zap.Logger
}

// New creates a schema service.
func New(repo Repository, detector Detector, minConfidence float64, logger *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		detector:      detector,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Describe returns the current schema snapshot together with the inferred
// relationships. Relationship detection never fails the call: a snapshot
// without relationships is still useful to every consumer.
func (s *Service) Describe(ctx context.Context) (domschema.Snapshot, []inference.Relationship, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return domschema.Snapshot{}, nil, fmt.Errorf("extract schema: %w", err)
	}

	start := time.Now()
	rels := s.detector.DetectAll(ctx, snap, s.minConfidence)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	metrics.RelationshipsDetected.Set(float64(len(rels)))

	s.logger.Debug("schema described",
		zap.Int("collections", snap.Len()),
		zap.Int("relationships", len(rels)),
	)
	return snap, rels, nil
}
