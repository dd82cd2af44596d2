package schema

import (
	"context"

	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

// Repository defines the storage contract for schema extraction.
type Repository interface {
	Snapshot(ctx context.Context) (domschema.Snapshot, error)
}

// Detector finds relationships between collections in a snapshot.
type Detector interface {
	DetectAll(ctx context.Context, snap domschema.Snapshot, minConfidence float64) []inference.Relationship
}
