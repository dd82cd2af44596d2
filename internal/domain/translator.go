package domain

import (
	"context"

	"github.com/kestrel-data/nlmongo/internal/domain/query"
	"github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

// KeyPrefix namespaces every cache key written by this service.
const KeyPrefix = "nlmongo:"

// Translator turns a natural-language question into a proposed query, given
// the database schema and the relationships inferred from it.
type Translator interface {
	Translate(
		ctx context.Context,
		question string,
		snap schema.Snapshot,
		rels []inference.Relationship,
	) (query.Proposed, error)
}
