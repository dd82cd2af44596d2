package inference

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain/schema"
)

const (
	idDetectionConfidence         = 0.9
	collectionNameConfidence      = 0.7
	nameDetectionBaseConfidence   = 0.75
	nameDetectionOverlapThreshold = 0.2

	defaultMaxConcurrency = 8
)

// prefixSynonyms translates common entity aliases before prefix matching, so
// customer_name can resolve against a users collection.
var prefixSynonyms = map[string]string{
	"customer": "user",
	"client":   "user",
	"item":     "product",
	"good":     "product",
}

// commonFields are generic attribute names whose cross-collection value
// overlap suggests a shared dimension rather than a foreign key.
var commonFields = []string{"city", "location", "category", "name", "email", "status"}

// Engine runs the relationship detectors over a schema snapshot. It holds no
// state across invocations; every call is a full pass from scratch.
type Engine struct {
	sampler        OverlapSampler
	logger         *zap.Logger
	maxConcurrency int
}

// NewEngine creates an inference engine over the given overlap sampler.
func NewEngine(sampler OverlapSampler, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{sampler: sampler, logger: logger, maxConcurrency: defaultMaxConcurrency}
}

// WithMaxConcurrency bounds how many overlap samples run in parallel.
func (e *Engine) WithMaxConcurrency(n int) *Engine {
	if n > 0 {
		e.maxConcurrency = n
	}
	return e
}

// DetectAll runs the ID-based, name-based, and common-field detectors in that
// order, deduplicates on the directional (source collection, source field,
// target collection, target field) key, and keeps only relationships at or
// above minConfidence. The result is deterministic for a given snapshot and
// sampler regardless of sampling concurrency.
func (e *Engine) DetectAll(ctx context.Context, snap schema.Snapshot, minConfidence float64) []Relationship {
	var result []Relationship
	seen := map[pairKey]struct{}{}

	for _, rel := range e.detectIDRelationships(snap) {
		if _, dup := seen[rel.key()]; dup || rel.Confidence < minConfidence {
			continue
		}
		result = append(result, rel)
		seen[rel.key()] = struct{}{}
	}

	// Name-based candidates are verified against sampled value overlap
	// before they count.
	var nameCandidates []Relationship
	for _, cand := range e.nameBasedCandidates(snap) {
		if _, dup := seen[cand.key()]; dup {
			continue
		}
		nameCandidates = append(nameCandidates, cand)
	}
	overlaps := e.sampleOverlaps(ctx, nameCandidates)
	for i, cand := range nameCandidates {
		overlap := overlaps[i]
		if overlap <= nameDetectionOverlapThreshold {
			continue
		}
		cand.Confidence = clampConfidence((cand.Confidence + overlap) / 2)
		if cand.Confidence < minConfidence {
			continue
		}
		if _, dup := seen[cand.key()]; dup {
			continue
		}
		result = append(result, cand)
		seen[cand.key()] = struct{}{}
	}

	// Common-field pairs become many_to_many associations scored purely by
	// their observed overlap.
	var commonCandidates []Relationship
	for _, cand := range e.commonFieldCandidates(snap) {
		if _, dup := seen[cand.key()]; dup {
			continue
		}
		if _, dup := seen[cand.reverseKey()]; dup {
			continue
		}
		commonCandidates = append(commonCandidates, cand)
		seen[cand.key()] = struct{}{}
	}
	commonOverlaps := e.sampleOverlaps(ctx, commonCandidates)
	for i, cand := range commonCandidates {
		overlap := commonOverlaps[i]
		if overlap < minConfidence {
			continue
		}
		cand.Confidence = clampConfidence(overlap)
		result = append(result, cand)
	}

	e.logger.Info("relationship detection finished",
		zap.Int("collections", snap.Len()),
		zap.Int("relationships", len(result)),
	)
	return result
}

// detectIDRelationships finds foreign-key style references from field names:
// fields ending in _id resolved against collection names (confidence 0.9) and
// fields literally named after another collection (confidence 0.7). Both
// checks run for every (collection, field) pair.
func (e *Engine) detectIDRelationships(snap schema.Snapshot) []Relationship {
	var rels []Relationship

	for _, source := range snap.Collections() {
		for _, field := range source.Fields {
			name := field.Name

			if strings.HasSuffix(name, "_id") && name != "_id" {
				candidate := strings.TrimSuffix(name, "_id")
				if target, ok := resolveTargetCollection(snap, candidate); ok {
					if targetField, ok := resolveTargetIDField(target, name, candidate); ok {
						rels = append(rels, Relationship{
							SourceCollection: source.Name,
							SourceField:      name,
							TargetCollection: target.Name,
							TargetField:      targetField,
							Type:             OneToMany,
							Confidence:       idDetectionConfidence,
						})
					}
				}
			}

			for _, target := range snap.Collections() {
				if target.Name == source.Name {
					continue
				}
				if name != target.Name &&
					name != strings.TrimRight(target.Name, "s") &&
					name+"s" != target.Name {
					continue
				}
				targetField := "id"
				if !target.HasField("id") {
					targetField = "_id"
				}
				rels = append(rels, Relationship{
					SourceCollection: source.Name,
					SourceField:      name,
					TargetCollection: target.Name,
					TargetField:      targetField,
					Type:             OneToMany,
					Confidence:       collectionNameConfidence,
				})
			}
		}
	}
	return rels
}

// resolveTargetCollection tries the candidate name exactly, pluralized, and
// singularized, in that order.
func resolveTargetCollection(snap schema.Snapshot, candidate string) (schema.Collection, bool) {
	if c, ok := snap.Collection(candidate); ok {
		return c, true
	}
	if c, ok := snap.Collection(candidate + "s"); ok {
		return c, true
	}
	if strings.HasSuffix(candidate, "s") {
		if c, ok := snap.Collection(strings.TrimSuffix(candidate, "s")); ok {
			return c, true
		}
	}
	return schema.Collection{}, false
}

// resolveTargetIDField tries a literal id field, the source field name
// itself, and <candidate>_id, in that order.
func resolveTargetIDField(target schema.Collection, sourceField, candidate string) (string, bool) {
	switch {
	case target.HasField("id"):
		return "id", true
	case target.HasField(sourceField):
		return sourceField, true
	case target.HasField(candidate + "_id"):
		return candidate + "_id", true
	default:
		return "", false
	}
}

// nameBasedCandidates proposes references from prefixed field names such as
// customer_name → users.name, at base confidence 0.75. Candidates must later
// clear the value-overlap gate before they are emitted.
func (e *Engine) nameBasedCandidates(snap schema.Snapshot) []Relationship {
	var cands []Relationship

	for _, source := range snap.Collections() {
		for _, field := range source.Fields {
			name := field.Name
			if !strings.Contains(name, "_") {
				continue
			}
			prefix, suffix, _ := strings.Cut(name, "_")
			if translated, ok := prefixSynonyms[prefix]; ok {
				prefix = translated
			}

			for _, target := range snap.Collections() {
				if target.Name == source.Name {
					continue
				}
				if !strings.HasPrefix(target.Name, prefix) &&
					strings.TrimRight(target.Name, "s") != prefix {
					continue
				}
				if !target.HasField(suffix) {
					continue
				}
				cands = append(cands, Relationship{
					SourceCollection: source.Name,
					SourceField:      name,
					TargetCollection: target.Name,
					TargetField:      suffix,
					Type:             OneToMany,
					Confidence:       nameDetectionBaseConfidence,
				})
			}
		}
	}
	return cands
}

// commonFieldCandidates pairs up collections sharing a generic field name,
// each unordered pair considered once, in snapshot order.
func (e *Engine) commonFieldCandidates(snap schema.Snapshot) []Relationship {
	var cands []Relationship

	for _, field := range commonFields {
		var holders []string
		for _, c := range snap.Collections() {
			if c.HasField(field) {
				holders = append(holders, c.Name)
			}
		}
		for i := 0; i < len(holders); i++ {
			for j := i + 1; j < len(holders); j++ {
				cands = append(cands, Relationship{
					SourceCollection: holders[i],
					SourceField:      field,
					TargetCollection: holders[j],
					TargetField:      field,
					Type:             ManyToMany,
				})
			}
		}
	}
	return cands
}

// sampleOverlaps measures value overlap for each candidate concurrently,
// writing into indexed slots so the merged result is order-stable no matter
// how the goroutines interleave.
func (e *Engine) sampleOverlaps(ctx context.Context, cands []Relationship) []float64 {
	overlaps := make([]float64, len(cands))
	if len(cands) == 0 {
		return overlaps
	}

	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup
	for i, cand := range cands {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, cand Relationship) {
			defer wg.Done()
			defer func() { <-sem }()
			overlaps[i] = e.sampler.Overlap(ctx,
				cand.SourceCollection, cand.SourceField,
				cand.TargetCollection, cand.TargetField,
			)
		}(i, cand)
	}
	wg.Wait()
	return overlaps
}
