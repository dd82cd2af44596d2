// Package inference discovers likely cross-collection references in a schema
// snapshot. Three heuristic detectors (ID suffixes, name prefixes, shared
// generic fields) run in a fixed order; name- and common-field candidates are
// verified against empirical value overlap sampled from storage. The engine
// is stateless and best-effort: sampling failures degrade the affected
// candidate to confidence zero, never the whole pass.
package inference

// RelationType classifies an inferred relationship.
type RelationType string

const (
	// OneToOne marks a one-to-one reference.
	OneToOne RelationType = "one_to_one"
	// OneToMany marks a foreign-key style reference.
	OneToMany RelationType = "one_to_many"
	// ManyToMany marks a shared-attribute association.
	ManyToMany RelationType = "many_to_many"
)

// Relationship is one inferred cross-collection reference with a confidence
// score in [0,1]. This struct is the single canonical representation; its
// JSON tags are the wire shape.
type Relationship struct {
	SourceCollection string       `json:"source_collection"`
	SourceField      string       `json:"source_field"`
	TargetCollection string       `json:"target_collection"`
	TargetField      string       `json:"target_field"`
	Type             RelationType `json:"relationship_type"`
	Confidence       float64      `json:"confidence_score"`
}

// pairKey is the directional identity of a relationship, used for
// deduplication across detector passes.
type pairKey struct {
	sourceCollection string
	sourceField      string
	targetCollection string
	targetField      string
}

func (r Relationship) key() pairKey {
	return pairKey{r.SourceCollection, r.SourceField, r.TargetCollection, r.TargetField}
}

func (r Relationship) reverseKey() pairKey {
	return pairKey{r.TargetCollection, r.TargetField, r.SourceCollection, r.SourceField}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
