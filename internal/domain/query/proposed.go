package query

// Type distinguishes the two execution shapes a translator may propose.
type Type string

const (
	// TypeFind is a filter/projection/sort query.
	TypeFind Type = "find"
	// TypeAggregate is an aggregation pipeline.
	TypeAggregate Type = "aggregate"
)

// Proposed is a candidate query produced by an untrusted translator. Nothing
// in it is trusted until the safety validator has accepted every part.
type Proposed struct {
	Type       Type   `json:"query_type"`
	Collection string `json:"collection"`
	// Query holds the filter object for find queries or the stage array for
	// aggregations.
	Query      Node  `json:"query"`
	Sort       Node  `json:"sort,omitempty"`
	Projection Node  `json:"projection,omitempty"`
	Limit      int64 `json:"limit,omitempty"`
}
