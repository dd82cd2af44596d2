// Package insight holds per-field statistical summaries of a collection.
package insight

// ValueCount is one entry of a most-common-values ranking.
type ValueCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// ColumnInsight summarizes a single field: cardinality, null count, numeric
// range when the field is numeric, and the top values by frequency.
type ColumnInsight struct {
	ColumnName   string       `json:"column_name"`
	DataType     string       `json:"data_type"`
	UniqueValues int64        `json:"unique_values"`
	NullCount    int64        `json:"null_count"`
	MinValue     any          `json:"min_value,omitempty"`
	MaxValue     any          `json:"max_value,omitempty"`
	AvgValue     *float64     `json:"avg_value,omitempty"`
	MostCommon   []ValueCount `json:"most_common,omitempty"`
}
