package safety

import (
	"errors"
	"fmt"
)

// Category tags a validation rejection. Categories surface to API callers as
// machine-readable rejection codes; messages may carry more detail.
type Category string

const (
	// InvalidName rejects malformed collection or field names.
	InvalidName Category = "invalid_name"
	// InvalidStructure rejects inputs with the wrong shape (non-object
	// filters, multi-key stages, over-deep nesting).
	InvalidStructure Category = "invalid_structure"
	// UnknownOperator rejects $-prefixed filter keys outside the allow-list.
	UnknownOperator Category = "unknown_operator"
	// DangerousOperator rejects operators and stages that execute server-side
	// code ($where, $function, $accumulator).
	DangerousOperator Category = "dangerous_operator"
	// UnknownStage rejects pipeline stages outside the allow-list.
	UnknownStage Category = "unknown_stage"
	// MissingJoinSpec rejects $lookup stages with neither an equality join nor
	// a sub-pipeline.
	MissingJoinSpec Category = "missing_join_spec"
	// InvalidValue rejects sort directions, projection flags, and regex
	// patterns outside their permitted values.
	InvalidValue Category = "invalid_value"
)

// Error is a typed validation rejection. Rejections are deterministic for a
// given input; retrying never helps.
type Error struct {
	Category Category
	Message  string
}

func (e *Error) Error() string {
	return string(e.Category) + ": " + e.Message
}

func reject(cat Category, format string, args ...any) error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf extracts the rejection category from an error chain, if any.
func CategoryOf(err error) (Category, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Category, true
	}
	return "", false
}
