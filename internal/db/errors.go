package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op constants map to database command names for error context.
const (
	OpFind            = "find"
	OpAggregate       = "aggregate"
	OpInsert          = "insert"
	OpCount           = "count"
	OpDrop            = "drop"
	OpListCollections = "listCollections"
	OpGet             = "GET"
	OpSet             = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
