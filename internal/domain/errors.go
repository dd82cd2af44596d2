package domain

import "errors"

var (
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrEmptyDataset signals an uploaded file with no usable rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrUnsupportedFileType signals an upload that is neither CSV nor JSON.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrTranslatorUnavailable signals that no query translator is configured.
	ErrTranslatorUnavailable = errors.New("no query translator configured")
	// ErrTranslatorError signals a failure of the query-translation provider.
	ErrTranslatorError = errors.New("query translation provider error")
	// ErrInvalidTranslation signals a malformed query proposal from the translator.
	ErrInvalidTranslation = errors.New("invalid query translation")
	// ErrQueryFailed signals a storage-side query execution failure.
	ErrQueryFailed = errors.New("query execution failed")
)
