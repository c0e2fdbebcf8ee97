// Package apperr defines the error kinds shared across dailynote packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrMalformedDocument reports a document whose section headings violate
	// the Today/Archive layout. No mutation is written when it is returned.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrEmptyContent rejects an empty submission before any side effect.
	ErrEmptyContent = errors.New("new content cannot be empty")
	// ErrArchiveWrite wraps any I/O failure while persisting an archive entry.
	ErrArchiveWrite = errors.New("archive write failed")
)
