package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals empty or malformed search input
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidPagination signals a page or size below 1
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrIndexUnavailable signals the corpus could not be reached; callers may retry
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrManifestMalformed signals an unparseable manifest row
	ErrManifestMalformed = errors.New("manifest malformed")
	// ErrStoryNotFound signals a story outside the catalog or missing on disk
	ErrStoryNotFound = errors.New("story not found")
	// ErrStoryMalformed signals a story document that cannot be decoded
	ErrStoryMalformed = errors.New("story malformed")
	// ErrVerseNotFound signals a coordinate with no corpus rows
	ErrVerseNotFound = errors.New("verse not found")
)

// ManifestError pinpoints the manifest row and column that failed to parse
type ManifestError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ManifestError) Error() string {
	msg := fmt.Sprintf("%s: line %d: %s %q", ErrManifestMalformed.Error(), e.Line, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ManifestError) Unwrap() error { return ErrManifestMalformed }

// Unavailable wraps a corpus failure as ErrIndexUnavailable, keeping the cause
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIndexUnavailable, err)
}
