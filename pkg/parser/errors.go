package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for filenames without a recognized extension.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("parse error")

	// ErrEmptyText is the cause attached to a *ParseError when a document
	// yields no text other than whitespace.
	ErrEmptyText = errors.New("document contains no text")
)

// ParseError is a format-specific extraction failure with its underlying cause.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrParse) match any *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func newParseError(format Format, err error) error {
	return &ParseError{Format: format, Err: err}
}
