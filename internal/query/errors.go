package query

import "errors"

var (
	// ErrUnsupported is returned for valid SQL outside the supported subset.
	ErrUnsupported = errors.New("query: unsupported statement")

	// ErrBadLiteral is returned for values that are not string, integer or
	// hex literals.
	ErrBadLiteral = errors.New("query: unsupported literal")
)
