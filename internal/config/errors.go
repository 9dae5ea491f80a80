package config

import "errors"

var (
	// ErrMissingEntry is returned when a mandatory entry is absent.
	ErrMissingEntry = errors.New("config: missing entry")

	// ErrWrongType is returned when an entry exists with another type.
	ErrWrongType = errors.New("config: entry has wrong type")

	// ErrMalformed is returned when a config document cannot be decoded.
	ErrMalformed = errors.New("config: malformed document")

	// ErrConsumed is returned when a config is used after being handed to open.
	ErrConsumed = errors.New("config: already consumed")
)
