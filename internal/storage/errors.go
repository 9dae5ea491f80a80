package storage

import "errors"

var (
	// ErrNotFound is returned when a key doesn't exist.
	ErrNotFound = errors.New("storage: key not found")

	// ErrNotSupported is returned for operations an engine does not implement.
	ErrNotSupported = errors.New("storage: operation not supported")

	// ErrInvalidArgument is returned for arguments the engine cannot accept,
	// such as keys over its size limit.
	ErrInvalidArgument = errors.New("storage: invalid argument")

	// ErrOutOfMemory is returned when the engine's space is exhausted.
	ErrOutOfMemory = errors.New("storage: out of memory")

	// ErrComparatorMismatch is returned when persisted data was written with
	// a different comparator than the one configured.
	ErrComparatorMismatch = errors.New("storage: comparator mismatch")

	// ErrDefrag is returned when a defragmentation run fails.
	ErrDefrag = errors.New("storage: defragmentation failed")

	// ErrClosed is returned by engines used after Close.
	ErrClosed = errors.New("storage: engine closed")

	// ErrUnknownEngine is returned by Lookup for unregistered names.
	ErrUnknownEngine = errors.New("storage: unknown engine")
)
