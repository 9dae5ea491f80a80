package db

import (
	"errors"
	"syscall"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
)

// statusOf maps an engine error onto the status taxonomy. Errors that match
// no sentinel are unknown.
func statusOf(err error) status.Status {
	if err == nil {
		return status.OK
	}
	var st status.Status
	if errors.As(err, &st) {
		return st
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.NotFound
	case errors.Is(err, storage.ErrNotSupported):
		return status.NotSupported
	case errors.Is(err, storage.ErrInvalidArgument),
		errors.Is(err, storage.ErrClosed),
		errors.Is(err, config.ErrConsumed):
		return status.InvalidArgument
	case errors.Is(err, storage.ErrOutOfMemory), errors.Is(err, syscall.ENOSPC):
		return status.OutOfMemory
	case errors.Is(err, storage.ErrComparatorMismatch):
		return status.ComparatorMismatch
	case errors.Is(err, storage.ErrDefrag):
		return status.DefragError
	case errors.Is(err, storage.ErrUnknownEngine):
		return status.WrongEngineName
	case errors.Is(err, config.ErrMissingEntry), errors.Is(err, config.ErrMalformed):
		return status.ConfigParsingError
	case errors.Is(err, config.ErrWrongType):
		return status.ConfigTypeError
	}
	return status.UnknownError
}
