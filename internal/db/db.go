// Package db is the boundary in front of the storage engines.
//
// Every method of *DB is safe to call on a nil or closed handle: the guard
// rejects it with status.InvalidArgument before any engine code runs.
// Engine results are normalised into a status.Status, which is the only
// error channel of this package.
package db

import (
	"fmt"
	"sync/atomic"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
)

// handle is the live state behind a DB. It is never partially built.
type handle struct {
	engine storage.Engine
	info   storage.Info
}

// DB is an open engine.
type DB struct {
	h atomic.Pointer[handle]
}

// Open opens the engine registered as engine. Ownership of cfg moves into
// Open: on return, successful or not, cfg is consumed and must not be used
// again. A nil cfg is an empty configuration.
func Open(engine string, cfg *config.Config) (*DB, status.Status) {
	own, err := cfg.Take()
	if err != nil {
		return nil, status.InvalidArgument
	}
	defer func() {
		if err := own.Release(); err != nil {
			log.DB.Warn().Err(err).Str("engine", engine).Msg("config release")
		}
	}()

	if engine == "" {
		return nil, status.InvalidArgument
	}
	info, err := storage.Lookup(engine)
	if err != nil {
		return nil, status.WrongEngineName
	}

	var e storage.Engine
	st := dispatch("open", func() (err error) {
		e, err = info.Open(own)
		return err
	})
	if st != status.OK {
		return nil, st
	}
	if e == nil {
		log.DB.Error().Str("engine", engine).Msg("factory returned no engine")
		return nil, status.UnknownError
	}

	db := &DB{}
	db.h.Store(&handle{engine: e, info: info})
	log.DB.Info().Str("engine", engine).Strs("config", own.Keys()).Msg("opened")
	return db, status.OK
}

// Close releases the engine. Only the first Close of a handle reaches the
// engine; later calls return status.InvalidArgument.
func (db *DB) Close() status.Status {
	if db == nil {
		return status.InvalidArgument
	}
	h := db.h.Swap(nil)
	if h == nil {
		return status.InvalidArgument
	}
	st := dispatch("close", h.engine.Close)
	log.DB.Info().Str("engine", h.info.Name).Stringer("status", st).Msg("closed")
	return st
}

// Engine returns the name of the open engine, or "" for an invalid handle.
func (db *DB) Engine() string {
	h, st := db.guard()
	if st != status.OK {
		return ""
	}
	return h.info.Name
}

// guard resolves the handle. It does no I/O and allocates nothing.
func (db *DB) guard() (*handle, status.Status) {
	if db == nil {
		return nil, status.InvalidArgument
	}
	h := db.h.Load()
	if h == nil {
		return nil, status.InvalidArgument
	}
	return h, status.OK
}

// guardKey is guard plus the engine's zero-length key policy.
func (db *DB) guardKey(key []byte) (*handle, status.Status) {
	h, st := db.guard()
	if st != status.OK {
		return nil, st
	}
	if len(key) == 0 && !h.info.AllowEmptyKey {
		return nil, status.InvalidArgument
	}
	return h, status.OK
}

// callbackPanic marks a panic raised by caller code so dispatch lets it
// through instead of turning it into a status.
type callbackPanic struct {
	value any
}

// dispatch runs fn and maps its outcome onto a status. Engine panics are
// recovered and reported as status.UnknownError.
func dispatch(op string, fn func() error) (st status.Status) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cp, ok := r.(callbackPanic); ok {
			panic(cp.value)
		}
		log.DB.Error().Str("op", op).Str("panic", fmt.Sprint(r)).Msg("engine panicked")
		st = status.UnknownError
	}()

	err := fn()
	st = statusOf(err)
	if st != status.OK && st != status.NotFound {
		log.DB.Debug().Str("op", op).Err(err).Stringer("status", st).Msg("engine failure")
	}
	return st
}

// protect runs caller code, tagging any panic so dispatch re-raises it.
func protect(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			panic(callbackPanic{value: r})
		}
	}()
	fn()
}
