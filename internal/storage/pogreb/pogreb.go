// Package pogreb is a hash-indexed persistent engine over
// github.com/akrylysov/pogreb. The index keeps no key order, so only
// unbounded scans are supported.
package pogreb

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akrylysov/pogreb"
	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
)

const Name = "pogreb"

func init() {
	storage.Register(storage.Info{
		Name: Name,
		Open: Open,
	})
}

// DB implements storage.Engine.
type DB struct {
	db     *pogreb.DB
	closed atomic.Bool
}

// Open opens the directory at the mandatory "path" entry. With "sync" set
// every write is fsynced, otherwise the log is synced once a second.
func Open(cfg *config.Config) (storage.Engine, error) {
	if err := storage.RequireBinary(cfg); err != nil {
		return nil, err
	}
	path, err := cfg.RequireString("path")
	if err != nil {
		return nil, err
	}
	syncWrites, err := cfg.OptionalBool("sync", false)
	if err != nil {
		return nil, err
	}

	opts := &pogreb.Options{BackgroundSyncInterval: time.Second}
	if syncWrites {
		opts.BackgroundSyncInterval = -1
	}
	db, err := pogreb.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("pogreb: open %s: %w", path, err)
	}
	log.Storage.Debug().Str("engine", Name).Str("path", path).Msg("opened")
	return &DB{db: db}, nil
}

func (d *DB) Put(key, value []byte) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", storage.ErrInvalidArgument)
	}
	return d.db.Put(key, value)
}

func (d *DB) Get(key []byte, fn func(value []byte)) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	v, err := d.db.Get(key)
	if err != nil {
		return err
	}
	if v == nil {
		// nil is also how an empty value reads back
		ok, err := d.db.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		v = []byte{}
	}
	fn(v)
	return nil
}

func (d *DB) Has(key []byte) (bool, error) {
	if d.closed.Load() {
		return false, storage.ErrClosed
	}
	return d.db.Has(key)
}

func (d *DB) Delete(key []byte) error {
	ok, err := d.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return d.db.Delete(key)
}

func (d *DB) Scan(r storage.Range, fn storage.Visitor) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if r.Bounded() {
		return fmt.Errorf("%w: %s scans bounded ranges", storage.ErrNotSupported, Name)
	}
	it := d.db.Items()
	for {
		key, value, err := it.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(key, value) {
			return nil
		}
	}
}

// Defrag compacts the data files. pogreb picks the segments to rewrite on
// its own, so the percentages only gate whether work is requested.
func (d *DB) Defrag(startPercent, amountPercent float64) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if amountPercent == 0 {
		return nil
	}
	res, err := d.db.Compact()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
	}
	log.Storage.Debug().Str("engine", Name).
		Int("segments", res.CompactedSegments).Int("reclaimed_bytes", int(res.ReclaimedBytes)).
		Msg("compacted")
	return nil
}

func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}
