// Package leveldb is an ordered persistent engine over
// github.com/syndtr/goleveldb.
package leveldb

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const Name = "leveldb"

func init() {
	storage.Register(storage.Info{
		Name:          Name,
		Open:          Open,
		AllowEmptyKey: true,
		Ordered:       true,
	})
}

var readOpt = &opt.ReadOptions{}

// DB implements storage.Engine.
type DB struct {
	db     *leveldb.DB
	wo     *opt.WriteOptions
	closed atomic.Bool
}

// Open opens the directory at the mandatory "path" entry, recovering it
// when the manifest is corrupted. Optional entries: cache_size (bytes),
// sync.
func Open(cfg *config.Config) (storage.Engine, error) {
	if err := storage.RequireBinary(cfg); err != nil {
		return nil, err
	}
	path, err := cfg.RequireString("path")
	if err != nil {
		return nil, err
	}
	cacheSize, err := cfg.OptionalUint64("cache_size", 0)
	if err != nil {
		return nil, err
	}
	syncWrites, err := cfg.OptionalBool("sync", false)
	if err != nil {
		return nil, err
	}

	o := &opt.Options{}
	if cacheSize > 0 {
		o.BlockCacheCapacity = int(cacheSize / 2)
		o.WriteBuffer = int(cacheSize / 4)
	}
	db, err := leveldb.OpenFile(path, o)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		log.Storage.Warn().Str("engine", Name).Str("path", path).Err(err).Msg("recovering")
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	log.Storage.Debug().Str("engine", Name).Str("path", path).Msg("opened")
	return &DB{db: db, wo: &opt.WriteOptions{Sync: syncWrites}}, nil
}

func (d *DB) Put(key, value []byte) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	return d.db.Put(key, value, d.wo)
}

// Get copies nothing: goleveldb already returns a fresh slice.
func (d *DB) Get(key []byte, fn func(value []byte)) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	v, err := d.db.Get(key, readOpt)
	if errors.Is(err, leveldb.ErrNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

func (d *DB) Has(key []byte) (bool, error) {
	if d.closed.Load() {
		return false, storage.ErrClosed
	}
	return d.db.Has(key, readOpt)
}

func (d *DB) Delete(key []byte) error {
	ok, err := d.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return d.db.Delete(key, d.wo)
}

func (d *DB) Scan(r storage.Range, fn storage.Visitor) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if r.Empty(bytes.Compare) {
		return nil
	}

	var rng util.Range
	if r.HasLower {
		rng.Start = r.Lower
	}
	if r.HasUpper {
		if len(r.Upper) == 0 {
			return nil
		}
		rng.Limit = r.Upper
	}
	it := d.db.NewIterator(&rng, readOpt)
	defer it.Release()

	for it.Next() {
		if !r.AfterLower(bytes.Compare, it.Key()) {
			continue
		}
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

// Defrag compacts the whole key space.
func (d *DB) Defrag(startPercent, amountPercent float64) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if amountPercent == 0 {
		return nil
	}
	if err := d.db.CompactRange(util.Range{}); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
	}
	return nil
}

func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}
