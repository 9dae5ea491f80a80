// Package badger is an ordered persistent engine over
// github.com/dgraph-io/badger/v4. Badger rejects zero-length keys, so the
// engine is registered with that policy.
package badger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
)

const Name = "badger"

func init() {
	storage.Register(storage.Info{
		Name:    Name,
		Open:    Open,
		Ordered: true,
	})
}

// Engine implements storage.Engine.
type Engine struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open opens the directory at the mandatory "path" entry. Optional entries:
// cache_size (block cache bytes), sync.
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

	opts := badger.DefaultOptions(path).
		WithSyncWrites(syncWrites).
		WithLogger(nil)
	if cacheSize > 0 {
		opts = opts.WithBlockCacheSize(int64(cacheSize))
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", path, err)
	}
	log.Storage.Debug().Str("engine", Name).Str("path", path).Msg("opened")
	return &Engine{db: db}, nil
}

// translate maps badger errors onto the storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return storage.ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey), errors.Is(err, badger.ErrInvalidKey):
		return fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %v", storage.ErrOutOfMemory, err)
	}
	return err
}

func (e *Engine) Put(key, value []byte) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return translate(e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

func (e *Engine) Get(key []byte, fn func(value []byte)) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return translate(e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			fn(v)
			return nil
		})
	}))
}

func (e *Engine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, storage.ErrClosed
	}
	err := translate(e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	}))
	if err == storage.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (e *Engine) Delete(key []byte) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return translate(e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	}))
}

func (e *Engine) Scan(r storage.Range, fn storage.Visitor) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	cmp := storage.BinaryComparator.Compare
	if r.Empty(cmp) {
		return nil
	}
	return translate(e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		if r.HasLower {
			it.Seek(r.Lower)
		} else {
			it.Rewind()
		}
		for ; it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if !r.AfterLower(cmp, key) {
				continue
			}
			if !r.BeforeUpper(cmp, key) {
				return nil
			}
			next := true
			if err := item.Value(func(v []byte) error {
				next = fn(key, v)
				return nil
			}); err != nil {
				return err
			}
			if !next {
				return nil
			}
		}
		return nil
	}))
}

// Defrag runs one value-log GC pass with amountPercent as the discard
// ratio. Finding nothing to rewrite is not an error.
func (e *Engine) Defrag(startPercent, amountPercent float64) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	if amountPercent == 0 {
		return nil
	}
	ratio := amountPercent / 100
	if ratio >= 1 {
		ratio = 0.99
	}
	err := e.db.RunValueLogGC(ratio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
}

func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.db.Close()
}
