// Package bolt is an ordered persistent engine over go.etcd.io/bbolt. All
// records live in a single bucket of the database file named by "path".
package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
	"go.etcd.io/bbolt"
)

const Name = "bolt"

var bucket = []byte("kvgate")

func init() {
	storage.Register(storage.Info{
		Name:    Name,
		Open:    Open,
		Ordered: true,
	})
}

// DB implements storage.Engine.
type DB struct {
	db     *bbolt.DB
	closed atomic.Bool
}

// Open opens or creates the database file at the mandatory "path" entry.
// Optional entries: sync.
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

	db, err := bbolt.Open(path, 0600, &bbolt.Options{NoSync: !syncWrites})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	log.Storage.Debug().Str("engine", Name).Str("path", path).Msg("opened")
	return &DB{db: db}, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, bbolt.ErrKeyRequired), errors.Is(err, bbolt.ErrKeyTooLarge),
		errors.Is(err, bbolt.ErrValueTooLarge):
		return fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	}
	return err
}

func (d *DB) Put(key, value []byte) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	return translate(d.db.Update(func(tx *bbolt.Tx) error {
		// bbolt stores a nil value as a nested-bucket marker
		if value == nil {
			value = []byte{}
		}
		return tx.Bucket(bucket).Put(key, value)
	}))
}

func (d *DB) Get(key []byte, fn func(value []byte)) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		fn(v)
		return nil
	})
}

func (d *DB) Has(key []byte) (exists bool, err error) {
	if d.closed.Load() {
		return false, storage.ErrClosed
	}
	err = d.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucket).Get(key) != nil
		return nil
	})
	return
}

func (d *DB) Delete(key []byte) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get(key) == nil {
			return storage.ErrNotFound
		}
		return b.Delete(key)
	})
}

func (d *DB) Scan(r storage.Range, fn storage.Visitor) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	if r.Empty(bytes.Compare) {
		return nil
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		var k, v []byte
		if r.HasLower {
			k, v = c.Seek(r.Lower)
		} else {
			k, v = c.First()
		}
		for ; k != nil; k, v = c.Next() {
			if !r.AfterLower(bytes.Compare, k) {
				continue
			}
			if !r.BeforeUpper(bytes.Compare, k) || !fn(k, v) {
				return nil
			}
		}
		return nil
	})
}

func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}
