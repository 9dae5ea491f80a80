// Package btree implements an ordered in-memory engine on top of
// github.com/google/btree.
//
// When the "path" entry is set, every mutation is also appended to a
// write-ahead log which is replayed on open; Defrag rewrites the log with
// only the live records. The first log record stores the comparator name so
// reopening with a different ordering is refused.
package btree

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
	"github.com/myuser/kvgate/internal/storage/wal"
	"go.uber.org/multierr"
)

const (
	Name   = "btree"
	degree = 32
)

func init() {
	storage.Register(storage.Info{
		Name:          Name,
		Open:          Open,
		AllowEmptyKey: true,
		Ordered:       true,
	})
}

type item struct {
	key   []byte
	value []byte
}

// Store implements storage.Engine.
type Store struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[*item]
	cmp    *storage.Comparator
	wal    *wal.WAL
	quota  uint64
	used   uint64
	closed bool
}

// Open builds a Store from cfg. Recognised entries: path (optional WAL
// file), size (optional byte quota), sync, comparator.
func Open(cfg *config.Config) (storage.Engine, error) {
	cmp, err := storage.ComparatorFrom(cfg)
	if err != nil {
		return nil, err
	}
	quota, err := cfg.OptionalUint64("size", 0)
	if err != nil {
		return nil, err
	}
	path, err := cfg.OptionalString("path", "")
	if err != nil {
		return nil, err
	}
	syncWrites, err := cfg.OptionalBool("sync", false)
	if err != nil {
		return nil, err
	}

	s := New(cmp, quota)
	if path == "" {
		return s, nil
	}

	w, err := wal.Open(path, wal.Options{Sync: syncWrites})
	if err != nil {
		return nil, fmt.Errorf("btree: open wal: %w", err)
	}
	if err := s.recover(w); err != nil {
		return nil, multierr.Append(err, w.Close())
	}
	s.wal = w
	return s, nil
}

// New returns a volatile Store ordered by cmp. A zero quota means unlimited.
func New(cmp *storage.Comparator, quota uint64) *Store {
	if cmp == nil {
		cmp = storage.BinaryComparator
	}
	compare := cmp.Compare
	return &Store{
		tree: btree.NewG[*item](degree, func(a, b *item) bool {
			return compare(a.key, b.key) < 0
		}),
		cmp:   cmp,
		quota: quota,
	}
}

func (s *Store) recover(w *wal.WAL) error {
	sawHeader := false
	replayed := 0
	err := w.Iterate(func(r wal.Record) error {
		if !sawHeader {
			if r.Op != wal.OpHeader {
				return fmt.Errorf("btree: %w: missing header", wal.ErrCorrupted)
			}
			if string(r.Key) != s.cmp.Name {
				return fmt.Errorf("%w: log written with %q, configured %q",
					storage.ErrComparatorMismatch, r.Key, s.cmp.Name)
			}
			sawHeader = true
			return nil
		}
		replayed++
		switch r.Op {
		case wal.OpPut:
			return s.putLocked(clone(r.Key), clone(r.Value))
		case wal.OpDelete:
			s.deleteLocked(r.Key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !sawHeader {
		return w.Append(wal.Record{Op: wal.OpHeader, Key: []byte(s.cmp.Name)})
	}
	log.Storage.Debug().Str("engine", Name).Int("records", replayed).Msg("wal replayed")
	return nil
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}

// fits checks the byte quota for storing key/value, accounting for the
// record it would replace.
func (s *Store) fits(key, value []byte) (free uint64, err error) {
	if old, ok := s.tree.Get(&item{key: key}); ok {
		free = uint64(len(old.key) + len(old.value))
	}
	need := uint64(len(key) + len(value))
	if s.quota > 0 && s.used-free+need > s.quota {
		return 0, fmt.Errorf("%w: %d of %d bytes in use", storage.ErrOutOfMemory, s.used, s.quota)
	}
	return free, nil
}

func (s *Store) putLocked(key, value []byte) error {
	free, err := s.fits(key, value)
	if err != nil {
		return err
	}
	s.tree.ReplaceOrInsert(&item{key: key, value: value})
	s.used = s.used - free + uint64(len(key)+len(value))
	return nil
}

func (s *Store) deleteLocked(key []byte) bool {
	old, ok := s.tree.Delete(&item{key: key})
	if ok {
		s.used -= uint64(len(old.key) + len(old.value))
	}
	return ok
}

// Put writes a key-value pair.
func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	k, v := clone(key), clone(value)
	if s.wal != nil {
		// a rejected put must leave no trace in the log
		if _, err := s.fits(k, v); err != nil {
			return err
		}
		if err := s.wal.Append(wal.Record{Op: wal.OpPut, Key: k, Value: v}); err != nil {
			return fmt.Errorf("btree: wal append: %w", err)
		}
	}
	return s.putLocked(k, v)
}

func (s *Store) Get(key []byte, fn func(value []byte)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}

	it, ok := s.tree.Get(&item{key: key})
	if !ok {
		return storage.ErrNotFound
	}
	fn(it.value)
	return nil
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	return s.tree.Has(&item{key: key}), nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	if !s.tree.Has(&item{key: key}) {
		return storage.ErrNotFound
	}
	if s.wal != nil {
		if err := s.wal.Append(wal.Record{Op: wal.OpDelete, Key: key}); err != nil {
			return fmt.Errorf("btree: wal append: %w", err)
		}
	}
	s.deleteLocked(key)
	return nil
}

// Scan holds the read lock for the whole traversal; fn must not write to
// the same Store.
func (s *Store) Scan(r storage.Range, fn storage.Visitor) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}

	cmp := s.cmp.Compare
	if r.Empty(cmp) {
		return nil
	}
	visit := func(it *item) bool {
		if !r.BeforeUpper(cmp, it.key) {
			return false
		}
		if !r.AfterLower(cmp, it.key) {
			return true
		}
		return fn(it.key, it.value)
	}
	if r.HasLower {
		s.tree.AscendGreaterOrEqual(&item{key: r.Lower}, visit)
	} else {
		s.tree.Ascend(visit)
	}
	return nil
}

// Defrag rewrites the write-ahead log so it only holds live records. The
// log is rewritten as a whole, so the percentages only gate whether any
// work is requested. Volatile stores have nothing to reclaim.
func (s *Store) Defrag(startPercent, amountPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if s.wal == nil || amountPercent == 0 {
		return nil
	}

	before := s.wal.Size()
	err := s.wal.Rewrite(func(emit func(wal.Record) error) error {
		if err := emit(wal.Record{Op: wal.OpHeader, Key: []byte(s.cmp.Name)}); err != nil {
			return err
		}
		var err error
		s.tree.Ascend(func(it *item) bool {
			err = emit(wal.Record{Op: wal.OpPut, Key: it.key, Value: it.value})
			return err == nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
	}
	log.Storage.Debug().Str("engine", Name).
		Int64("before", before).Int64("after", s.wal.Size()).Msg("wal rewritten")
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tree.Clear(false)
	if s.wal != nil {
		return s.wal.Close()
	}
	return nil
}
