// Package pebble is an ordered persistent engine over
// github.com/cockroachdb/pebble. A custom comparator is installed as the
// pebble Comparer, so its name is recorded in the manifest and checked by
// pebble on every reopen.
package pebble

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
)

const Name = "pebble"

func init() {
	storage.Register(storage.Info{
		Name:          Name,
		Open:          Open,
		AllowEmptyKey: true,
		Ordered:       true,
	})
}

// Store implements storage.Engine.
type Store struct {
	db     *pebble.DB
	cmp    *storage.Comparator
	wo     *pebble.WriteOptions
	closed bool
	mu     sync.RWMutex
}

// Open opens the database directory at the mandatory "path" entry.
// Optional entries: cache_size (bytes), sync, comparator.
func Open(cfg *config.Config) (storage.Engine, error) {
	path, err := cfg.RequireString("path")
	if err != nil {
		return nil, err
	}
	cmp, err := storage.ComparatorFrom(cfg)
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

	opts := &pebble.Options{Comparer: comparer(cmp)}
	if cacheSize > 0 {
		cache := pebble.NewCache(int64(cacheSize))
		defer cache.Unref()
		opts.Cache = cache
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		if strings.Contains(err.Error(), "comparer name") {
			return nil, fmt.Errorf("%w: %v", storage.ErrComparatorMismatch, err)
		}
		return nil, fmt.Errorf("pebble: open %s: %w", path, err)
	}
	log.Storage.Debug().Str("engine", Name).Str("path", path).Str("comparator", cmp.Name).Msg("opened")

	wo := pebble.NoSync
	if syncWrites {
		wo = pebble.Sync
	}
	return &Store{db: db, cmp: cmp, wo: wo}, nil
}

// comparer adapts cmp to pebble. Key abbreviation and separator shortening
// are disabled for custom orderings since they assume byte order.
func comparer(cmp *storage.Comparator) *pebble.Comparer {
	if cmp.IsBinary() {
		c := *pebble.DefaultComparer
		c.Name = storage.BinaryComparatorName
		return &c
	}
	compare := cmp.Compare
	c := *pebble.DefaultComparer
	c.Name = cmp.Name
	c.Compare = func(a, b []byte) int { return compare(a, b) }
	c.Equal = func(a, b []byte) bool { return compare(a, b) == 0 }
	c.AbbreviatedKey = func(key []byte) uint64 { return 0 }
	c.Separator = func(dst, a, b []byte) []byte { return append(dst, a...) }
	c.Successor = func(dst, a []byte) []byte { return append(dst, a...) }
	return &c
}

func (s *Store) Put(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return s.db.Set(key, value, s.wo)
}

func (s *Store) Get(key []byte, fn func(value []byte)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	fn(value)
	return nil
}

func (s *Store) Has(key []byte) (bool, error) {
	found := false
	err := s.Get(key, func([]byte) { found = true })
	if err == storage.ErrNotFound {
		return false, nil
	}
	return found, err
}

// Delete takes the write lock so the existence check and the tombstone are
// not interleaved with another Delete.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	_, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	closer.Close()
	return s.db.Delete(key, s.wo)
}

func (s *Store) Scan(r storage.Range, fn storage.Visitor) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	if r.Empty(s.cmp.Compare) {
		return nil
	}

	// pebble treats a nil bound as unbounded
	opts := &pebble.IterOptions{}
	if r.HasLower {
		opts.LowerBound = nonNil(r.Lower)
	}
	if r.HasUpper {
		opts.UpperBound = nonNil(r.Upper)
	}
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return err
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		key := iter.Key()
		if !r.AfterLower(s.cmp.Compare, key) {
			continue
		}
		value, err := iter.ValueAndErr()
		if err != nil {
			iter.Close()
			return err
		}
		if !fn(key, value) {
			break
		}
	}
	return iter.Close()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Defrag compacts the whole key span. The percentages only gate whether
// work is requested.
func (s *Store) Defrag(startPercent, amountPercent float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	if amountPercent == 0 {
		return nil
	}

	first, last, err := s.span()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
	}
	if first == nil || s.cmp.Compare(first, last) >= 0 {
		return nil
	}
	if err := s.db.Compact(first, last, true); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDefrag, err)
	}
	return nil
}

// span returns copies of the smallest and largest keys, or nils when empty.
func (s *Store) span() (first, last []byte, err error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, nil, err
	}
	if iter.First() {
		first = append([]byte{}, iter.Key()...)
	}
	if iter.Last() {
		last = append([]byte{}, iter.Key()...)
	}
	return first, last, iter.Close()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
