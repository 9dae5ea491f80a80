// Package lru is a bounded in-memory engine built on
// github.com/hashicorp/golang-lru/v2. When the cache is full the least
// recently used entry is evicted. Keys are unordered, so only unbounded
// scans are supported.
package lru

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/storage"
)

const (
	Name = "lru"

	// DefaultCapacity is the entry limit used when "capacity" is not set.
	DefaultCapacity = 4096
)

func init() {
	storage.Register(storage.Info{
		Name:          Name,
		Open:          Open,
		AllowEmptyKey: true,
	})
}

// Cache implements storage.Engine.
type Cache struct {
	c      *lru.Cache[string, []byte]
	closed atomic.Bool
}

// Open builds a Cache. Recognised entries: capacity.
func Open(cfg *config.Config) (storage.Engine, error) {
	if err := storage.RequireBinary(cfg); err != nil {
		return nil, err
	}
	capacity, err := cfg.OptionalUint64("capacity", DefaultCapacity)
	if err != nil {
		return nil, err
	}
	if capacity == 0 || capacity > 1<<31 {
		return nil, fmt.Errorf("%w: capacity %d", config.ErrMalformed, capacity)
	}
	return New(int(capacity))
}

// New returns a Cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	c, err := lru.NewWithEvict(capacity, func(key string, _ []byte) {
		log.Storage.Trace().Str("engine", Name).Str("key", key).Msg("evicted")
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Put(key, value []byte) error {
	if c.closed.Load() {
		return storage.ErrClosed
	}
	c.c.Add(string(key), append([]byte{}, value...))
	return nil
}

func (c *Cache) Get(key []byte, fn func(value []byte)) error {
	if c.closed.Load() {
		return storage.ErrClosed
	}
	v, ok := c.c.Get(string(key))
	if !ok {
		return storage.ErrNotFound
	}
	fn(v)
	return nil
}

// Has does not refresh the entry's recency.
func (c *Cache) Has(key []byte) (bool, error) {
	if c.closed.Load() {
		return false, storage.ErrClosed
	}
	return c.c.Contains(string(key)), nil
}

func (c *Cache) Delete(key []byte) error {
	if c.closed.Load() {
		return storage.ErrClosed
	}
	if !c.c.Remove(string(key)) {
		return storage.ErrNotFound
	}
	return nil
}

// Scan visits a snapshot of the keys from oldest to newest. Entries evicted
// or removed during the scan are skipped.
func (c *Cache) Scan(r storage.Range, fn storage.Visitor) error {
	if c.closed.Load() {
		return storage.ErrClosed
	}
	if r.Bounded() {
		return fmt.Errorf("%w: %s scans bounded ranges", storage.ErrNotSupported, Name)
	}
	for _, k := range c.c.Keys() {
		v, ok := c.c.Peek(k)
		if !ok {
			continue
		}
		if !fn([]byte(k), v) {
			return nil
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.c.Len()
}

func (c *Cache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.c.Purge()
	}
	return nil
}
