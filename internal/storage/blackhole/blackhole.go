// Package blackhole is an engine that accepts every write and stores
// nothing. It is useful for measuring the cost of the boundary itself.
package blackhole

import (
	"sync/atomic"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/storage"
)

const Name = "blackhole"

func init() {
	storage.Register(storage.Info{
		Name:          Name,
		Open:          Open,
		AllowEmptyKey: true,
		Ordered:       true,
	})
}

// Engine discards all data.
type Engine struct {
	closed atomic.Bool
}

// Open ignores cfg; the engine has no entries.
func Open(_ *config.Config) (storage.Engine, error) {
	return &Engine{}, nil
}

func (e *Engine) Put(key, value []byte) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

func (e *Engine) Get(key []byte, fn func(value []byte)) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return storage.ErrNotFound
}

func (e *Engine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, storage.ErrClosed
	}
	return false, nil
}

func (e *Engine) Delete(key []byte) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return storage.ErrNotFound
}

func (e *Engine) Scan(r storage.Range, fn storage.Visitor) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

// Defrag has nothing to reclaim.
func (e *Engine) Defrag(startPercent, amountPercent float64) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}
