package db

import (
	"math"

	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
)

// Put inserts or replaces the value stored under key.
func (db *DB) Put(key, value []byte) status.Status {
	h, st := db.guardKey(key)
	if st != status.OK {
		return st
	}
	return dispatch("put", func() error {
		return h.engine.Put(key, value)
	})
}

// Get calls fn with the value stored under key. The value is only valid
// inside fn.
func (db *DB) Get(key []byte, fn func(value []byte)) status.Status {
	h, st := db.guardKey(key)
	if st != status.OK {
		return st
	}
	if fn == nil {
		return status.InvalidArgument
	}
	return dispatch("get", func() error {
		return h.engine.Get(key, func(v []byte) {
			protect(func() { fn(v) })
		})
	})
}

// GetCopy copies the value stored under key into buf and returns its size.
// If buf is too short it returns status.BufferTooSmall with the size of the
// value and leaves buf untouched, so the caller can retry.
func (db *DB) GetCopy(key, buf []byte) (int, status.Status) {
	h, st := db.guardKey(key)
	if st != status.OK {
		return 0, st
	}
	size, short := 0, false
	st = dispatch("get_copy", func() error {
		return h.engine.Get(key, func(v []byte) {
			size = len(v)
			if size > len(buf) {
				short = true
				return
			}
			copy(buf, v)
		})
	})
	switch {
	case st != status.OK:
		return 0, st
	case short:
		return size, status.BufferTooSmall
	}
	return size, status.OK
}

// Remove deletes key. Removing an absent key returns status.NotFound.
func (db *DB) Remove(key []byte) status.Status {
	h, st := db.guardKey(key)
	if st != status.OK {
		return st
	}
	return dispatch("remove", func() error {
		return h.engine.Delete(key)
	})
}

// Exists returns status.OK if key is present and status.NotFound if not.
func (db *DB) Exists(key []byte) status.Status {
	h, st := db.guardKey(key)
	if st != status.OK {
		return st
	}
	found := false
	st = dispatch("exists", func() (err error) {
		found, err = h.engine.Has(key)
		return err
	})
	if st == status.OK && !found {
		return status.NotFound
	}
	return st
}

// Defrag asks the engine to reclaim space in the part of its storage
// starting at startPercent and spanning amountPercent. Both must lie in
// [0, 100] and together not exceed 100.
func (db *DB) Defrag(startPercent, amountPercent float64) status.Status {
	h, st := db.guard()
	if st != status.OK {
		return st
	}
	if !percent(startPercent) || !percent(amountPercent) || startPercent+amountPercent > 100 {
		return status.InvalidArgument
	}
	d, ok := h.engine.(storage.Defragmenter)
	if !ok {
		return status.NotSupported
	}
	return dispatch("defrag", func() error {
		return d.Defrag(startPercent, amountPercent)
	})
}

func percent(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 100
}
