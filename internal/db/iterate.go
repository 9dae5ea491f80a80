package db

import (
	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
)

// Visitor receives the records of a range scan. key and value are only
// valid during the call. Return Continue for the next record or Stop to end
// the scan.
type Visitor func(key, value []byte) bool

const (
	Continue = true
	Stop     = false
)

// traverse is the single scan path behind the Count* and Get* methods. A
// scan ended by the visitor reports status.StoppedByCallback.
func (db *DB) traverse(op string, r storage.Range, visit Visitor) status.Status {
	h, st := db.guard()
	if st != status.OK {
		return st
	}
	if visit == nil {
		return status.InvalidArgument
	}
	if r.Bounded() && !h.info.Ordered {
		return status.NotSupported
	}

	stopped := false
	st = dispatch(op, func() error {
		return h.engine.Scan(r, func(k, v []byte) bool {
			next := Continue
			protect(func() { next = visit(k, v) })
			if next == Stop {
				stopped = true
			}
			return next
		})
	})
	if st == status.OK && stopped {
		return status.StoppedByCallback
	}
	return st
}

// count tallies the records of r without copying them.
func (db *DB) count(op string, r storage.Range) (uint64, status.Status) {
	var n uint64
	st := db.traverse(op, r, func(_, _ []byte) bool {
		n++
		return Continue
	})
	if st != status.OK {
		return 0, st
	}
	return n, st
}

// CountAll returns the number of stored records.
func (db *DB) CountAll() (uint64, status.Status) {
	return db.count("count_all", storage.All())
}

// CountAbove counts the records with keys greater than key.
func (db *DB) CountAbove(key []byte) (uint64, status.Status) {
	return db.count("count_above", storage.Above(key))
}

// CountBelow counts the records with keys less than key.
func (db *DB) CountBelow(key []byte) (uint64, status.Status) {
	return db.count("count_below", storage.Below(key))
}

// CountBetween counts the records with keys strictly between lo and hi.
// An inverted or degenerate range counts zero.
func (db *DB) CountBetween(lo, hi []byte) (uint64, status.Status) {
	return db.count("count_between", storage.Between(lo, hi))
}

// GetAll visits every record in key order.
func (db *DB) GetAll(visit Visitor) status.Status {
	return db.traverse("get_all", storage.All(), visit)
}

// GetAbove visits the records with keys greater than key, ascending.
func (db *DB) GetAbove(key []byte, visit Visitor) status.Status {
	return db.traverse("get_above", storage.Above(key), visit)
}

// GetBelow visits the records with keys less than key, ascending.
func (db *DB) GetBelow(key []byte, visit Visitor) status.Status {
	return db.traverse("get_below", storage.Below(key), visit)
}

// GetBetween visits the records with keys strictly between lo and hi.
func (db *DB) GetBetween(lo, hi []byte, visit Visitor) status.Status {
	return db.traverse("get_between", storage.Between(lo, hi), visit)
}
