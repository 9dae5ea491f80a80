package storage

// Visitor is called for each record of a scan. Returning false stops the
// scan. key and value are only valid for the duration of the call.
type Visitor func(key, value []byte) bool

// Engine is the contract every storage implementation honours. Callers
// (the db package) guarantee that keys are validated and that no method is
// invoked after Close.
//
// Errors should wrap the sentinels in errors.go so they can be mapped to a
// status code; anything else is reported as an unknown error.
type Engine interface {
	// Put inserts or replaces the value stored under key.
	Put(key, value []byte) error

	// Get calls fn with the value stored under key, or returns ErrNotFound.
	// The value passed to fn must not be retained.
	Get(key []byte, fn func(value []byte)) error

	// Has reports whether key is present.
	Has(key []byte) (bool, error)

	// Delete removes key. It returns ErrNotFound if the key is absent.
	Delete(key []byte) error

	// Scan visits the records of r in ascending comparator order.
	// Unordered engines only accept an unbounded range and return
	// ErrNotSupported otherwise.
	Scan(r Range, fn Visitor) error

	// Close releases the engine's resources.
	Close() error
}

// Defragmenter is implemented by engines that can reclaim space. The
// percentages select the part of the keyspace (or storage) to work on.
type Defragmenter interface {
	Defrag(startPercent, amountPercent float64) error
}
