// Package config implements the configuration object passed to db.Open.
//
// A Config holds typed entries keyed by name. It stays mutable until it is
// consumed, either by db.Open (which takes ownership whatever the outcome)
// or by Delete. After that every access fails with INVALID_ARGUMENT.
//
// The Put/Get methods mirror the public status-returning API. Engines read
// their settings through the error-returning Require/Optional helpers.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/myuser/kvgate/internal/status"
	"go.uber.org/multierr"
)

// Kind is the type tag of a config entry.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindUint64
	KindData
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindData:
		return "data"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type entry struct {
	kind    Kind
	str     string
	i64     int64
	u64     uint64
	data    []byte
	obj     any
	deleter func(any)
}

// Config is not safe for concurrent use.
type Config struct {
	entries  map[string]*entry
	consumed bool
}

// New returns an empty config.
func New() *Config {
	return &Config{entries: make(map[string]*entry)}
}

func (c *Config) usable() bool {
	return c != nil && !c.consumed
}

func (c *Config) put(key string, e *entry) status.Status {
	if !c.usable() || key == "" {
		return status.InvalidArgument
	}
	if old, ok := c.entries[key]; ok {
		old.release()
	}
	c.entries[key] = e
	return status.OK
}

func (c *Config) PutString(key, value string) status.Status {
	return c.put(key, &entry{kind: KindString, str: value})
}

func (c *Config) PutInt64(key string, value int64) status.Status {
	return c.put(key, &entry{kind: KindInt64, i64: value})
}

func (c *Config) PutUint64(key string, value uint64) status.Status {
	return c.put(key, &entry{kind: KindUint64, u64: value})
}

// PutData stores a copy of value.
func (c *Config) PutData(key string, value []byte) status.Status {
	return c.put(key, &entry{kind: KindData, data: append([]byte(nil), value...)})
}

// PutObject stores an arbitrary value. deleter, if not nil, is called once
// when the entry is overwritten or the config is released.
func (c *Config) PutObject(key string, value any, deleter func(any)) status.Status {
	if value == nil {
		return status.InvalidArgument
	}
	return c.put(key, &entry{kind: KindObject, obj: value, deleter: deleter})
}

func (c *Config) GetString(key string) (string, status.Status) {
	if !c.usable() || key == "" {
		var zero string
		return zero, status.InvalidArgument
	}
	v, err := c.StringValue(key)
	return v, statusOf(err)
}

func (c *Config) GetInt64(key string) (int64, status.Status) {
	if !c.usable() || key == "" {
		var zero int64
		return zero, status.InvalidArgument
	}
	v, err := c.Int64Value(key)
	return v, statusOf(err)
}

func (c *Config) GetUint64(key string) (uint64, status.Status) {
	if !c.usable() || key == "" {
		var zero uint64
		return zero, status.InvalidArgument
	}
	v, err := c.Uint64Value(key)
	return v, statusOf(err)
}

// GetData returns the stored bytes. The slice must not be modified.
func (c *Config) GetData(key string) ([]byte, status.Status) {
	if !c.usable() || key == "" {
		var zero []byte
		return zero, status.InvalidArgument
	}
	v, err := c.DataValue(key)
	return v, statusOf(err)
}

func (c *Config) GetObject(key string) (any, status.Status) {
	if !c.usable() || key == "" {
		var zero any
		return zero, status.InvalidArgument
	}
	v, err := c.ObjectValue(key)
	return v, statusOf(err)
}

// Has reports whether an entry named key exists.
func (c *Config) Has(key string) bool {
	if !c.usable() {
		return false
	}
	_, ok := c.entries[key]
	return ok
}

// Keys returns the entry names in sorted order.
func (c *Config) Keys() []string {
	if !c.usable() {
		return nil
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Delete releases the config, running object deleters. The config cannot
// be used afterwards.
func (c *Config) Delete() status.Status {
	if !c.usable() {
		return status.InvalidArgument
	}
	c.release()
	return status.OK
}

// Release is like Delete but reports deleter panics as an error instead of
// a status. It is used by db.Open on the config it took over.
func (c *Config) Release() error {
	if !c.usable() {
		return ErrConsumed
	}
	return c.release()
}

func (c *Config) release() (err error) {
	for _, e := range c.entries {
		err = multierr.Append(err, e.release())
	}
	c.entries = nil
	c.consumed = true
	return err
}

// Take moves every entry into a fresh Config and marks c consumed. A nil c
// yields an empty config, which is how open treats "no configuration".
func (c *Config) Take() (*Config, error) {
	if c == nil {
		return New(), nil
	}
	if c.consumed {
		return nil, ErrConsumed
	}
	taken := &Config{entries: c.entries}
	c.entries = nil
	c.consumed = true
	return taken, nil
}

// Consumed reports whether the config was released or taken.
func (c *Config) Consumed() bool {
	return c != nil && c.consumed
}

func (e *entry) release() (err error) {
	if e.deleter == nil {
		return nil
	}
	d := e.deleter
	e.deleter = nil
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("config: object deleter panicked: %v", r)
		}
	}()
	d(e.obj)
	return nil
}

func (c *Config) lookup(key string) (*entry, error) {
	if c == nil {
		return nil, ErrMissingEntry
	}
	if c.consumed {
		return nil, ErrConsumed
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingEntry, key)
	}
	return e, nil
}

func wrongType(key string, e *entry, want Kind) error {
	return fmt.Errorf("%w: %q is %s, want %s", ErrWrongType, key, e.kind, want)
}

// StringValue returns a string entry.
func (c *Config) StringValue(key string) (string, error) {
	e, err := c.lookup(key)
	if err != nil {
		return "", err
	}
	if e.kind != KindString {
		return "", wrongType(key, e, KindString)
	}
	return e.str, nil
}

// Int64Value returns an int64 entry, converting from uint64 when it fits.
func (c *Config) Int64Value(key string) (int64, error) {
	e, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	switch e.kind {
	case KindInt64:
		return e.i64, nil
	case KindUint64:
		if e.u64 <= math.MaxInt64 {
			return int64(e.u64), nil
		}
	}
	return 0, wrongType(key, e, KindInt64)
}

// Uint64Value returns a uint64 entry, converting from non-negative int64.
func (c *Config) Uint64Value(key string) (uint64, error) {
	e, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	switch e.kind {
	case KindUint64:
		return e.u64, nil
	case KindInt64:
		if e.i64 >= 0 {
			return uint64(e.i64), nil
		}
	}
	return 0, wrongType(key, e, KindUint64)
}

func (c *Config) DataValue(key string) ([]byte, error) {
	e, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if e.kind != KindData {
		return nil, wrongType(key, e, KindData)
	}
	return e.data, nil
}

func (c *Config) ObjectValue(key string) (any, error) {
	e, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if e.kind != KindObject {
		return nil, wrongType(key, e, KindObject)
	}
	return e.obj, nil
}

// RequireString returns a mandatory string entry.
func (c *Config) RequireString(key string) (string, error) {
	return c.StringValue(key)
}

// OptionalString returns def when the entry is absent.
func (c *Config) OptionalString(key, def string) (string, error) {
	if !c.Has(key) {
		return def, nil
	}
	return c.StringValue(key)
}

// OptionalUint64 returns def when the entry is absent.
func (c *Config) OptionalUint64(key string, def uint64) (uint64, error) {
	if !c.Has(key) {
		return def, nil
	}
	return c.Uint64Value(key)
}

// OptionalBool reads a 0/1 integer entry.
func (c *Config) OptionalBool(key string, def bool) (bool, error) {
	if !c.Has(key) {
		return def, nil
	}
	v, err := c.Uint64Value(key)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// OptionalObject returns nil when the entry is absent.
func (c *Config) OptionalObject(key string) (any, error) {
	if !c.Has(key) {
		return nil, nil
	}
	return c.ObjectValue(key)
}

func statusOf(err error) status.Status {
	switch {
	case err == nil:
		return status.OK
	case errors.Is(err, ErrConsumed):
		return status.InvalidArgument
	case errors.Is(err, ErrWrongType):
		return status.ConfigTypeError
	case errors.Is(err, ErrMissingEntry):
		return status.NotFound
	}
	return status.UnknownError
}
