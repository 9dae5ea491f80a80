package storage

import (
	"bytes"
	"fmt"

	"github.com/myuser/kvgate/internal/config"
)

// Compare returns -1, 0 or +1 like bytes.Compare.
type Compare func(a, b []byte) int

// Comparator is a named key ordering. Engines that persist data record the
// name and refuse to reopen with a different one.
type Comparator struct {
	Name    string
	Compare Compare
}

// BinaryComparatorName names the default lexicographic ordering.
const BinaryComparatorName = "__kvgate_binary_comparator"

// BinaryComparator orders keys lexicographically by byte.
var BinaryComparator = &Comparator{Name: BinaryComparatorName, Compare: bytes.Compare}

// IsBinary reports whether c orders like bytes.Compare.
func (c *Comparator) IsBinary() bool {
	return c == nil || c.Name == BinaryComparatorName
}

// ComparatorFrom reads the optional "comparator" object entry. An absent
// entry yields BinaryComparator.
func ComparatorFrom(cfg *config.Config) (*Comparator, error) {
	obj, err := cfg.OptionalObject("comparator")
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return BinaryComparator, nil
	}
	c, ok := obj.(*Comparator)
	if !ok || c.Compare == nil || c.Name == "" {
		return nil, fmt.Errorf("%w: comparator entry holds %T", config.ErrWrongType, obj)
	}
	return c, nil
}

// RequireBinary rejects custom comparators for engines that only support
// byte order.
func RequireBinary(cfg *config.Config) error {
	c, err := ComparatorFrom(cfg)
	if err != nil {
		return err
	}
	if !c.IsBinary() {
		return fmt.Errorf("%w: custom comparator %q", ErrNotSupported, c.Name)
	}
	return nil
}
