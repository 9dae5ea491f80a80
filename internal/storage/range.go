package storage

import "fmt"

// Range selects the keys strictly between an optional lower and an
// optional upper bound. Both bounds are exclusive. The presence flags make
// an empty key a valid bound, distinct from "unbounded".
type Range struct {
	Lower    []byte
	Upper    []byte
	HasLower bool
	HasUpper bool
}

// All is the unbounded range.
func All() Range { return Range{} }

// Above selects keys greater than k.
func Above(k []byte) Range { return Range{Lower: k, HasLower: true} }

// Below selects keys less than k.
func Below(k []byte) Range { return Range{Upper: k, HasUpper: true} }

// Between selects keys greater than lo and less than hi.
func Between(lo, hi []byte) Range {
	return Range{Lower: lo, HasLower: true, Upper: hi, HasUpper: true}
}

// Bounded reports whether either bound is set.
func (r Range) Bounded() bool { return r.HasLower || r.HasUpper }

// Empty reports whether no key can satisfy r under cmp.
func (r Range) Empty(cmp Compare) bool {
	return r.HasLower && r.HasUpper && cmp(r.Lower, r.Upper) >= 0
}

// AfterLower reports whether key is past the lower bound.
func (r Range) AfterLower(cmp Compare, key []byte) bool {
	return !r.HasLower || cmp(key, r.Lower) > 0
}

// BeforeUpper reports whether key is before the upper bound. Ordered scans
// stop at the first key for which it is false.
func (r Range) BeforeUpper(cmp Compare, key []byte) bool {
	return !r.HasUpper || cmp(key, r.Upper) < 0
}

// Contains reports whether key lies inside r.
func (r Range) Contains(cmp Compare, key []byte) bool {
	return r.AfterLower(cmp, key) && r.BeforeUpper(cmp, key)
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.HasLower {
		lo = fmt.Sprintf("%q", r.Lower)
	}
	if r.HasUpper {
		hi = fmt.Sprintf("%q", r.Upper)
	}
	return "(" + lo + ", " + hi + ")"
}
