package storage

import (
	"bytes"
	"testing"

	"github.com/myuser/kvgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	cmp := BinaryComparator.Compare
	tests := []struct {
		name    string
		r       Range
		in, out []string
		empty   bool
	}{
		{name: "all", r: All(), in: []string{"", "a", "z"}},
		{name: "above", r: Above([]byte("b")), in: []string{"c", "ba"}, out: []string{"a", "b"}},
		{name: "above_empty_key", r: Above([]byte{}), in: []string{"a"}, out: []string{""}},
		{name: "below", r: Below([]byte("b")), in: []string{"a", ""}, out: []string{"b", "ba"}},
		{name: "below_empty_key", r: Below(nil), out: []string{"", "a"}},
		{name: "between", r: Between([]byte("a"), []byte("c")), in: []string{"b", "ab"}, out: []string{"a", "c"}},
		{name: "between_equal", r: Between([]byte("a"), []byte("a")), out: []string{"a"}, empty: true},
		{name: "between_inverted", r: Between([]byte("c"), []byte("a")), out: []string{"b"}, empty: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range tc.in {
				assert.True(t, tc.r.Contains(cmp, []byte(k)), "%q in %s", k, tc.r)
			}
			for _, k := range tc.out {
				assert.False(t, tc.r.Contains(cmp, []byte(k)), "%q not in %s", k, tc.r)
			}
			assert.Equal(t, tc.empty, tc.r.Empty(cmp))
		})
	}

	assert.False(t, All().Bounded())
	assert.True(t, Below(nil).Bounded())
	assert.Equal(t, `("a", +inf)`, Above([]byte("a")).String())
}

func TestComparatorFrom(t *testing.T) {
	c, err := ComparatorFrom(nil)
	require.NoError(t, err)
	assert.True(t, c.IsBinary())

	reverse := &Comparator{Name: "reverse", Compare: func(a, b []byte) int { return bytes.Compare(b, a) }}
	cfg := config.New()
	cfg.PutObject("comparator", reverse, nil)
	c, err = ComparatorFrom(cfg)
	require.NoError(t, err)
	assert.Same(t, reverse, c)
	assert.ErrorIs(t, RequireBinary(cfg), ErrNotSupported)

	cfg = config.New()
	cfg.PutString("comparator", "reverse")
	_, err = ComparatorFrom(cfg)
	assert.ErrorIs(t, err, config.ErrWrongType)

	cfg = config.New()
	cfg.PutObject("comparator", &Comparator{Name: "broken"}, nil)
	_, err = ComparatorFrom(cfg)
	assert.ErrorIs(t, err, config.ErrWrongType)
}

type nopEngine struct{ Engine }

func TestRegistry(t *testing.T) {
	open := func(*config.Config) (Engine, error) { return nopEngine{}, nil }
	Register(Info{Name: "test-registry", Open: open, Ordered: true})

	info, err := Lookup("test-registry")
	require.NoError(t, err)
	assert.True(t, info.Ordered)
	assert.False(t, info.AllowEmptyKey)
	assert.Contains(t, Engines(), "test-registry")

	_, err = Lookup("no-such-engine")
	assert.ErrorIs(t, err, ErrUnknownEngine)

	assert.Panics(t, func() { Register(Info{Name: "test-registry", Open: open}) })
	assert.Panics(t, func() { Register(Info{Name: "", Open: open}) })
	assert.Panics(t, func() { Register(Info{Name: "x"}) })
}
