// Package enginetest is a conformance suite run by every storage engine.
package enginetest

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/myuser/kvgate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Suite describes the engine under test.
type Suite struct {
	// Open returns a fresh, empty engine. The suite closes it.
	Open func(t *testing.T) storage.Engine
	// OpenAt opens the engine stored under dir. Only persistent engines set it.
	OpenAt func(t *testing.T, dir string) storage.Engine
	// Unordered engines only support unbounded scans.
	Unordered bool
}

type engineTest struct {
	name string
	fn   func(t *testing.T, e storage.Engine)
}

// Run executes every conformance test as a subtest.
func (s Suite) Run(t *testing.T) {
	tests := []engineTest{
		{name: "put_get", fn: testPutGet},
		{name: "overwrite", fn: testOverwrite},
		{name: "has", fn: testHas},
		{name: "delete", fn: testDelete},
		{name: "empty_value", fn: testEmptyValue},
		{name: "binary_keys", fn: testBinaryKeys},
		{name: "scan_all", fn: s.testScanAll},
		{name: "scan_stop", fn: testScanStop},
	}
	if s.Unordered {
		tests = append(tests, engineTest{name: "bounded_scan_not_supported", fn: testBoundedNotSupported})
	} else {
		tests = append(tests, []engineTest{
			{name: "scan_above", fn: testScanAbove},
			{name: "scan_below", fn: testScanBelow},
			{name: "scan_between", fn: testScanBetween},
			{name: "scan_empty_ranges", fn: testScanEmptyRanges},
			{name: "scan_empty_key_bound", fn: testScanEmptyKeyBound},
		}...)
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := s.Open(t)
			defer e.Close() //nolint:errcheck // closed again by some tests

			tc.fn(t, e)
		})
	}

	if s.OpenAt != nil {
		t.Run("reopen", s.testReopen)
	}
}

func get(t *testing.T, e storage.Engine, key string) ([]byte, error) {
	t.Helper()
	var out []byte
	calls := 0
	err := e.Get([]byte(key), func(v []byte) {
		calls++
		out = append([]byte{}, v...)
	})
	if err == nil {
		require.Equal(t, 1, calls, "get callback must run exactly once")
	}
	return out, err
}

func fill(t *testing.T, e storage.Engine, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, e.Put([]byte(k), []byte("v-"+k)))
	}
}

func scanKeys(t *testing.T, e storage.Engine, r storage.Range) []string {
	t.Helper()
	var keys []string
	err := e.Scan(r, func(k, v []byte) bool {
		require.Equal(t, "v-"+string(k), string(v))
		keys = append(keys, string(k))
		return true
	})
	require.NoError(t, err)
	return keys
}

func testPutGet(t *testing.T, e storage.Engine) {
	require.NoError(t, e.Put([]byte("key1"), []byte("value1")))

	v, err := get(t, e, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), v)

	_, err = get(t, e, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testOverwrite(t *testing.T, e storage.Engine) {
	require.NoError(t, e.Put([]byte("k"), []byte("first")))
	require.NoError(t, e.Put([]byte("k"), []byte("second")))

	v, err := get(t, e, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), v)
}

func testHas(t *testing.T, e storage.Engine) {
	fill(t, e, "a")

	ok, err := e.Has([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Has([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDelete(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b")

	require.NoError(t, e.Delete([]byte("a")))
	_, err := get(t, e, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := e.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	// absent keys report not found, every time
	assert.ErrorIs(t, e.Delete([]byte("a")), storage.ErrNotFound)
	assert.ErrorIs(t, e.Delete([]byte("a")), storage.ErrNotFound)
	assert.ErrorIs(t, e.Delete([]byte("never")), storage.ErrNotFound)

	v, err := get(t, e, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("v-b"), v)
}

func testEmptyValue(t *testing.T, e storage.Engine) {
	require.NoError(t, e.Put([]byte("k"), []byte{}))

	v, err := get(t, e, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	ok, err := e.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func testBinaryKeys(t *testing.T, e storage.Engine) {
	keys := [][]byte{{0x00}, {0x00, 0x00}, {0xFF}, {0x01, 0xFF, 0x00}}
	for i, k := range keys {
		require.NoError(t, e.Put(k, []byte{byte(i)}))
	}
	for i, k := range keys {
		var got []byte
		require.NoError(t, e.Get(k, func(v []byte) { got = append([]byte{}, v...) }))
		assert.Equal(t, []byte{byte(i)}, got, "key %x", k)
	}
}

func (s Suite) testScanAll(t *testing.T, e storage.Engine) {
	want := []string{"a", "b", "c", "d", "e"}
	// insert out of order
	fill(t, e, "c", "a", "e", "b", "d")

	got := scanKeys(t, e, storage.All())
	if s.Unordered {
		sort.Strings(got)
	}
	assert.Equal(t, want, got)
}

func testScanStop(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b", "c")

	calls := 0
	err := e.Scan(storage.All(), func(k, v []byte) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func testBoundedNotSupported(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b")
	for _, r := range []storage.Range{
		storage.Above([]byte("a")),
		storage.Below([]byte("b")),
		storage.Between([]byte("a"), []byte("b")),
	} {
		err := e.Scan(r, func(k, v []byte) bool { return true })
		assert.ErrorIs(t, err, storage.ErrNotSupported, r.String())
	}
}

func testScanAbove(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b", "c", "d")

	assert.Equal(t, []string{"c", "d"}, scanKeys(t, e, storage.Above([]byte("b"))))
	assert.Equal(t, []string{"c", "d"}, scanKeys(t, e, storage.Above([]byte("bb"))))
	assert.Empty(t, scanKeys(t, e, storage.Above([]byte("d"))))
}

func testScanBelow(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b", "c", "d")

	assert.Equal(t, []string{"a", "b"}, scanKeys(t, e, storage.Below([]byte("c"))))
	assert.Equal(t, []string{"a", "b"}, scanKeys(t, e, storage.Below([]byte("bb"))))
	assert.Empty(t, scanKeys(t, e, storage.Below([]byte("a"))))
}

func testScanBetween(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b", "c", "d", "e")

	assert.Equal(t, []string{"b", "c", "d"}, scanKeys(t, e, storage.Between([]byte("a"), []byte("e"))))
	assert.Equal(t, []string{"c"}, scanKeys(t, e, storage.Between([]byte("b"), []byte("d"))))
	assert.Equal(t, []string{"a", "b"}, scanKeys(t, e, storage.Between([]byte("0"), []byte("bb"))))
}

func testScanEmptyRanges(t *testing.T, e storage.Engine) {
	assert.Empty(t, scanKeys(t, e, storage.All()))

	fill(t, e, "a", "b", "c")
	assert.Empty(t, scanKeys(t, e, storage.Between([]byte("b"), []byte("b"))))
	assert.Empty(t, scanKeys(t, e, storage.Between([]byte("c"), []byte("a"))))
	assert.Empty(t, scanKeys(t, e, storage.Between([]byte("a"), []byte("b"))))
}

func testScanEmptyKeyBound(t *testing.T, e storage.Engine) {
	fill(t, e, "a", "b")

	assert.Equal(t, []string{"a", "b"}, scanKeys(t, e, storage.Above([]byte{})))
	assert.Empty(t, scanKeys(t, e, storage.Below([]byte{})))
}

func (s Suite) testReopen(t *testing.T) {
	dir := t.TempDir()

	e := s.OpenAt(t, dir)
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("key-%03d", i)
		require.NoError(t, e.Put([]byte(k), []byte("v-"+k)))
	}
	require.NoError(t, e.Delete([]byte("key-007")))
	require.NoError(t, e.Close())

	e = s.OpenAt(t, dir)
	defer e.Close() //nolint:errcheck

	v, err := get(t, e, "key-042")
	require.NoError(t, err)
	assert.Equal(t, []byte("v-key-042"), v)

	_, err = get(t, e, "key-007")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n := 0
	require.NoError(t, e.Scan(storage.All(), func(k, v []byte) bool {
		n++
		return true
	}))
	assert.Equal(t, 49, n)

	if !s.Unordered {
		keys := scanKeys(t, e, storage.Between([]byte("key-010"), []byte("key-013")))
		assert.Equal(t, []string{"key-011", "key-012"}, keys)
		assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool {
			return bytes.Compare([]byte(keys[i]), []byte(keys[j])) < 0
		}))
	}
}
