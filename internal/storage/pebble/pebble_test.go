package pebble

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/storage"
	"github.com/myuser/kvgate/internal/storage/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAt(t *testing.T, dir string) storage.Engine {
	cfg := config.New()
	cfg.PutString("path", dir)
	e, err := Open(cfg)
	require.NoError(t, err)
	return e
}

func TestEngine(t *testing.T) {
	enginetest.Suite{
		Open: func(t *testing.T) storage.Engine {
			return openAt(t, t.TempDir())
		},
		OpenAt: openAt,
	}.Run(t)
}

func TestPathRequired(t *testing.T) {
	_, err := Open(nil)
	assert.ErrorIs(t, err, config.ErrMissingEntry)

	cfg := config.New()
	cfg.PutUint64("path", 1)
	_, err = Open(cfg)
	assert.ErrorIs(t, err, config.ErrWrongType)
}

var reverse = &storage.Comparator{
	Name:    "test_reverse",
	Compare: func(a, b []byte) int { return bytes.Compare(b, a) },
}

func TestCustomComparator(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.PutString("path", dir)
	cfg.PutObject("comparator", reverse, nil)
	e, err := Open(cfg)
	require.NoError(t, err)

	for _, k := range []string{"b", "d", "a", "c"} {
		require.NoError(t, e.Put([]byte(k), nil))
	}
	var keys []string
	require.NoError(t, e.Scan(storage.Above([]byte("c")), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}))
	assert.Equal(t, []string{"b", "a"}, keys)
	require.NoError(t, e.Close())

	// reopening with byte order is refused
	cfg = config.New()
	cfg.PutString("path", dir)
	_, err = Open(cfg)
	assert.ErrorIs(t, err, storage.ErrComparatorMismatch)
}

func TestDefrag(t *testing.T) {
	e := openAt(t, t.TempDir())
	defer e.Close()
	d := e.(storage.Defragmenter)

	require.NoError(t, d.Defrag(0, 100))

	for i := 0; i < 100; i++ {
		k := []byte(fmt.Sprintf("key-%03d", i))
		require.NoError(t, e.Put(k, k))
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Delete([]byte(fmt.Sprintf("key-%03d", i))))
	}
	require.NoError(t, d.Defrag(0, 100))

	n := 0
	require.NoError(t, e.Scan(storage.All(), func(k, v []byte) bool {
		n++
		return true
	}))
	assert.Equal(t, 50, n)
}
