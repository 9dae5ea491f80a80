package bolt

import (
	"path/filepath"
	"testing"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/storage"
	"github.com/myuser/kvgate/internal/storage/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAt(t *testing.T, dir string) storage.Engine {
	cfg := config.New()
	cfg.PutString("path", filepath.Join(dir, "kv.db"))
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

func TestEmptyKeyRejected(t *testing.T) {
	e := openAt(t, t.TempDir())
	defer e.Close()
	assert.ErrorIs(t, e.Put(nil, []byte("v")), storage.ErrInvalidArgument)
}

func TestNoDefrag(t *testing.T) {
	e := openAt(t, t.TempDir())
	defer e.Close()
	_, ok := e.(storage.Defragmenter)
	assert.False(t, ok)
}
