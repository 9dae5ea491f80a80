package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
path: /var/lib/kvgate
size: 1073741824
offset: -3
sync: true
pebble:
  cache_size: 1024
`))
	require.NoError(t, err)

	p, err := cfg.RequireString("path")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kvgate", p)

	size, err := cfg.Uint64Value("size")
	require.NoError(t, err)
	assert.Equal(t, uint64(1073741824), size)

	off, err := cfg.Int64Value("offset")
	require.NoError(t, err)
	assert.Equal(t, int64(-3), off)

	sync, err := cfg.OptionalBool("sync", false)
	require.NoError(t, err)
	assert.True(t, sync)

	obj, err := cfg.ObjectValue("pebble")
	require.NoError(t, err)
	sub, ok := obj.(*Config)
	require.True(t, ok)
	cs, err := sub.Uint64Value("cache_size")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), cs)
}

func TestFromYAMLAcceptsJSON(t *testing.T) {
	cfg, err := FromYAML([]byte(`{"path": "/tmp/db", "size": 42}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"path", "size"}, cfg.Keys())
}

func TestFromYAMLEmpty(t *testing.T) {
	cfg, err := FromYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Keys())
}

func TestFromYAMLRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "path: [unterminated"},
		{"not_a_mapping", "- a\n- b"},
		{"float", "ratio: 0.5"},
		{"sequence", "paths: [a, b]"},
		{"null", "path: null"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.doc))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path: /data\n"), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Has("path"))

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
