package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker(t *testing.T) {
	d, st := db.Open("btree", nil)
	require.Equal(t, status.OK, st)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var c counters
	require.NoError(t, worker(ctx, d, rand.New(rand.NewSource(1)), 100, 0.5, &c))
	assert.Positive(t, c.ops.Load())
	assert.Zero(t, c.errors.Load())

	n, st := d.CountAll()
	require.Equal(t, status.OK, st)
	assert.LessOrEqual(t, n, uint64(100))
	assert.Positive(t, n)
}

func TestWorkerClosedHandle(t *testing.T) {
	d, st := db.Open("blackhole", nil)
	require.Equal(t, status.OK, st)
	require.Equal(t, status.OK, d.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var c counters
	require.NoError(t, worker(ctx, d, rand.New(rand.NewSource(1)), 10, 0, &c))
	assert.Zero(t, c.ops.Load())
	assert.Positive(t, c.errors.Load())
}
