package query

import (
	"testing"

	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/status"
	_ "github.com/myuser/kvgate/internal/storage/btree"
	_ "github.com/myuser/kvgate/internal/storage/lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, engine string) *db.DB {
	d, st := db.Open(engine, nil)
	require.Equal(t, status.OK, st)
	t.Cleanup(func() { d.Close() })
	return d
}

func run(t *testing.T, d *db.DB, sql string) *Result {
	t.Helper()
	res, err := Run(d, sql)
	require.NoError(t, err, sql)
	return res
}

func TestExecutor_InsertSelect(t *testing.T) {
	d := openDB(t, "btree")

	res := run(t, d, "INSERT INTO kv VALUES ('b', '2'), ('a', '1'), ('c', '3'), ('d', '4')")
	assert.Equal(t, status.OK, res.Status)
	assert.Equal(t, 4, res.Affected)

	res = run(t, d, "SELECT * FROM kv")
	assert.Equal(t, status.OK, res.Status)
	assert.Equal(t, []Row{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}}, res.Rows)

	res = run(t, d, "SELECT * FROM kv WHERE k > 'a' AND k < 'd'")
	assert.Equal(t, []Row{{"b", "2"}, {"c", "3"}}, res.Rows)

	res = run(t, d, "SELECT * FROM kv WHERE k = 'c'")
	assert.Equal(t, status.OK, res.Status)
	assert.Equal(t, []Row{{"c", "3"}}, res.Rows)

	res = run(t, d, "SELECT * FROM kv WHERE k = 'zz'")
	assert.Equal(t, status.NotFound, res.Status)
	assert.Empty(t, res.Rows)

	res = run(t, d, "SELECT * FROM kv LIMIT 2")
	assert.Equal(t, status.StoppedByCallback, res.Status)
	assert.Equal(t, []Row{{"a", "1"}, {"b", "2"}}, res.Rows)

	res = run(t, d, "SELECT * FROM kv WHERE k > 'b' LIMIT 2")
	assert.Equal(t, status.OK, res.Status)
	assert.Equal(t, []Row{{"c", "3"}, {"d", "4"}}, res.Rows)
}

func TestExecutor_Count(t *testing.T) {
	d := openDB(t, "btree")
	run(t, d, "INSERT INTO kv VALUES ('a', '1'), ('b', '2'), ('c', '3')")

	for sql, want := range map[string]string{
		"SELECT COUNT(*) FROM kv":                           "3",
		"SELECT COUNT(*) FROM kv WHERE k > 'a'":             "2",
		"SELECT COUNT(*) FROM kv WHERE k < 'a'":             "0",
		"SELECT COUNT(*) FROM kv WHERE k > 'a' AND k < 'c'": "1",
		"SELECT COUNT(*) FROM kv WHERE k > 'c' AND k < 'a'": "0",
		"SELECT COUNT(*) FROM kv WHERE k = 'b'":             "1",
		"SELECT COUNT(*) FROM kv WHERE k = 'x'":             "0",
	} {
		res := run(t, d, sql)
		assert.Equal(t, status.OK, res.Status, sql)
		assert.Equal(t, []Row{{want}}, res.Rows, sql)
	}
}

func TestExecutor_Delete(t *testing.T) {
	d := openDB(t, "btree")
	run(t, d, "INSERT INTO kv VALUES ('a', '1')")

	res := run(t, d, "DELETE FROM kv WHERE k = 'a'")
	assert.Equal(t, status.OK, res.Status)
	assert.Equal(t, 1, res.Affected)

	res = run(t, d, "DELETE FROM kv WHERE k = 'a'")
	assert.Equal(t, status.NotFound, res.Status)
	assert.Zero(t, res.Affected)
}

func TestExecutor_Statuses(t *testing.T) {
	d := openDB(t, "lru")

	res := run(t, d, "SELECT COUNT(*) FROM kv WHERE k > 'a'")
	assert.Equal(t, status.NotSupported, res.Status)
	assert.Empty(t, res.Rows)

	// nil handle goes through the guard like any other caller
	var closed *db.DB
	res = run(t, closed, "INSERT INTO kv VALUES ('a', '1')")
	assert.Equal(t, status.InvalidArgument, res.Status)
	assert.Zero(t, res.Affected)

	_, err := Execute(nil, d)
	assert.ErrorIs(t, err, ErrUnsupported)
}
