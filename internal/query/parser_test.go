package query

import (
	"testing"

	"github.com/myuser/kvgate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelect(t *testing.T) {
	tests := []struct {
		sql  string
		want PlanNode
	}{
		{
			sql:  "SELECT * FROM kv",
			want: &RangeNode{Table: "kv", Range: storage.All()},
		},
		{
			sql:  "SELECT * FROM kv WHERE k = 'alice'",
			want: &PointGetNode{Table: "kv", Key: []byte("alice")},
		},
		{
			sql:  "SELECT * FROM kv WHERE k > 'a' AND k < 'm' LIMIT 10",
			want: &RangeNode{Table: "kv", Range: storage.Between([]byte("a"), []byte("m")), Limit: 10},
		},
		{
			sql:  "SELECT * FROM kv WHERE 'm' > id",
			want: &RangeNode{Table: "kv", Range: storage.Below([]byte("m"))},
		},
		{
			sql:  "SELECT COUNT(*) FROM kv WHERE (k > '')",
			want: &RangeNode{Table: "kv", Range: storage.Above([]byte{}), Count: true},
		},
		{
			sql:  "select count(*) from kv where k = 42",
			want: &PointGetNode{Table: "kv", Key: []byte("42"), Count: true},
		},
		{
			sql:  "SELECT * FROM kv WHERE k = X'00ff'",
			want: &PointGetNode{Table: "kv", Key: []byte{0x00, 0xff}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.sql, func(t *testing.T) {
			plan, err := ParseToPlan(tc.sql)
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan)
		})
	}
}

func TestParseInsert(t *testing.T) {
	plan, err := ParseToPlan("INSERT INTO users (name, age) VALUES ('alice', '30'), ('bob', 41)")
	require.NoError(t, err)

	ins, ok := plan.(*InsertNode)
	require.True(t, ok, "got %T", plan)
	assert.Equal(t, "users", ins.Table)
	assert.Equal(t, []Pair{
		{Key: []byte("alice"), Value: []byte("30")},
		{Key: []byte("bob"), Value: []byte("41")},
	}, ins.Rows)
	assert.Equal(t, NodeInsert, ins.Type())
}

func TestParseDelete(t *testing.T) {
	plan, err := ParseToPlan("DELETE FROM kv WHERE k = 'x'")
	require.NoError(t, err)
	assert.Equal(t, &DeleteNode{Key: []byte("x")}, plan)
}

func TestParseRejects(t *testing.T) {
	for _, sql := range []string{
		"UPDATE kv SET v = 'x' WHERE k = 'a'",
		"SELECT k FROM kv",
		"SELECT * FROM a, b",
		"SELECT * FROM kv WHERE k >= 'a'",
		"SELECT * FROM kv WHERE k > 'a' AND k > 'b'",
		"SELECT * FROM kv WHERE k = 'a' AND k < 'b'",
		"SELECT * FROM kv WHERE k > 'a' OR k < 'b'",
		"SELECT * FROM kv LIMIT 5, 10",
		"SELECT COUNT(*) FROM kv LIMIT 1",
		"INSERT INTO kv VALUES ('a')",
		"INSERT INTO kv (a, b, c) VALUES ('a', 'b', 'c')",
		"DELETE FROM kv",
		"DELETE FROM kv WHERE k > 'a'",
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := ParseToPlan(sql)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}

	_, err := ParseToPlan("SELECT * FROM kv WHERE k = 1.5")
	assert.ErrorIs(t, err, ErrBadLiteral)

	_, err = ParseToPlan("SELEKT nonsense")
	assert.Error(t, err)
}
