package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/status"
	_ "github.com/myuser/kvgate/internal/storage/btree"
	_ "github.com/myuser/kvgate/internal/storage/lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, engine string) *httptest.Server {
	d, st := db.Open(engine, nil)
	require.Equal(t, status.OK, st)
	ts := httptest.NewServer(New(d))
	t.Cleanup(func() {
		ts.Close()
		d.Close()
	})
	return ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestKV(t *testing.T) {
	ts := newTestServer(t, "btree")

	resp := do(t, http.MethodPut, ts.URL+"/kv/key1", "value1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", resp.Header.Get(StatusHeader))

	resp = do(t, http.MethodHead, ts.URL+"/kv/key1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/kv/key1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "value1", string(body))

	resp = do(t, http.MethodDelete, ts.URL+"/kv/key1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/kv/key1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", resp.Header.Get(StatusHeader))

	resp = do(t, http.MethodGet, ts.URL+"/kv/key1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScanAndCount(t *testing.T) {
	ts := newTestServer(t, "btree")
	for _, k := range []string{"a", "b", "c", "d"} {
		do(t, http.MethodPut, ts.URL+"/kv/"+k, "v-"+k)
	}

	var scan scanResponse
	resp := do(t, http.MethodGet, ts.URL+"/scan?above=a&below=d", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &scan)
	assert.Equal(t, "OK", scan.Status)
	assert.Equal(t, []Item{
		{Key: []byte("b"), Value: []byte("v-b")},
		{Key: []byte("c"), Value: []byte("v-c")},
	}, scan.Items)

	scan = scanResponse{}
	decode(t, do(t, http.MethodGet, ts.URL+"/scan?limit=1", ""), &scan)
	assert.Equal(t, "STOPPED_BY_CALLBACK", scan.Status)
	assert.True(t, scan.Truncated)
	assert.Len(t, scan.Items, 1)

	// a limit that covers every remaining record cuts nothing off
	for _, limit := range []string{"2", "3"} {
		scan = scanResponse{}
		decode(t, do(t, http.MethodGet, ts.URL+"/scan?above=b&limit="+limit, ""), &scan)
		assert.Equal(t, "OK", scan.Status, limit)
		assert.False(t, scan.Truncated, limit)
		assert.Len(t, scan.Items, 2, limit)
	}
	scan = scanResponse{}
	decode(t, do(t, http.MethodGet, ts.URL+"/scan?above=a&limit=2", ""), &scan)
	assert.Equal(t, "STOPPED_BY_CALLBACK", scan.Status)
	assert.True(t, scan.Truncated)
	assert.Equal(t, []Item{
		{Key: []byte("b"), Value: []byte("v-b")},
		{Key: []byte("c"), Value: []byte("v-c")},
	}, scan.Items)

	// an empty parameter is the empty key
	var count countResponse
	decode(t, do(t, http.MethodGet, ts.URL+"/count?below=", ""), &count)
	assert.Equal(t, countResponse{Status: "OK", Count: 0}, count)

	decode(t, do(t, http.MethodGet, ts.URL+"/count?above=", ""), &count)
	assert.Equal(t, countResponse{Status: "OK", Count: 4}, count)

	decode(t, do(t, http.MethodGet, ts.URL+"/count?above=b", ""), &count)
	assert.Equal(t, uint64(2), count.Count)

	resp = do(t, http.MethodGet, ts.URL+"/scan?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnordered(t *testing.T) {
	ts := newTestServer(t, "lru")
	resp := do(t, http.MethodGet, ts.URL+"/count?above=a", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "NOT_SUPPORTED", resp.Header.Get(StatusHeader))

	resp = do(t, http.MethodPost, ts.URL+"/defrag", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestDefrag(t *testing.T) {
	ts := newTestServer(t, "btree")
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/defrag?start=10&amount=50", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, ts.URL+"/defrag?start=90&amount=50", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, ts.URL+"/defrag?start=abc", "").StatusCode)
}

func TestQuery(t *testing.T) {
	ts := newTestServer(t, "btree")

	var res queryResponse
	decode(t, do(t, http.MethodPost, ts.URL+"/query", "INSERT INTO kv VALUES ('a', '1'), ('b', '2')"), &res)
	assert.Equal(t, queryResponse{Status: "OK", Affected: 2}, res)

	res = queryResponse{}
	decode(t, do(t, http.MethodPost, ts.URL+"/query", "SELECT COUNT(*) FROM kv"), &res)
	assert.Equal(t, "OK", res.Status)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2", res.Rows[0][0])

	res = queryResponse{}
	resp := do(t, http.MethodPost, ts.URL+"/query", "DROP TABLE kv")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decode(t, resp, &res)
	assert.NotEmpty(t, res.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "btree")
	do(t, http.MethodPut, ts.URL+"/kv/m", "1")

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kvgate_operations_total{op="put",status="OK"}`)
}

func TestHTTPCode(t *testing.T) {
	for _, st := range status.All() {
		code := httpCode(st)
		assert.GreaterOrEqual(t, code, 200, st.String())
		assert.Less(t, code, 600, st.String())
	}
	assert.Equal(t, http.StatusInternalServerError, httpCode(status.UnknownError))
	assert.Equal(t, http.StatusConflict, httpCode(status.ComparatorMismatch))
}

