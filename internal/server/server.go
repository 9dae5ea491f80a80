// Package server is the HTTP front of a kvgate handle. Every response
// carries the boundary status in the X-Kvgate-Status header; the HTTP code
// is derived from it.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/metrics"
	"github.com/myuser/kvgate/internal/query"
	"github.com/myuser/kvgate/internal/status"
)

// StatusHeader names the response header holding the status name.
const StatusHeader = "X-Kvgate-Status"

// MaxValueSize bounds request bodies.
const MaxValueSize = 32 << 20

// Server routes HTTP requests to one open handle.
type Server struct {
	db  *db.DB
	mux *http.ServeMux
}

// Item is one record of a scan response.
type Item struct {
	Key   []byte `json:"k"`
	Value []byte `json:"v"`
}

type scanResponse struct {
	Status    string `json:"status"`
	Items     []Item `json:"items"`
	Truncated bool   `json:"truncated,omitempty"`
}

type countResponse struct {
	Status string `json:"status"`
	Count  uint64 `json:"count"`
}

type queryResponse struct {
	Status   string      `json:"status"`
	Rows     []query.Row `json:"rows,omitempty"`
	Affected int         `json:"affected,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// New returns a Server for d. The Server does not own d.
func New(d *db.DB) *Server {
	s := &Server{db: d, mux: http.NewServeMux()}
	s.mux.HandleFunc("PUT /kv/{key}", s.handlePut)
	s.mux.HandleFunc("GET /kv/{key}", s.handleGet)
	s.mux.HandleFunc("HEAD /kv/{key}", s.handleExists)
	s.mux.HandleFunc("DELETE /kv/{key}", s.handleRemove)
	s.mux.HandleFunc("GET /scan", s.handleScan)
	s.mux.HandleFunc("GET /count", s.handleCount)
	s.mux.HandleFunc("POST /defrag", s.handleDefrag)
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.Handle("GET /metrics", metrics.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// httpCode maps a status onto the closest HTTP code.
func httpCode(st status.Status) int {
	switch st {
	case status.OK, status.StoppedByCallback:
		return http.StatusOK
	case status.NotFound:
		return http.StatusNotFound
	case status.NotSupported:
		return http.StatusNotImplemented
	case status.InvalidArgument, status.ConfigParsingError, status.ConfigTypeError, status.WrongEngineName:
		return http.StatusBadRequest
	case status.OutOfMemory:
		return http.StatusInsufficientStorage
	case status.ComparatorMismatch:
		return http.StatusConflict
	case status.BufferTooSmall:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeStatus(w http.ResponseWriter, st status.Status) {
	w.Header().Set(StatusHeader, st.String())
	w.WriteHeader(httpCode(st))
}

func writeJSON(w http.ResponseWriter, st status.Status, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeStatus(w, st)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Server.Debug().Err(err).Msg("write response")
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxValueSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	st := s.db.Put([]byte(r.PathValue("key")), value)
	metrics.Observe("put", st, start)
	writeStatus(w, st)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var value []byte
	st := s.db.Get([]byte(r.PathValue("key")), func(v []byte) {
		value = append(value, v...)
	})
	metrics.Observe("get", st, start)
	if st != status.OK {
		writeStatus(w, st)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(value)))
	writeStatus(w, st)
	w.Write(value)
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st := s.db.Exists([]byte(r.PathValue("key")))
	metrics.Observe("exists", st, start)
	writeStatus(w, st)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st := s.db.Remove([]byte(r.PathValue("key")))
	metrics.Observe("remove", st, start)
	writeStatus(w, st)
}

// bounds reads the optional "above" and "below" parameters. A parameter
// that is present but empty is the empty key, not "unbounded".
func bounds(r *http.Request) (lo, hi []byte, hasLo, hasHi bool) {
	q := r.URL.Query()
	if hasLo = q.Has("above"); hasLo {
		lo = []byte(q.Get("above"))
	}
	if hasHi = q.Has("below"); hasHi {
		hi = []byte(q.Get("below"))
	}
	return
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var limit uint64
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.ParseUint(l, 10, 64)
		if err != nil {
			writeJSON(w, status.InvalidArgument, scanResponse{Status: status.InvalidArgument.String()})
			return
		}
		limit = n
	}

	// The scan stops on the first record past limit, so a response is only
	// truncated when a record was actually left out.
	resp := scanResponse{Items: []Item{}}
	visit := func(k, v []byte) bool {
		if limit > 0 && uint64(len(resp.Items)) == limit {
			return db.Stop
		}
		resp.Items = append(resp.Items, Item{
			Key:   append([]byte{}, k...),
			Value: append([]byte{}, v...),
		})
		return db.Continue
	}

	lo, hi, hasLo, hasHi := bounds(r)
	var (
		op string
		st status.Status
	)
	switch {
	case hasLo && hasHi:
		op, st = "get_between", s.db.GetBetween(lo, hi, visit)
	case hasLo:
		op, st = "get_above", s.db.GetAbove(lo, visit)
	case hasHi:
		op, st = "get_below", s.db.GetBelow(hi, visit)
	default:
		op, st = "get_all", s.db.GetAll(visit)
	}
	metrics.Observe(op, st, start)
	metrics.Visited(op, uint64(len(resp.Items)))

	resp.Truncated = st == status.StoppedByCallback
	resp.Status = st.String()
	writeJSON(w, st, resp)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lo, hi, hasLo, hasHi := bounds(r)
	var (
		op string
		n  uint64
		st status.Status
	)
	switch {
	case hasLo && hasHi:
		op = "count_between"
		n, st = s.db.CountBetween(lo, hi)
	case hasLo:
		op = "count_above"
		n, st = s.db.CountAbove(lo)
	case hasHi:
		op = "count_below"
		n, st = s.db.CountBelow(hi)
	default:
		op = "count_all"
		n, st = s.db.CountAll()
	}
	metrics.Observe(op, st, start)
	metrics.Visited(op, n)
	writeJSON(w, st, countResponse{Status: st.String(), Count: n})
}

func (s *Server) handleDefrag(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	startPct, amountPct := 0.0, 100.0
	q := r.URL.Query()
	var err error
	if v := q.Get("start"); v != "" {
		if startPct, err = strconv.ParseFloat(v, 64); err != nil {
			writeStatus(w, status.InvalidArgument)
			return
		}
	}
	if v := q.Get("amount"); v != "" {
		if amountPct, err = strconv.ParseFloat(v, 64); err != nil {
			writeStatus(w, status.InvalidArgument)
			return
		}
	}
	st := s.db.Defrag(startPct, amountPct)
	metrics.Observe("defrag", st, start)
	log.Server.Info().Float64("start", startPct).Float64("amount", amountPct).
		Stringer("status", st).Msg("defrag")
	writeStatus(w, st)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxValueSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	res, err := query.Run(s.db, string(body))
	if err != nil {
		metrics.Observe("query", status.InvalidArgument, start)
		writeJSON(w, status.InvalidArgument, queryResponse{
			Status: status.InvalidArgument.String(),
			Error:  err.Error(),
		})
		return
	}
	metrics.Observe("query", res.Status, start)
	writeJSON(w, res.Status, queryResponse{
		Status:   res.Status.String(),
		Rows:     res.Rows,
		Affected: res.Affected,
	})
}
