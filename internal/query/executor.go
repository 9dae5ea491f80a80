package query

import (
	"fmt"

	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/status"
)

// Row is one result row: key and value, or a single count.
type Row []string

// Result is the outcome of one statement. Status is the status of the last
// boundary call; Affected counts the rows written or removed.
type Result struct {
	Rows     []Row
	Status   status.Status
	Affected int
}

// Run parses and executes sql against d.
func Run(d *db.DB, sql string) (*Result, error) {
	plan, err := ParseToPlan(sql)
	if err != nil {
		return nil, err
	}
	return Execute(plan, d)
}

// Execute runs a plan. Only parse and plan problems are returned as errors;
// boundary failures are reported through Result.Status.
func Execute(plan PlanNode, d *db.DB) (*Result, error) {
	switch n := plan.(type) {
	case *InsertNode:
		return executeInsert(n, d), nil
	case *PointGetNode:
		return executePointGet(n, d), nil
	case *RangeNode:
		return executeRange(n, d), nil
	case *DeleteNode:
		return executeDelete(n, d), nil
	default:
		return nil, fmt.Errorf("%w: plan node %T", ErrUnsupported, plan)
	}
}

// executeInsert stops at the first failing row; earlier rows stay written.
func executeInsert(n *InsertNode, d *db.DB) *Result {
	res := &Result{}
	for _, p := range n.Rows {
		res.Status = d.Put(p.Key, p.Value)
		if res.Status != status.OK {
			break
		}
		res.Affected++
	}
	return res
}

func executePointGet(n *PointGetNode, d *db.DB) *Result {
	if n.Count {
		st := d.Exists(n.Key)
		switch st {
		case status.OK:
			return &Result{Rows: []Row{{"1"}}, Status: st}
		case status.NotFound:
			return &Result{Rows: []Row{{"0"}}, Status: status.OK}
		}
		return &Result{Status: st}
	}

	res := &Result{}
	res.Status = d.Get(n.Key, func(v []byte) {
		res.Rows = append(res.Rows, Row{string(n.Key), string(v)})
	})
	return res
}

func executeRange(n *RangeNode, d *db.DB) *Result {
	r := n.Range
	if n.Count {
		var (
			c  uint64
			st status.Status
		)
		switch {
		case r.HasLower && r.HasUpper:
			c, st = d.CountBetween(r.Lower, r.Upper)
		case r.HasLower:
			c, st = d.CountAbove(r.Lower)
		case r.HasUpper:
			c, st = d.CountBelow(r.Upper)
		default:
			c, st = d.CountAll()
		}
		if st != status.OK {
			return &Result{Status: st}
		}
		return &Result{Rows: []Row{{fmt.Sprint(c)}}, Status: st}
	}

	res := &Result{}
	// Stopping on the row after the limit keeps StoppedByCallback for scans
	// that really left rows out.
	visit := func(k, v []byte) bool {
		if n.Limit > 0 && uint64(len(res.Rows)) == n.Limit {
			return db.Stop
		}
		res.Rows = append(res.Rows, Row{string(k), string(v)})
		return db.Continue
	}
	switch {
	case r.HasLower && r.HasUpper:
		res.Status = d.GetBetween(r.Lower, r.Upper, visit)
	case r.HasLower:
		res.Status = d.GetAbove(r.Lower, visit)
	case r.HasUpper:
		res.Status = d.GetBelow(r.Upper, visit)
	default:
		res.Status = d.GetAll(visit)
	}
	return res
}

func executeDelete(n *DeleteNode, d *db.DB) *Result {
	st := d.Remove(n.Key)
	res := &Result{Status: st}
	if st == status.OK {
		res.Affected = 1
	}
	return res
}
