package query

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/myuser/kvgate/internal/storage"
)

// ParseToPlan parses one SQL statement of the supported subset:
//
//	INSERT INTO t VALUES ('k', 'v'), ...
//	SELECT * FROM t [WHERE k = 'x' | k > 'a' [AND k < 'b']] [LIMIT n]
//	SELECT COUNT(*) FROM t [WHERE ...]
//	DELETE FROM t WHERE k = 'x'
//
// The key column may have any name.
func ParseToPlan(sql string) (PlanNode, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		return buildSelectPlan(s)
	case *sqlparser.Insert:
		return buildInsertPlan(s)
	case *sqlparser.Delete:
		return buildDeletePlan(s)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, stmt)
	}
}

func buildSelectPlan(stmt *sqlparser.Select) (PlanNode, error) {
	if len(stmt.From) != 1 {
		return nil, fmt.Errorf("%w: SELECT needs exactly one table", ErrUnsupported)
	}
	aliasedTable, ok := stmt.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, fmt.Errorf("%w: complex FROM clause", ErrUnsupported)
	}
	table := sqlparser.String(aliasedTable.Expr)

	count, err := isCount(stmt.SelectExprs)
	if err != nil {
		return nil, err
	}

	var limit uint64
	if stmt.Limit != nil {
		if count {
			return nil, fmt.Errorf("%w: LIMIT with COUNT", ErrUnsupported)
		}
		if limit, err = parseLimit(stmt.Limit); err != nil {
			return nil, err
		}
	}

	var w where
	if stmt.Where != nil {
		if err := w.add(stmt.Where.Expr); err != nil {
			return nil, err
		}
	}
	if w.point != nil {
		if w.r.Bounded() {
			return nil, fmt.Errorf("%w: equality mixed with a range", ErrUnsupported)
		}
		return &PointGetNode{Table: table, Key: w.point, Count: count}, nil
	}
	return &RangeNode{Table: table, Range: w.r, Count: count, Limit: limit}, nil
}

// isCount accepts either "*" or "COUNT(*)" as the select list.
func isCount(exprs sqlparser.SelectExprs) (bool, error) {
	if len(exprs) != 1 {
		return false, fmt.Errorf("%w: select list %s", ErrUnsupported, sqlparser.String(exprs))
	}
	switch e := exprs[0].(type) {
	case *sqlparser.StarExpr:
		return false, nil
	case *sqlparser.AliasedExpr:
		if f, ok := e.Expr.(*sqlparser.FuncExpr); ok && f.Name.Lowered() == "count" {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: select list %s", ErrUnsupported, sqlparser.String(exprs))
}

func parseLimit(l *sqlparser.Limit) (uint64, error) {
	if l.Offset != nil {
		return 0, fmt.Errorf("%w: OFFSET", ErrUnsupported)
	}
	v, ok := l.Rowcount.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, fmt.Errorf("%w: LIMIT %s", ErrBadLiteral, sqlparser.String(l.Rowcount))
	}
	n, err := strconv.ParseUint(string(v.Val), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: LIMIT %s", ErrBadLiteral, v.Val)
	}
	return n, nil
}

// where accumulates key conditions. Bounds are exclusive, matching the
// range semantics of the storage layer.
type where struct {
	point []byte
	r     storage.Range
}

func (w *where) add(expr sqlparser.Expr) error {
	switch e := expr.(type) {
	case *sqlparser.ParenExpr:
		return w.add(e.Expr)
	case *sqlparser.AndExpr:
		if err := w.add(e.Left); err != nil {
			return err
		}
		return w.add(e.Right)
	case *sqlparser.ComparisonExpr:
		return w.compare(e)
	}
	return fmt.Errorf("%w: condition %s", ErrUnsupported, sqlparser.String(expr))
}

func (w *where) compare(e *sqlparser.ComparisonExpr) error {
	op, lit := e.Operator, e.Right
	if _, ok := e.Left.(*sqlparser.ColName); !ok {
		// 'a' < k is k > 'a'
		if _, ok := e.Right.(*sqlparser.ColName); !ok {
			return fmt.Errorf("%w: condition %s", ErrUnsupported, sqlparser.String(e))
		}
		lit = e.Left
		switch op {
		case sqlparser.LessThanStr:
			op = sqlparser.GreaterThanStr
		case sqlparser.GreaterThanStr:
			op = sqlparser.LessThanStr
		}
	}
	key, err := literal(lit)
	if err != nil {
		return err
	}

	switch op {
	case sqlparser.EqualStr:
		if w.point != nil {
			return fmt.Errorf("%w: two equality conditions", ErrUnsupported)
		}
		w.point = key
	case sqlparser.GreaterThanStr:
		if w.r.HasLower {
			return fmt.Errorf("%w: two lower bounds", ErrUnsupported)
		}
		w.r.Lower, w.r.HasLower = key, true
	case sqlparser.LessThanStr:
		if w.r.HasUpper {
			return fmt.Errorf("%w: two upper bounds", ErrUnsupported)
		}
		w.r.Upper, w.r.HasUpper = key, true
	default:
		return fmt.Errorf("%w: operator %s, bounds are exclusive", ErrUnsupported, op)
	}
	return nil
}

// literal returns the bytes of a string, integer or hex literal.
func literal(expr sqlparser.Expr) ([]byte, error) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadLiteral, sqlparser.String(expr))
	}
	switch v.Type {
	case sqlparser.StrVal, sqlparser.IntVal:
		return append([]byte{}, v.Val...), nil
	case sqlparser.HexVal:
		b, err := hex.DecodeString(string(v.Val))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadLiteral, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBadLiteral, sqlparser.String(v))
}

func buildInsertPlan(stmt *sqlparser.Insert) (PlanNode, error) {
	if n := len(stmt.Columns); n != 0 && n != 2 {
		return nil, fmt.Errorf("%w: INSERT needs (key, value) columns", ErrUnsupported)
	}
	rows, ok := stmt.Rows.(sqlparser.Values)
	if !ok {
		return nil, fmt.Errorf("%w: INSERT from SELECT", ErrUnsupported)
	}

	node := &InsertNode{Table: sqlparser.String(stmt.Table)}
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: row %s is not (key, value)", ErrUnsupported, sqlparser.String(row))
		}
		k, err := literal(row[0])
		if err != nil {
			return nil, err
		}
		v, err := literal(row[1])
		if err != nil {
			return nil, err
		}
		node.Rows = append(node.Rows, Pair{Key: k, Value: v})
	}
	return node, nil
}

func buildDeletePlan(stmt *sqlparser.Delete) (PlanNode, error) {
	if stmt.Where == nil {
		return nil, fmt.Errorf("%w: DELETE without WHERE", ErrUnsupported)
	}
	var w where
	if err := w.add(stmt.Where.Expr); err != nil {
		return nil, err
	}
	if w.point == nil || w.r.Bounded() {
		return nil, fmt.Errorf("%w: DELETE needs a single key = literal", ErrUnsupported)
	}
	return &DeleteNode{Key: w.point}, nil
}
