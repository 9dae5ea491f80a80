package query

import (
	"fmt"

	"github.com/myuser/kvgate/internal/storage"
)

type NodeType int

const (
	NodeInsert NodeType = iota
	NodePointGet
	NodeRange
	NodeDelete
)

// PlanNode is one executable statement. Tables are parsed but ignored:
// every statement runs against the single keyspace of the open handle.
type PlanNode interface {
	Type() NodeType
	String() string
}

// Pair is one key/value row of an INSERT.
type Pair struct {
	Key   []byte
	Value []byte
}

type InsertNode struct {
	Table string
	Rows  []Pair
}

func (n *InsertNode) Type() NodeType { return NodeInsert }
func (n *InsertNode) String() string { return fmt.Sprintf("Insert(%s, %d rows)", n.Table, len(n.Rows)) }

// PointGetNode reads one key; with Count set it only tests existence.
type PointGetNode struct {
	Table string
	Key   []byte
	Count bool
}

func (n *PointGetNode) Type() NodeType { return NodePointGet }
func (n *PointGetNode) String() string {
	if n.Count {
		return fmt.Sprintf("PointCount(%s, %q)", n.Table, n.Key)
	}
	return fmt.Sprintf("PointGet(%s, %q)", n.Table, n.Key)
}

// RangeNode scans or counts the keys of Range. A Limit of zero means no
// limit.
type RangeNode struct {
	Table string
	Range storage.Range
	Count bool
	Limit uint64
}

func (n *RangeNode) Type() NodeType { return NodeRange }
func (n *RangeNode) String() string {
	op := "Scan"
	if n.Count {
		op = "Count"
	}
	if n.Limit > 0 {
		return fmt.Sprintf("%s(%s, %s, limit %d)", op, n.Table, n.Range, n.Limit)
	}
	return fmt.Sprintf("%s(%s, %s)", op, n.Table, n.Range)
}

type DeleteNode struct {
	Key []byte
}

func (n *DeleteNode) Type() NodeType { return NodeDelete }
func (n *DeleteNode) String() string { return fmt.Sprintf("Delete(%q)", n.Key) }
