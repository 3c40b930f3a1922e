// Package plan builds a tree of relational operators (Node) from a
// parsed ast.Statement (SPEC_FULL.md §4.6), grounded on
// _examples/original_source/src/sql/plan/{mod,planner}.rs: the same
// bottom-up construction and scan/join rewrite rules, re-expressed as
// a Go interface-typed Node rather than a Rust enum, the idiomatic Go
// analogue (accept an interface, dispatch on concrete type at the
// executor).
package plan

import (
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/types"
)

// Node is any node in a logical plan tree.
type Node interface{ isNode() }

type Scan struct {
	Table  string
	Filter ast.Expression // nil means no filter
}

type IndexScan struct {
	Table, Column string
	Value         types.Value
}

type PrimaryKeyScan struct {
	Table string
	Value types.Value
}

type Filter struct {
	Source    Node
	Predicate ast.Expression
}

type Projection struct {
	Source      Node
	Expressions []ast.SelectExpr
}

type Order struct {
	Source Node
	By     []ast.OrderExpr
}

type Limit struct {
	Source Node
	N      int64
}

type Offset struct {
	Source Node
	N      int64
}

type NestedLoopJoin struct {
	Left, Right Node
	Predicate   ast.Expression // nil for CROSS JOIN
	Outer       bool
}

// HashJoin's Predicate is parsed into a Field=Field column pair by the
// executor at execution time (not by the planner), mirroring
// _examples/original_source/src/sql/executor/join.rs's
// parse_join_filter — the executor has the row schemas in hand to
// resolve which side each field belongs to.
type HashJoin struct {
	Left, Right Node
	Predicate   ast.Expression
	Outer       bool
}

type Aggregate struct {
	Source      Node
	Expressions []ast.SelectExpr
	GroupBy     string // "" means no GROUP BY
}

type Insert struct {
	Table   string
	Columns []string
	Rows    [][]ast.Expression
}

type Update struct {
	Source Node
	Table  string
	Set    map[string]ast.Expression
}

type Delete struct {
	Source Node
	Table  string
}

type CreateTable struct {
	Table schema.Table
}

type DropTable struct {
	Name string
}

type Begin struct{}
type Commit struct{}
type Rollback struct{}

type Explain struct {
	Inner Node
}

func (Scan) isNode()           {}
func (IndexScan) isNode()      {}
func (PrimaryKeyScan) isNode() {}
func (Filter) isNode()         {}
func (Projection) isNode()     {}
func (Order) isNode()          {}
func (Limit) isNode()          {}
func (Offset) isNode()         {}
func (NestedLoopJoin) isNode() {}
func (HashJoin) isNode()       {}
func (Aggregate) isNode()      {}
func (Insert) isNode()         {}
func (Update) isNode()         {}
func (Delete) isNode()         {}
func (CreateTable) isNode()    {}
func (DropTable) isNode()      {}
func (Begin) isNode()          {}
func (Commit) isNode()         {}
func (Rollback) isNode()       {}
func (Explain) isNode()        {}
