// Package ast defines the statement and expression tree that is the
// planner's input (SPEC_FULL.md explicitly scopes lexing/parsing out
// of the core, but the AST shape itself is the contract the planner
// depends on), grounded on
// _examples/original_source/src/sql/parser/ast.rs.
package ast

import "github.com/embedb/embedb/pkg/types"

// Statement is any top-level SQL statement the planner accepts.
type Statement interface{ isStatement() }

type CreateTable struct {
	Name    string
	Columns []ColumnSpec
}

type ColumnSpec struct {
	Name       string
	DataType   types.DataType
	PrimaryKey bool
	Nullable   *bool // nil means "not given": the planner makes the column nullable unless it is the primary key
	Default    Expression
	Index      bool
}

type DropTable struct {
	Name string
}

type Insert struct {
	Table   string
	Columns []string // nil means "no column list given"
	Values  [][]Expression
}

type Update struct {
	Table string
	Set   map[string]Expression
	Where Expression // nil means no WHERE
}

type Delete struct {
	Table string
	Where Expression
}

type Select struct {
	Expressions []SelectExpr
	From        FromItem
	Where       Expression
	GroupBy     string // "" means none
	Having      Expression
	OrderBy     []OrderExpr
	Limit       *int64
	Offset      *int64
}

type SelectExpr struct {
	Expr  Expression
	Alias string // "" means no alias
}

type OrderExpr struct {
	Column string
	Desc   bool
}

// FromItem is either a bare table or a join of two FromItems.
type FromItem interface{ isFromItem() }

type FromTable struct {
	Name string
}

type JoinType int

const (
	JoinCross JoinType = iota
	JoinInner
	JoinLeft
	JoinRight
)

type FromJoin struct {
	Left, Right FromItem
	Type        JoinType
	On          Expression // nil for CROSS JOIN
}

type Begin struct{}
type Commit struct{}
type Rollback struct{}
type Explain struct {
	Inner Statement
}

func (CreateTable) isStatement() {}
func (DropTable) isStatement()   {}
func (Insert) isStatement()      {}
func (Update) isStatement()      {}
func (Delete) isStatement()      {}
func (Select) isStatement()      {}
func (Begin) isStatement()       {}
func (Commit) isStatement()      {}
func (Rollback) isStatement()    {}
func (Explain) isStatement()     {}

func (FromTable) isFromItem() {}
func (FromJoin) isFromItem()  {}

// Expression is the common interface for value-producing expressions.
type Expression interface{ isExpression() }

// Const is a literal value.
type Const struct {
	Value types.Value
}

// Field references a column, optionally qualified by table name.
type Field struct {
	Table string // "" means unqualified
	Name  string
}

type Op int

const (
	OpEqual Op = iota
	OpGreaterThan
	OpLessThan
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

// Operation is a unary or binary operator application.
type Operation struct {
	Op          Op
	Left, Right Expression // Right is nil for unary operators
}

// Function is a call such as COUNT(col), SUM(col), MIN, MAX, AVG.
type Function struct {
	Name  string
	Arg   Expression // nil for COUNT(*)
	Label string     // as-typed spelling of Name (e.g. "avg"), used for an aliasless output column
}

func (Const) isExpression()     {}
func (Field) isExpression()     {}
func (Operation) isExpression() {}
func (Function) isExpression()  {}

// IsAggregateName reports whether name is one of the supported aggregate
// function names (case-insensitive callers should upper-case first).
func IsAggregateName(name string) bool {
	switch name {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
		return true
	}
	return false
}
