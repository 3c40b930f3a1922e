package plan

import (
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Catalog is the read-only table metadata lookup the planner needs to
// choose PrimaryKeyScan / IndexScan / Scan and validate column
// references; *record.Transaction implements it.
type Catalog interface {
	GetTable(name string) (*schema.Table, error)
}

// Build rewrites stmt into a plan tree (SPEC_FULL.md §4.6).
func Build(stmt ast.Statement, cat Catalog) (Node, error) {
	switch s := stmt.(type) {
	case ast.CreateTable:
		return buildCreateTable(s)
	case ast.DropTable:
		return DropTable{Name: s.Name}, nil
	case ast.Insert:
		return Insert{Table: s.Table, Columns: s.Columns, Rows: s.Values}, nil
	case ast.Update:
		src, err := buildScanFromWhere(s.Table, s.Where, cat)
		if err != nil {
			return nil, err
		}
		return Update{Source: src, Table: s.Table, Set: s.Set}, nil
	case ast.Delete:
		src, err := buildScanFromWhere(s.Table, s.Where, cat)
		if err != nil {
			return nil, err
		}
		return Delete{Source: src, Table: s.Table}, nil
	case ast.Select:
		return buildSelect(s, cat)
	case ast.Begin:
		return Begin{}, nil
	case ast.Commit:
		return Commit{}, nil
	case ast.Rollback:
		return Rollback{}, nil
	case ast.Explain:
		inner, err := Build(s.Inner, cat)
		if err != nil {
			return nil, err
		}
		return Explain{Inner: inner}, nil
	default:
		return nil, sqlerr.Internalf("unsupported statement type %T", stmt)
	}
}

func buildCreateTable(s ast.CreateTable) (Node, error) {
	t := schema.Table{Name: s.Name}
	for _, c := range s.Columns {
		nullable := !c.PrimaryKey
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		col := schema.Column{
			Name:       c.Name,
			DataType:   c.DataType,
			Nullable:   nullable,
			PrimaryKey: c.PrimaryKey,
			Index:      c.Index && !c.PrimaryKey,
		}
		if c.Default != nil {
			v, err := ast.Evaluate(c.Default, ast.MapRow{})
			if err != nil {
				return nil, err
			}
			col.Default = &v
		}
		t.Columns = append(t.Columns, col)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return CreateTable{Table: t}, nil
}

// buildScanFromWhere builds the base scan node for UPDATE/DELETE,
// sharing the same PrimaryKeyScan/IndexScan/Scan rewrite as SELECT.
func buildScanFromWhere(table string, where ast.Expression, cat Catalog) (Node, error) {
	t, err := cat.GetTable(table)
	if err != nil {
		return nil, err
	}
	return rewriteScan(table, t, where)
}

// rewriteScan implements SPEC_FULL.md §4.6 step 2: a top-level
// Field = Const comparison against the primary key becomes a
// PrimaryKeyScan, against an indexed column becomes an IndexScan,
// otherwise falls back to a filtered Scan. Only equality is rewritten.
func rewriteScan(table string, t *schema.Table, where ast.Expression) (Node, error) {
	if op, ok := where.(ast.Operation); ok && op.Op == ast.OpEqual {
		if field, val, ok := matchFieldEqConst(op); ok {
			col, err := t.Column(field.Name)
			if err == nil {
				if col.PrimaryKey {
					return PrimaryKeyScan{Table: table, Value: val}, nil
				}
				if col.Index {
					return IndexScan{Table: table, Column: field.Name, Value: val}, nil
				}
			}
		}
	}
	return Scan{Table: table, Filter: where}, nil
}

// buildSelect implements SPEC_FULL.md §4.6 steps 1 and 3-7.
func buildSelect(s ast.Select, cat Catalog) (Node, error) {
	base, single, err := buildFrom(s.From, cat, s.Where)
	if err != nil {
		return nil, err
	}
	var node Node = base
	if !single && s.Where != nil {
		node = Filter{Source: node, Predicate: s.Where}
	}

	hasAgg := s.GroupBy != ""
	for _, se := range s.Expressions {
		if containsAggregate(se.Expr) {
			hasAgg = true
		}
	}
	if hasAgg {
		node = Aggregate{Source: node, Expressions: s.Expressions, GroupBy: s.GroupBy}
	}
	if s.Having != nil {
		node = Filter{Source: node, Predicate: s.Having}
	}
	if len(s.OrderBy) > 0 {
		node = Order{Source: node, By: s.OrderBy}
	}
	if s.Offset != nil {
		node = Offset{Source: node, N: *s.Offset}
	}
	if s.Limit != nil {
		node = Limit{Source: node, N: *s.Limit}
	}
	if len(s.Expressions) > 0 && !hasAgg {
		node = Projection{Source: node, Expressions: s.Expressions}
	}
	return node, nil
}

func containsAggregate(e ast.Expression) bool {
	switch v := e.(type) {
	case ast.Function:
		return ast.IsAggregateName(v.Name)
	case ast.Operation:
		if containsAggregate(v.Left) {
			return true
		}
		if v.Right != nil {
			return containsAggregate(v.Right)
		}
	}
	return false
}

// buildFrom builds the scan/join tree for a FROM clause. single
// reports whether item is a bare table (so the caller knows whether
// where has already been consumed by the scan rewrite, or still needs
// to be applied as a post-join Filter).
func buildFrom(item ast.FromItem, cat Catalog, where ast.Expression) (node Node, single bool, err error) {
	switch f := item.(type) {
	case ast.FromTable:
		t, err := cat.GetTable(f.Name)
		if err != nil {
			return nil, false, err
		}
		n, err := rewriteScan(f.Name, t, where)
		return n, true, err
	case ast.FromJoin:
		left, _, err := buildFrom(f.Left, cat, nil)
		if err != nil {
			return nil, false, err
		}
		right, _, err := buildFrom(f.Right, cat, nil)
		if err != nil {
			return nil, false, err
		}
		switch f.Type {
		case ast.JoinCross:
			return NestedLoopJoin{Left: left, Right: right, Predicate: f.On, Outer: false}, false, nil
		case ast.JoinInner:
			return HashJoin{Left: left, Right: right, Predicate: f.On, Outer: false}, false, nil
		case ast.JoinLeft:
			return HashJoin{Left: left, Right: right, Predicate: f.On, Outer: true}, false, nil
		case ast.JoinRight:
			// RIGHT swaps left/right and sets outer=true (SPEC_FULL.md §4.6 step 1).
			return HashJoin{Left: right, Right: left, Predicate: f.On, Outer: true}, false, nil
		default:
			return nil, false, sqlerr.Internalf("unsupported join type")
		}
	default:
		return nil, false, sqlerr.Internalf("unsupported FROM item type %T", item)
	}
}

// matchFieldEqConst recognizes `Field = Const` (either operand order).
func matchFieldEqConst(op ast.Operation) (ast.Field, types.Value, bool) {
	if f, ok := op.Left.(ast.Field); ok {
		if c, ok := op.Right.(ast.Const); ok {
			return f, c.Value, true
		}
	}
	if f, ok := op.Right.(ast.Field); ok {
		if c, ok := op.Left.(ast.Const); ok {
			return f, c.Value, true
		}
	}
	return ast.Field{}, types.Null, false
}
