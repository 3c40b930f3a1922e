package executor

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// combine concatenates left's and right's column lists (concatRows does
// the same for one row from each side), the shape both join operators
// below produce.
func combine(leftCols, rightCols []string) []string {
	out := make([]string, 0, len(leftCols)+len(rightCols))
	out = append(out, leftCols...)
	out = append(out, rightCols...)
	return out
}

func concatRows(left, right types.Row) types.Row {
	out := make(types.Row, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func nullRow(n int) types.Row {
	out := make(types.Row, n)
	for i := range out {
		out[i] = types.Null
	}
	return out
}

// execNestedLoopJoin pairs every left row with every right row,
// keeping pairs where predicate is true (or all pairs, for a CROSS
// JOIN's nil predicate); an outer join pads unmatched left rows with
// Nulls sized to the right side's width (SPEC_FULL.md §4.7, grounded
// on original_source/src/sql/executor/join.rs's NestedLoopJoin).
func execNestedLoopJoin(n plan.NestedLoopJoin, txn *record.Transaction) (*result.Set, error) {
	left, err := runScan(n.Left, txn)
	if err != nil {
		return nil, err
	}
	right, err := runScan(n.Right, txn)
	if err != nil {
		return nil, err
	}
	columns := combine(left.Columns, right.Columns)
	var rows []types.Row
	for _, lrow := range left.Rows {
		matched := false
		for _, rrow := range right.Rows {
			if n.Predicate != nil {
				ok, err := evalPredicate(n.Predicate, columns, concatRows(lrow, rrow))
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			matched = true
			rows = append(rows, concatRows(lrow, rrow))
		}
		if !matched && n.Outer {
			rows = append(rows, concatRows(lrow, nullRow(len(right.Columns))))
		}
	}
	return result.Scan(columns, rows), nil
}

// execHashJoin builds a hash map over the right side keyed by the
// equi-join column, then probes it with each left row. The predicate
// must have the shape Field = Field (either operand order); anything
// else is rejected (SPEC_FULL.md §D.4, grounded on
// original_source/src/sql/executor/join.rs's parse_join_filter).
func execHashJoin(n plan.HashJoin, txn *record.Transaction) (*result.Set, error) {
	left, err := runScan(n.Left, txn)
	if err != nil {
		return nil, err
	}
	right, err := runScan(n.Right, txn)
	if err != nil {
		return nil, err
	}
	leftCol, rightCol, err := parseJoinFilter(n.Predicate, left.Columns, right.Columns)
	if err != nil {
		return nil, err
	}

	type bucket struct{ rows []types.Row }
	index := make(map[string]*bucket)
	for _, rrow := range right.Rows {
		key := hashKey(rrow[rightCol])
		b, ok := index[key]
		if !ok {
			b = &bucket{}
			index[key] = b
		}
		b.rows = append(b.rows, rrow)
	}

	columns := combine(left.Columns, right.Columns)
	var rows []types.Row
	for _, lrow := range left.Rows {
		lv := lrow[leftCol]
		b, ok := index[hashKey(lv)]
		matched := false
		if ok && !lv.IsNull() {
			for _, rrow := range b.rows {
				eq, truthy := types.Equal(lv, rrow[rightCol]).IsTruthy()
				if truthy && eq {
					matched = true
					rows = append(rows, concatRows(lrow, rrow))
				}
			}
		}
		if matched {
			continue
		}
		if n.Outer {
			rows = append(rows, concatRows(lrow, nullRow(len(right.Columns))))
		}
	}
	return result.Scan(columns, rows), nil
}

// parseJoinFilter recognizes a top-level Field = Field predicate and
// resolves each field to a column position on its own side.
func parseJoinFilter(pred ast.Expression, leftCols, rightCols []string) (leftIdx, rightIdx int, err error) {
	op, ok := pred.(ast.Operation)
	if !ok || op.Op != ast.OpEqual {
		return 0, 0, sqlerr.Internalf("HASH JOIN requires an equi-join predicate of the form column = column")
	}
	lf, lok := op.Left.(ast.Field)
	rf, rok := op.Right.(ast.Field)
	if !lok || !rok {
		return 0, 0, sqlerr.Internalf("HASH JOIN requires an equi-join predicate of the form column = column")
	}
	li := indexOf(leftCols, lf.Name)
	ri := indexOf(rightCols, rf.Name)
	if li >= 0 && ri >= 0 {
		return li, ri, nil
	}
	// Operand order may be swapped relative to left/right side.
	li = indexOf(rightCols, lf.Name)
	ri = indexOf(leftCols, rf.Name)
	if li >= 0 && ri >= 0 {
		return ri, li, nil
	}
	return 0, 0, sqlerr.Internalf("HASH JOIN predicate columns %s, %s do not match either side of the join", lf.Name, rf.Name)
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

func hashKey(v types.Value) string {
	return v.DataType().String() + ":" + v.String()
}
