package executor

import (
	"sort"

	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// execScan prefix-scans a whole table, pushing an optional WHERE filter
// down into the record layer (SPEC_FULL.md §4.7, grounded on
// original_source/src/sql/executor/query.rs's Scan).
func execScan(n plan.Scan, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	rows, err := txn.ScanTable(n.Table, n.Filter)
	if err != nil {
		return nil, err
	}
	return result.Scan(table.ColumnNames(), rows), nil
}

// execIndexScan reads a secondary index's primary-key set (already
// sorted) and fetches each row by id, grounded on
// original_source/src/sql/executor/query.rs's IndexScan.
func execIndexScan(n plan.IndexScan, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	pks, err := txn.LoadIndex(n.Table, n.Column, n.Value)
	if err != nil {
		return nil, err
	}
	rows := make([]types.Row, 0, len(pks))
	for _, pk := range pks {
		row, ok, err := txn.ReadByID(n.Table, pk)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return result.Scan(table.ColumnNames(), rows), nil
}

// execPrimaryKeyScan fetches a single row by id, coercing an integral
// float literal to Integer first (SPEC_FULL.md §D.2's decision to keep
// this coercion, grounded on
// original_source/src/sql/executor/query.rs's PrimaryKeyScan).
func execPrimaryKeyScan(n plan.PrimaryKeyScan, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	pk := coerceToPK(table, n.Value)
	row, ok, err := txn.ReadByID(n.Table, pk)
	if err != nil {
		return nil, err
	}
	var rows []types.Row
	if ok {
		rows = []types.Row{row}
	}
	return result.Scan(table.ColumnNames(), rows), nil
}

func coerceToPK(table *schema.Table, v types.Value) types.Value {
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return v
	}
	if pkCol.DataType == types.Integer && v.DataType() == types.Float && v.IsIntegralFloat() {
		if iv, ok := v.AsInteger(); ok {
			return iv
		}
	}
	return v
}

// execFilter re-evaluates predicate row by row against an already
// materialized Scan result (used for post-join WHERE and HAVING).
func execFilter(n plan.Filter, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	kept := make([]types.Row, 0, len(src.Rows))
	for _, row := range src.Rows {
		ok, err := evalPredicate(n.Predicate, src.Columns, row)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, row)
		}
	}
	return result.Scan(src.Columns, kept), nil
}

// evalPredicate implements the WHERE/HAVING policy: Null or false drops
// the row, true keeps it, anything else is an internal error.
func evalPredicate(expr ast.Expression, columns []string, row types.Row) (bool, error) {
	v, err := ast.Evaluate(expr, rowOf(columns, row))
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	b, ok := v.IsTruthy()
	if !ok {
		return false, sqlerr.Internalf("WHERE/HAVING expression did not evaluate to a boolean")
	}
	return b, nil
}

func rowOf(columns []string, row types.Row) ast.MapRow {
	mr := make(ast.MapRow, len(columns))
	for i, name := range columns {
		mr[name] = row[i]
	}
	return mr
}

// execProjection reorders/renames columns according to (Field, alias?)
// pairs, erroring if a named column is absent from the input — the
// Projection operator only accepts bare column references, grounded on
// original_source/src/sql/executor/query.rs's Projection.
func execProjection(n plan.Projection, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(n.Expressions))
	names := make([]string, len(n.Expressions))
	for i, se := range n.Expressions {
		field, ok := se.Expr.(ast.Field)
		if !ok {
			return nil, sqlerr.Internalf("projection expression must be a column reference")
		}
		pos := -1
		for j, c := range src.Columns {
			if c == field.Name {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, sqlerr.Internalf("unknown column %q", field.Name)
		}
		idx[i] = pos
		if se.Alias != "" {
			names[i] = se.Alias
		} else {
			names[i] = field.Name
		}
	}
	rows := make([]types.Row, len(src.Rows))
	for r, row := range src.Rows {
		out := make(types.Row, len(idx))
		for i, pos := range idx {
			out[i] = row[pos]
		}
		rows[r] = out
	}
	return result.Scan(names, rows), nil
}

// execOrder sorts rows by successive (column, direction) keys, Null
// sorting last within an ascending key and first within a descending
// one (SPEC_FULL.md §D.1's decision to give
// Order a total order rather than leaving unordered rows untouched).
func execOrder(n plan.Order, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	positions := make([]int, len(n.By))
	for i, ord := range n.By {
		pos := -1
		for j, c := range src.Columns {
			if c == ord.Column {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, sqlerr.Internalf("unknown ORDER BY column %q", ord.Column)
		}
		positions[i] = pos
	}
	rows := append([]types.Row(nil), src.Rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for i, ord := range n.By {
			pos := positions[i]
			cmp := types.Compare(rows[a][pos], rows[b][pos])
			if cmp == 0 {
				continue
			}
			if ord.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return result.Scan(src.Columns, rows), nil
}

func execLimit(n plan.Limit, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	if n.N < 0 {
		return nil, sqlerr.Internalf("LIMIT must not be negative")
	}
	rows := src.Rows
	if int64(len(rows)) > n.N {
		rows = rows[:n.N]
	}
	return result.Scan(src.Columns, rows), nil
}

func execOffset(n plan.Offset, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	if n.N < 0 {
		return nil, sqlerr.Internalf("OFFSET must not be negative")
	}
	rows := src.Rows
	if int64(len(rows)) <= n.N {
		rows = nil
	} else {
		rows = rows[n.N:]
	}
	return result.Scan(src.Columns, rows), nil
}
