package executor

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// execInsert evaluates each VALUES tuple into a row and hands it to the
// record layer, grounded on original_source/src/sql/executor/
// mutation.rs's Insert (and its pad_row/make_row helpers).
func execInsert(n plan.Insert, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	count := 0
	for _, exprs := range n.Rows {
		values := make([]types.Value, len(exprs))
		for i, e := range exprs {
			v, err := ast.Evaluate(e, ast.MapRow{})
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		var row types.Row
		if n.Columns == nil {
			row, err = padRow(table, values)
		} else {
			row, err = makeRow(table, n.Columns, values)
		}
		if err != nil {
			return nil, err
		}
		if err := txn.CreateRow(n.Table, row); err != nil {
			return nil, err
		}
		count++
	}
	return result.Insert(count), nil
}

// padRow fills in a positional VALUES list (no column list given),
// using each remaining column's default for every column not given a
// value (Null for a nullable column with no declared default). Erroring
// when a column beyond the given values is neither defaulted nor
// nullable mirrors original_source/src/sql/executor/mutation.rs's pad_row.
func padRow(table *schema.Table, values []types.Value) (types.Row, error) {
	if len(values) > len(table.Columns) {
		return nil, sqlerr.Internalf("table %s has %d columns, got %d values", table.Name, len(table.Columns), len(values))
	}
	row := make(types.Row, len(table.Columns))
	for i, col := range table.Columns {
		if i < len(values) {
			row[i] = values[i]
			continue
		}
		v, err := defaultFor(col)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// makeRow binds each named column to its VALUES position and fills
// every other column from its default (Null for a nullable column with
// no declared default), erroring if any column is neither named,
// defaulted nor nullable (original_source/src/sql/executor/
// mutation.rs's make_row).
func makeRow(table *schema.Table, columns []string, values []types.Value) (types.Row, error) {
	if len(columns) != len(values) {
		return nil, sqlerr.Internalf("column list has %d names but %d values were given", len(columns), len(values))
	}
	given := make(map[string]types.Value, len(columns))
	for i, name := range columns {
		if _, err := table.ColumnIndex(name); err != nil {
			return nil, err
		}
		given[name] = values[i]
	}
	row := make(types.Row, len(table.Columns))
	for i, col := range table.Columns {
		if v, ok := given[col.Name]; ok {
			row[i] = v
			continue
		}
		v, err := defaultFor(col)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func defaultFor(col schema.Column) (types.Value, error) {
	if col.Default != nil {
		return *col.Default, nil
	}
	if col.Nullable {
		return types.Null, nil
	}
	return types.Null, sqlerr.Internalf("column %s has no default value", col.Name)
}

// execUpdate overlays each SET expression onto every row the source
// scan produced, then writes each resulting row back through
// UpdateRow (which itself re-expresses a primary-key change as
// delete-then-create), grounded on original_source/src/sql/executor/
// mutation.rs's Update.
func execUpdate(n plan.Update, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return nil, err
	}
	pkIdx, err := table.ColumnIndex(pkCol.Name)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, row := range src.Rows {
		oldPK := row[pkIdx]
		newRow := row.Clone()
		for i, col := range table.Columns {
			expr, ok := n.Set[col.Name]
			if !ok {
				continue
			}
			v, err := ast.Evaluate(expr, rowOf(src.Columns, row))
			if err != nil {
				return nil, err
			}
			newRow[i] = v
		}
		if err := txn.UpdateRow(table, oldPK, newRow); err != nil {
			return nil, err
		}
		count++
	}
	return result.Update(count), nil
}

// execDelete removes every row the source scan produced by primary
// key, grounded on original_source/src/sql/executor/mutation.rs's
// Delete.
func execDelete(n plan.Delete, txn *record.Transaction) (*result.Set, error) {
	table, err := txn.GetTable(n.Table)
	if err != nil {
		return nil, err
	}
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return nil, err
	}
	pkIdx, err := table.ColumnIndex(pkCol.Name)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, row := range src.Rows {
		affected, err := txn.DeleteRow(table, row[pkIdx])
		if err != nil {
			return nil, err
		}
		count += affected
	}
	return result.Delete(count), nil
}
