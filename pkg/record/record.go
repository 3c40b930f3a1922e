// Package record implements the SQL-level transactional, indexed
// record layer (SPEC_FULL.md §4.5): table metadata, row encoding, and
// automatic secondary-index maintenance layered over pkg/mvcc,
// grounded on original_source/src/sql/engine/kv.rs's KVTransaction
// (create_row/update_row/delete_row/scan_table/load_index/save_index),
// re-expressed with pkg/keycode's order-preserving key encoding instead
// of bincode-serialized key enums, and encoding/gob in place of
// bincode for the stored values themselves (SPEC_FULL.md §B).
package record

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/embedb/embedb/pkg/keycode"
	"github.com/embedb/embedb/pkg/mvcc"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Transaction is the record layer's view of a single MVCC transaction.
// It implements plan.Catalog so the planner can resolve table metadata
// through the very transaction that will go on to execute the plan
// (SPEC_FULL.md's design note on cyclic ownership).
type Transaction struct {
	txn *mvcc.Transaction
}

// New wraps an MVCC transaction with record-layer operations.
func New(txn *mvcc.Transaction) *Transaction { return &Transaction{txn: txn} }

func (t *Transaction) Version() uint64 { return t.txn.Version() }
func (t *Transaction) Commit() error    { return t.txn.Commit() }
func (t *Transaction) Rollback() error  { return t.txn.Rollback() }

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, sqlerr.Wrap(sqlerr.Internal, err, "encoding stored value")
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return sqlerr.Wrap(sqlerr.Internal, err, "decoding stored value")
	}
	return nil
}

// CreateTable persists table's metadata, failing if a table of the
// same name already exists or table fails schema.Table.Validate.
func (t *Transaction) CreateTable(table schema.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if _, ok, err := t.getTableRaw(table.Name); err != nil {
		return err
	} else if ok {
		return sqlerr.Internalf("table %s already exists", table.Name)
	}
	value, err := encodeGob(table)
	if err != nil {
		return err
	}
	return t.txn.Set(keycode.TableKey(table.Name), value)
}

func (t *Transaction) getTableRaw(name string) (schema.Table, bool, error) {
	v, ok, err := t.txn.Get(keycode.TableKey(name))
	if err != nil || !ok {
		return schema.Table{}, ok, err
	}
	var tbl schema.Table
	if err := decodeGob(v, &tbl); err != nil {
		return schema.Table{}, false, err
	}
	return tbl, true, nil
}

// GetTable returns table metadata by name, satisfying plan.Catalog; an
// unknown table is an sqlerr.Internal error, mirroring must_get_table
// in the original (every planner/executor call site needs the table
// to exist to proceed).
func (t *Transaction) GetTable(name string) (*schema.Table, error) {
	tbl, ok, err := t.getTableRaw(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sqlerr.Internalf("table %s does not exist", name)
	}
	return &tbl, nil
}

// GetTableNames returns every table name, in key (i.e. name) order.
func (t *Transaction) GetTableNames() ([]string, error) {
	entries, err := t.txn.ScanPrefix([]byte{byte(keycode.KindTable)})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		var tbl schema.Table
		if err := decodeGob(ent.Value, &tbl); err != nil {
			return nil, err
		}
		names = append(names, tbl.Name)
	}
	return names, nil
}

// DropTable enumerates and deletes every row of name (cascading
// through its indexes via DeleteRow), then removes the table metadata
// key (SPEC_FULL.md §3's lifecycle).
func (t *Transaction) DropTable(name string) error {
	table, err := t.GetTable(name)
	if err != nil {
		return err
	}
	rows, err := t.ScanTable(name, nil)
	if err != nil {
		return err
	}
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return err
	}
	pkIdx, err := table.ColumnIndex(pkCol.Name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := t.DeleteRow(table, row[pkIdx]); err != nil {
			return err
		}
	}
	return t.txn.Delete(keycode.TableKey(name))
}

// ReadByID looks up a single row by primary key.
func (t *Transaction) ReadByID(table string, pk types.Value) (types.Row, bool, error) {
	v, ok, err := t.txn.Get(keycode.RowKey(table, pk))
	if err != nil || !ok {
		return nil, ok, err
	}
	var row types.Row
	if err := decodeGob(v, &row); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// validateRow checks every column value's datatype and nullability
// against table's declared columns (SPEC_FULL.md §4.5's create_row
// validation step).
func validateRow(table *schema.Table, row types.Row) error {
	if len(row) != len(table.Columns) {
		return sqlerr.Internalf("table %s expects %d columns, got %d", table.Name, len(table.Columns), len(row))
	}
	for i, col := range table.Columns {
		if !row[i].Matches(col.DataType, col.Nullable) {
			if row[i].IsNull() {
				return sqlerr.Internalf("column %s cannot be null", col.Name)
			}
			return sqlerr.Internalf("column %s type mismatch", col.Name)
		}
	}
	return nil
}

// CreateRow validates row against table's schema, rejects a duplicate
// primary key, writes the row, then inserts its primary key into every
// indexed column's value set.
func (t *Transaction) CreateRow(tableName string, row types.Row) error {
	table, err := t.GetTable(tableName)
	if err != nil {
		return err
	}
	if err := validateRow(table, row); err != nil {
		return err
	}
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return err
	}
	pkIdx, err := table.ColumnIndex(pkCol.Name)
	if err != nil {
		return err
	}
	pk := row[pkIdx]

	key := keycode.RowKey(tableName, pk)
	if _, ok, err := t.txn.Get(key); err != nil {
		return err
	} else if ok {
		return sqlerr.Internalf("duplicate primary key %s in table %s", pk.String(), tableName)
	}

	value, err := encodeGob(row)
	if err != nil {
		return err
	}
	if err := t.txn.Set(key, value); err != nil {
		return err
	}

	for i, col := range table.Columns {
		if !col.Index {
			continue
		}
		if err := t.addToIndex(tableName, col.Name, row[i], pk); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRow applies newRow in place under oldPK, or (if newRow's
// primary key differs) re-expresses the update as delete-then-create
// (SPEC_FULL.md §4.5). Every indexed column whose value changed has
// its old-value and new-value index sets adjusted.
func (t *Transaction) UpdateRow(table *schema.Table, oldPK types.Value, newRow types.Row) error {
	if err := validateRow(table, newRow); err != nil {
		return err
	}
	pkCol, err := table.PrimaryKey()
	if err != nil {
		return err
	}
	pkIdx, err := table.ColumnIndex(pkCol.Name)
	if err != nil {
		return err
	}
	newPK := newRow[pkIdx]

	if types.Compare(oldPK, newPK) != 0 {
		if _, err := t.DeleteRow(table, oldPK); err != nil {
			return err
		}
		return t.CreateRow(table.Name, newRow)
	}

	oldRow, ok, err := t.ReadByID(table.Name, oldPK)
	if err != nil {
		return err
	}
	if ok {
		for i, col := range table.Columns {
			if !col.Index {
				continue
			}
			if types.Compare(oldRow[i], newRow[i]) == 0 {
				continue
			}
			if err := t.removeFromIndex(table.Name, col.Name, oldRow[i], oldPK); err != nil {
				return err
			}
			if err := t.addToIndex(table.Name, col.Name, newRow[i], oldPK); err != nil {
				return err
			}
		}
	}

	value, err := encodeGob(newRow)
	if err != nil {
		return err
	}
	return t.txn.Set(keycode.RowKey(table.Name, newPK), value)
}

// DeleteRow removes the row with primary key pk from table, cascading
// through every secondary index. Deleting an already-absent row is a
// no-op returning 0 affected rows, not an error (SPEC_FULL.md §D.5).
func (t *Transaction) DeleteRow(table *schema.Table, pk types.Value) (int, error) {
	row, ok, err := t.ReadByID(table.Name, pk)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	for i, col := range table.Columns {
		if !col.Index {
			continue
		}
		if err := t.removeFromIndex(table.Name, col.Name, row[i], pk); err != nil {
			return 0, err
		}
	}
	if err := t.txn.Delete(keycode.RowKey(table.Name, pk)); err != nil {
		return 0, err
	}
	return 1, nil
}

// ScanTable prefix-scans every row of tableName in primary-key order,
// decoding and optionally filtering each one. filter may be nil.
func (t *Transaction) ScanTable(tableName string, filter ast.Expression) ([]types.Row, error) {
	table, err := t.GetTable(tableName)
	if err != nil {
		return nil, err
	}
	entries, err := t.txn.ScanPrefix(keycode.RowPrefix(tableName))
	if err != nil {
		return nil, err
	}
	names := table.ColumnNames()
	rows := make([]types.Row, 0, len(entries))
	for _, ent := range entries {
		var row types.Row
		if err := decodeGob(ent.Value, &row); err != nil {
			return nil, err
		}
		if filter == nil {
			rows = append(rows, row)
			continue
		}
		keep, err := evaluateFilter(filter, names, row)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// evaluateFilter implements SPEC_FULL.md §4.5's predicate policy:
// Null or false drops the row, true keeps it, anything else is an
// error.
func evaluateFilter(expr ast.Expression, columns []string, row types.Row) (bool, error) {
	mr := make(ast.MapRow, len(columns))
	for i, name := range columns {
		mr[name] = row[i]
	}
	v, err := ast.Evaluate(expr, mr)
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

// LoadIndex returns the sorted set of primary-key values currently
// associated with (table, column, value), or nil if none.
func (t *Transaction) LoadIndex(table, column string, value types.Value) ([]types.Value, error) {
	v, ok, err := t.txn.Get(keycode.IndexKey(table, column, value))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var set []types.Value
	if err := decodeGob(v, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// SaveIndex persists pks as the set for (table, column, value), or
// deletes the key entirely when the set is empty (SPEC_FULL.md §4.5's
// invariant that empty index sets are not persisted).
func (t *Transaction) SaveIndex(table, column string, value types.Value, pks []types.Value) error {
	key := keycode.IndexKey(table, column, value)
	if len(pks) == 0 {
		return t.txn.Delete(key)
	}
	v, err := encodeGob(pks)
	if err != nil {
		return err
	}
	return t.txn.Set(key, v)
}

func (t *Transaction) addToIndex(table, column string, value, pk types.Value) error {
	set, err := t.LoadIndex(table, column, value)
	if err != nil {
		return err
	}
	for _, existing := range set {
		if types.Compare(existing, pk) == 0 {
			return nil
		}
	}
	set = append(set, pk)
	sortValues(set)
	return t.SaveIndex(table, column, value, set)
}

func (t *Transaction) removeFromIndex(table, column string, value, pk types.Value) error {
	set, err := t.LoadIndex(table, column, value)
	if err != nil {
		return err
	}
	out := set[:0]
	for _, existing := range set {
		if types.Compare(existing, pk) != 0 {
			out = append(out, existing)
		}
	}
	return t.SaveIndex(table, column, value, out)
}

func sortValues(vs []types.Value) {
	sort.Slice(vs, func(i, j int) bool { return types.Compare(vs[i], vs[j]) < 0 })
}
