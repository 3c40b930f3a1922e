package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/mvcc"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/storage/memory"
	"github.com/embedb/embedb/pkg/types"
)

func newTxn(t *testing.T) *Transaction {
	t.Helper()
	eng := mvcc.New(memory.New())
	mtxn, err := eng.Begin()
	require.NoError(t, err)
	return New(mtxn)
}

func usersTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", DataType: types.Integer, PrimaryKey: true},
			{Name: "name", DataType: types.String, Index: true},
			{Name: "age", DataType: types.Integer, Nullable: true},
		},
	}
}

// TestCreateTableDuplicate replicates
// original_source/src/sql/engine/kv.rs's test_create_table: creating
// the same table twice is an error.
func TestCreateTableDuplicate(t *testing.T) {
	txn := newTxn(t)
	require.NoError(t, txn.CreateTable(usersTable()))
	require.Error(t, txn.CreateTable(usersTable()))
}

func TestCreateRowAndReadByID(t *testing.T) {
	txn := newTxn(t)
	require.NoError(t, txn.CreateTable(usersTable()))

	row := types.Row{types.NewInteger(1), types.NewString("alice"), types.NewInteger(30)}
	require.NoError(t, txn.CreateRow("users", row))

	got, ok, err := txn.ReadByID("users", types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, row, got)
}

func TestCreateRowDuplicatePrimaryKey(t *testing.T) {
	txn := newTxn(t)
	require.NoError(t, txn.CreateTable(usersTable()))
	row := types.Row{types.NewInteger(1), types.NewString("alice"), types.Null}
	require.NoError(t, txn.CreateRow("users", row))
	require.Error(t, txn.CreateRow("users", row))
}

func TestUpdateRowSamePrimaryKey(t *testing.T) {
	txn := newTxn(t)
	table := usersTable()
	require.NoError(t, txn.CreateTable(table))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("alice"), types.NewInteger(30)}))

	newRow := types.Row{types.NewInteger(1), types.NewString("alicia"), types.NewInteger(31)}
	require.NoError(t, txn.UpdateRow(&table, types.NewInteger(1), newRow))

	got, ok, err := txn.ReadByID("users", types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newRow, got)

	pks, err := txn.LoadIndex("users", "name", types.NewString("alicia"))
	require.NoError(t, err)
	require.Len(t, pks, 1)
	pks, err = txn.LoadIndex("users", "name", types.NewString("alice"))
	require.NoError(t, err)
	require.Empty(t, pks)
}

func TestUpdateRowChangedPrimaryKey(t *testing.T) {
	txn := newTxn(t)
	table := usersTable()
	require.NoError(t, txn.CreateTable(table))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("alice"), types.Null}))

	newRow := types.Row{types.NewInteger(2), types.NewString("alice"), types.Null}
	require.NoError(t, txn.UpdateRow(&table, types.NewInteger(1), newRow))

	_, ok, err := txn.ReadByID("users", types.NewInteger(1))
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, err := txn.ReadByID("users", types.NewInteger(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newRow, got)
}

// TestDeleteAbsentRowIsNoOp implements SPEC_FULL.md §D.5's decision:
// deleting a row that does not exist returns (0, nil), not an error.
func TestDeleteAbsentRowIsNoOp(t *testing.T) {
	txn := newTxn(t)
	table := usersTable()
	require.NoError(t, txn.CreateTable(table))

	n, err := txn.DeleteRow(&table, types.NewInteger(99))
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestIndexMaintenanceAcrossDelete(t *testing.T) {
	txn := newTxn(t)
	table := usersTable()
	require.NoError(t, txn.CreateTable(table))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("bob"), types.Null}))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(2), types.NewString("bob"), types.Null}))

	pks, err := txn.LoadIndex("users", "name", types.NewString("bob"))
	require.NoError(t, err)
	require.Len(t, pks, 2)

	n, err := txn.DeleteRow(&table, types.NewInteger(1))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pks, err = txn.LoadIndex("users", "name", types.NewString("bob"))
	require.NoError(t, err)
	require.Len(t, pks, 1)
	require.Equal(t, types.NewInteger(2), pks[0])
}

func TestScanTableWithFilter(t *testing.T) {
	txn := newTxn(t)
	require.NoError(t, txn.CreateTable(usersTable()))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("alice"), types.NewInteger(30)}))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(2), types.NewString("bob"), types.NewInteger(40)}))

	rows, err := txn.ScanTable("users", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestDropTableCascadesRows(t *testing.T) {
	txn := newTxn(t)
	require.NoError(t, txn.CreateTable(usersTable()))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("alice"), types.Null}))

	require.NoError(t, txn.DropTable("users"))
	_, err := txn.GetTable("users")
	require.Error(t, err)
}
