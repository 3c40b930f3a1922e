package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/mvcc"
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/storage/memory"
	"github.com/embedb/embedb/pkg/types"
)

func newTxn(t *testing.T) *record.Transaction {
	t.Helper()
	eng := mvcc.New(memory.New())
	mtxn, err := eng.Begin()
	require.NoError(t, err)
	return record.New(mtxn)
}

func seedUsers(t *testing.T, txn *record.Transaction) {
	t.Helper()
	table := schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", DataType: types.Integer, PrimaryKey: true},
			{Name: "name", DataType: types.String, Index: true},
			{Name: "age", DataType: types.Integer, Nullable: true},
		},
	}
	require.NoError(t, txn.CreateTable(table))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(1), types.NewString("alice"), types.NewInteger(30)}))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(2), types.NewString("bob"), types.NewInteger(40)}))
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(3), types.NewString("carol"), types.Null}))
}

// TestScanAndFilter replicates original_source/src/sql/executor/
// query.rs's Scan/Filter tests: a WHERE predicate over a table scan.
func TestScanAndFilter(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.Filter{
		Source:    plan.Scan{Table: "users"},
		Predicate: ast.Operation{Op: ast.OpGreaterThan, Left: ast.Field{Name: "age"}, Right: ast.Const{Value: types.NewInteger(30)}},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, types.NewString("bob"), res.Rows[0][1])
}

func TestPrimaryKeyScanCoercesIntegralFloat(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.PrimaryKeyScan{Table: "users", Value: types.NewFloat(2.0)}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, types.NewString("bob"), res.Rows[0][1])
}

func TestIndexScanReturnsAllMatches(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)
	require.NoError(t, txn.CreateRow("users", types.Row{types.NewInteger(4), types.NewString("bob"), types.NewInteger(22)}))

	node := plan.IndexScan{Table: "users", Column: "name", Value: types.NewString("bob")}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

func TestProjectionRenamesAndReordersColumns(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.Projection{
		Source: plan.Scan{Table: "users"},
		Expressions: []ast.SelectExpr{
			{Expr: ast.Field{Name: "name"}, Alias: "who"},
			{Expr: ast.Field{Name: "id"}},
		},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Equal(t, []string{"who", "id"}, res.Columns)
	require.Equal(t, types.NewString("alice"), res.Rows[0][0])
}

func TestOrderNullsSortLast(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.Order{
		Source: plan.Scan{Table: "users"},
		By:     []ast.OrderExpr{{Column: "age"}},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	require.Equal(t, types.NewInteger(30), res.Rows[0][2])
	require.Equal(t, types.NewInteger(40), res.Rows[1][2])
	require.True(t, res.Rows[2][2].IsNull())
}

func TestLimitOffset(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	ordered := plan.Order{Source: plan.Scan{Table: "users"}, By: []ast.OrderExpr{{Column: "id"}}}
	node := plan.Limit{Source: plan.Offset{Source: ordered, N: 1}, N: 1}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, types.NewInteger(2), res.Rows[0][0])
}

// TestNestedLoopJoinCross replicates original_source/src/sql/executor/
// join.rs's test_cross_join.
func TestNestedLoopJoinCross(t *testing.T) {
	txn := newTxn(t)
	table := schema.Table{
		Name: "nums",
		Columns: []schema.Column{
			{Name: "n", DataType: types.Integer, PrimaryKey: true},
		},
	}
	require.NoError(t, txn.CreateTable(table))
	require.NoError(t, txn.CreateRow("nums", types.Row{types.NewInteger(1)}))
	require.NoError(t, txn.CreateRow("nums", types.Row{types.NewInteger(2)}))

	node := plan.NestedLoopJoin{Left: plan.Scan{Table: "nums"}, Right: plan.Scan{Table: "nums"}}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)
}

// TestHashJoinInner replicates original_source/src/sql/executor/
// join.rs's test_join over an equi-join predicate.
func TestHashJoinInner(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)
	orders := schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", DataType: types.Integer, PrimaryKey: true},
			{Name: "user_id", DataType: types.Integer},
		},
	}
	require.NoError(t, txn.CreateTable(orders))
	require.NoError(t, txn.CreateRow("orders", types.Row{types.NewInteger(100), types.NewInteger(1)}))
	require.NoError(t, txn.CreateRow("orders", types.Row{types.NewInteger(101), types.NewInteger(2)}))

	node := plan.HashJoin{
		Left:  plan.Scan{Table: "users"},
		Right: plan.Scan{Table: "orders"},
		Predicate: ast.Operation{
			Op:   ast.OpEqual,
			Left: ast.Field{Name: "id"}, Right: ast.Field{Name: "user_id"},
		},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

func TestHashJoinRejectsNonEquiPredicate(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.HashJoin{
		Left:  plan.Scan{Table: "users"},
		Right: plan.Scan{Table: "users"},
		Predicate: ast.Operation{
			Op:   ast.OpGreaterThan,
			Left: ast.Field{Name: "id"}, Right: ast.Field{Name: "age"},
		},
	}
	_, err := Execute(node, txn)
	require.Error(t, err)
}

// TestAggregateCountStarWithoutGroupBy checks that COUNT(*) with no
// GROUP BY yields a single row counting every input row, Null ages
// included.
func TestAggregateCountStarWithoutGroupBy(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.Aggregate{
		Source: plan.Scan{Table: "users"},
		Expressions: []ast.SelectExpr{
			{Expr: ast.Function{Name: "COUNT"}, Alias: "n"},
		},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, types.NewInteger(3), res.Rows[0][0])
}

func TestAggregateAvgIgnoresNull(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	node := plan.Aggregate{
		Source:      plan.Scan{Table: "users"},
		Expressions: []ast.SelectExpr{{Expr: ast.Function{Name: "AVG", Arg: ast.Field{Name: "age"}}, Alias: "avg_age"}},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Equal(t, types.NewFloat(35), res.Rows[0][0])
}

func TestInsertPadsDefaults(t *testing.T) {
	txn := newTxn(t)
	def := types.NewInteger(0)
	table := schema.Table{
		Name: "counters",
		Columns: []schema.Column{
			{Name: "id", DataType: types.Integer, PrimaryKey: true},
			{Name: "count", DataType: types.Integer, Default: &def},
		},
	}
	require.NoError(t, txn.CreateTable(table))

	node := plan.Insert{
		Table: "counters",
		Rows:  [][]ast.Expression{{ast.Const{Value: types.NewInteger(1)}}},
	}
	res, err := Execute(node, txn)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	row, ok, err := txn.ReadByID("counters", types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.NewInteger(0), row[1])
}

func TestUpdateAndDelete(t *testing.T) {
	txn := newTxn(t)
	seedUsers(t, txn)

	updateNode := plan.Update{
		Source: plan.PrimaryKeyScan{Table: "users", Value: types.NewInteger(1)},
		Table:  "users",
		Set:    map[string]ast.Expression{"age": ast.Const{Value: types.NewInteger(99)}},
	}
	res, err := Execute(updateNode, txn)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	row, ok, err := txn.ReadByID("users", types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.NewInteger(99), row[2])

	deleteNode := plan.Delete{Source: plan.PrimaryKeyScan{Table: "users", Value: types.NewInteger(1)}, Table: "users"}
	delRes, err := Execute(deleteNode, txn)
	require.NoError(t, err)
	require.Equal(t, 1, delRes.Count)

	_, ok, err = txn.ReadByID("users", types.NewInteger(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateAndDropTable(t *testing.T) {
	txn := newTxn(t)
	table := schema.Table{Name: "t", Columns: []schema.Column{{Name: "id", DataType: types.Integer, PrimaryKey: true}}}

	res, err := Execute(plan.CreateTable{Table: table}, txn)
	require.NoError(t, err)
	require.Equal(t, "t", res.TableName)

	res, err = Execute(plan.DropTable{Name: "t"}, txn)
	require.NoError(t, err)
	require.Equal(t, "t", res.TableName)
}
