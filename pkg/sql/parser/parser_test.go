package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/types"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INT NULL DEFAULT 0, email TEXT INDEX)`)
	require.NoError(t, err)
	ct, ok := stmt.(ast.CreateTable)
	require.True(t, ok)
	require.Equal(t, "users", ct.Name)
	require.Len(t, ct.Columns, 4)
	require.True(t, ct.Columns[0].PrimaryKey)
	require.NotNil(t, ct.Columns[1].Nullable)
	require.False(t, *ct.Columns[1].Nullable)
	require.True(t, ct.Columns[3].Index)
}

func TestParseInsertPositional(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users VALUES (1, 'alice', 30)`)
	require.NoError(t, err)
	ins, ok := stmt.(ast.Insert)
	require.True(t, ok)
	require.Nil(t, ins.Columns)
	require.Len(t, ins.Values, 1)
	require.Len(t, ins.Values[0], 3)
	c, ok := ins.Values[0][1].(ast.Const)
	require.True(t, ok)
	require.Equal(t, types.NewString("alice"), c.Value)
}

func TestParseInsertWithColumnList(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users (id, name) VALUES (1, 'bob'), (2, 'carol')`)
	require.NoError(t, err)
	ins := stmt.(ast.Insert)
	require.Equal(t, []string{"id", "name"}, ins.Columns)
	require.Len(t, ins.Values, 2)
}

func TestParseSelectWhereOrderLimitOffset(t *testing.T) {
	stmt, err := Parse(`SELECT id, name FROM users WHERE age > 18 ORDER BY name DESC LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	require.Len(t, sel.Expressions, 2)
	require.NotNil(t, sel.Where)
	require.Len(t, sel.OrderBy, 1)
	require.True(t, sel.OrderBy[0].Desc)
	require.NotNil(t, sel.Limit)
	require.Equal(t, int64(10), *sel.Limit)
	require.NotNil(t, sel.Offset)
	require.Equal(t, int64(5), *sel.Offset)
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	require.Empty(t, sel.Expressions)
	ft, ok := sel.From.(ast.FromTable)
	require.True(t, ok)
	require.Equal(t, "users", ft.Name)
}

func TestParseJoins(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users INNER JOIN orders ON users.id = orders.user_id`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	fj, ok := sel.From.(ast.FromJoin)
	require.True(t, ok)
	require.Equal(t, ast.JoinInner, fj.Type)
	require.NotNil(t, fj.On)
}

func TestParseGroupByHavingAggregate(t *testing.T) {
	stmt, err := Parse(`SELECT name, COUNT(*) AS n FROM users GROUP BY name HAVING COUNT(*) > 1`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	require.Equal(t, "name", sel.GroupBy)
	require.NotNil(t, sel.Having)
	require.Len(t, sel.Expressions, 2)
	fn, ok := sel.Expressions[1].Expr.(ast.Function)
	require.True(t, ok)
	require.Equal(t, "COUNT", fn.Name)
	require.Equal(t, "n", sel.Expressions[1].Alias)
}

func TestParseUpdateAndDelete(t *testing.T) {
	stmt, err := Parse(`UPDATE users SET age = age + 1 WHERE id = 1`)
	require.NoError(t, err)
	upd := stmt.(ast.Update)
	require.Contains(t, upd.Set, "age")
	require.NotNil(t, upd.Where)

	stmt, err = Parse(`DELETE FROM users WHERE id = 1`)
	require.NoError(t, err)
	del := stmt.(ast.Delete)
	require.Equal(t, "users", del.Table)
}

func TestParseTransactionControl(t *testing.T) {
	for _, sql := range []string{"BEGIN", "COMMIT", "ROLLBACK"} {
		_, err := Parse(sql)
		require.NoError(t, err)
	}
}

func TestParseExplain(t *testing.T) {
	stmt, err := Parse(`EXPLAIN SELECT * FROM users`)
	require.NoError(t, err)
	ex, ok := stmt.(ast.Explain)
	require.True(t, ok)
	_, ok = ex.Inner.(ast.Select)
	require.True(t, ok)
}

func TestParseComparisonOperators(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE age >= 18 AND age <= 65 AND name != 'x'`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	require.NotNil(t, sel.Where)
}

// TestParseOrderByAggregateNameKeyword guards against treating
// COUNT/SUM/MIN/MAX/AVG as reserved words: ORDER BY must still accept
// one of them used as a plain column/alias reference.
func TestParseOrderByAggregateNameKeyword(t *testing.T) {
	stmt, err := Parse(`SELECT b,min(c),max(a),avg(c) FROM t GROUP BY b ORDER BY avg`)
	require.NoError(t, err)
	sel := stmt.(ast.Select)
	require.Equal(t, "b", sel.GroupBy)
	require.Len(t, sel.OrderBy, 1)
	require.Equal(t, "avg", sel.OrderBy[0].Column)

	fn, ok := sel.Expressions[3].Expr.(ast.Function)
	require.True(t, ok)
	require.Equal(t, "AVG", fn.Name)
	require.Equal(t, "avg", fn.Label)
}

func TestParseAllSplitsOnSemicolons(t *testing.T) {
	stmts, err := ParseAll(`CREATE TABLE t (id INT PRIMARY KEY); INSERT INTO t VALUES (1); SELECT * FROM t;`)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`SELECT * FROM users; DROP TABLE users`)
	require.Error(t, err)
}
