package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/jsonconfig"
	"github.com/embedb/embedb/pkg/sql/result"
)

func newMemoryEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(jsonconfig.Obj{"storage": "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestSessionCreateInsertSelect(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()

	_, err := s.Execute(`CREATE TABLE users (id INT PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO users VALUES (1, 'alice')`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO users VALUES (2, 'bob')`)
	require.NoError(t, err)

	res, err := s.Execute(`SELECT * FROM users`)
	require.NoError(t, err)
	require.Equal(t, result.KindScan, res.Kind)
	require.Len(t, res.Rows, 2)
}

func TestSessionExplicitTransactionRollback(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()

	_, err := s.Execute(`CREATE TABLE t (id INT PRIMARY KEY)`)
	require.NoError(t, err)

	_, err = s.Execute(`BEGIN`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO t VALUES (1)`)
	require.NoError(t, err)
	_, err = s.Execute(`ROLLBACK`)
	require.NoError(t, err)

	res, err := s.Execute(`SELECT * FROM t`)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestSessionExplicitTransactionCommit(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()

	_, err := s.Execute(`CREATE TABLE t (id INT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = s.Execute(`BEGIN`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO t VALUES (1)`)
	require.NoError(t, err)
	_, err = s.Execute(`COMMIT`)
	require.NoError(t, err)

	res, err := s.Execute(`SELECT * FROM t`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestSessionExplain(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()
	_, err := s.Execute(`CREATE TABLE t (id INT PRIMARY KEY)`)
	require.NoError(t, err)

	res, err := s.Execute(`EXPLAIN SELECT * FROM t`)
	require.NoError(t, err)
	require.Equal(t, result.KindExplain, res.Kind)
	require.True(t, strings.Contains(res.PlanText, "SQL PLAN"))
}

func TestSessionTableNamesAndDescribe(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()
	_, err := s.Execute(`CREATE TABLE t (id INT PRIMARY KEY)`)
	require.NoError(t, err)

	names, err := s.TableNames()
	require.NoError(t, err)
	require.Equal(t, []string{"t"}, names)

	desc, err := s.DescribeTable("t")
	require.NoError(t, err)
	require.True(t, strings.Contains(desc, "CREATE TABLE t"))
}

// TestSessionOrderByAggregateAliasKeyword guards against a lexer/parser
// regression: COUNT/SUM/MIN/MAX/AVG are lexed as keywords so a bare
// function call can be recognized, but they remain usable as ordinary
// identifiers — here, as an ORDER BY reference to an aliasless avg(c)
// column, whose output label is the as-typed "avg", not the upper-cased
// keyword spelling.
func TestSessionOrderByAggregateAliasKeyword(t *testing.T) {
	e := newMemoryEngine(t)
	s := e.NewSession()

	_, err := s.Execute(`CREATE TABLE t (a INT PRIMARY KEY, b TEXT, c INT)`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO t VALUES (1, 'x', 10)`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO t VALUES (2, 'x', 20)`)
	require.NoError(t, err)
	_, err = s.Execute(`INSERT INTO t VALUES (3, 'y', 5)`)
	require.NoError(t, err)

	res, err := s.Execute(`SELECT b,min(c),max(a),avg(c) FROM t GROUP BY b ORDER BY avg`)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "min", "max", "avg"}, res.Columns)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "y", res.Rows[0][0].String())
	require.Equal(t, "x", res.Rows[1][0].String())
}

func TestOpenBitcaskRequiresPath(t *testing.T) {
	_, err := Open(jsonconfig.Obj{"storage": "bitcask"})
	require.Error(t, err)
}
