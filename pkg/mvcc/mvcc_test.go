package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/storage/memory"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(memory.New())
	t.Cleanup(func() { e.Close() })
	return e
}

func TestCommitVisibleToLaterTransaction(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("v1")))
	require.NoError(t, txn1.Commit())

	txn2, err := e.Begin()
	require.NoError(t, err)
	v, ok, err := txn2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(v))
}

func TestUncommittedInvisibleToOtherTransaction(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("v1")))

	txn2, err := e.Begin()
	require.NoError(t, err)
	_, ok, err := txn2.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok, "txn2 must not see txn1's uncommitted write")

	require.NoError(t, txn1.Commit())
}

func TestSnapshotIsolationIgnoresLaterCommit(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("v1")))
	require.NoError(t, txn1.Commit())

	txn2, err := e.Begin()
	require.NoError(t, err)

	txn3, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn3.Set([]byte("k"), []byte("v2")))
	require.NoError(t, txn3.Commit())

	v, ok, err := txn2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(v), "txn2's snapshot predates txn3's commit")
}

func TestRollbackDiscardsWrites(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("v1")))
	require.NoError(t, txn1.Rollback())

	txn2, err := e.Begin()
	require.NoError(t, err)
	_, ok, err := txn2.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteTombstonesAcrossCommit(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("v1")))
	require.NoError(t, txn1.Commit())

	txn2, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.Delete([]byte("k")))
	require.NoError(t, txn2.Commit())

	txn3, err := e.Begin()
	require.NoError(t, err)
	_, ok, err := txn3.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteWriteConflict(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)

	txn2, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.Set([]byte("k"), []byte("from-txn2")))
	require.NoError(t, txn2.Commit())

	err = txn1.Set([]byte("k"), []byte("from-txn1"))
	require.Error(t, err, "txn1 must not blindly overwrite a value committed after it began")
}

func TestScanPrefixOrdersAscendingAndSkipsTombstones(t *testing.T) {
	e := newEngine(t)

	txn1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("row/b"), []byte("2")))
	require.NoError(t, txn1.Set([]byte("row/a"), []byte("1")))
	require.NoError(t, txn1.Set([]byte("row/c"), []byte("3")))
	require.NoError(t, txn1.Delete([]byte("row/c")))
	require.NoError(t, txn1.Commit())

	txn2, err := e.Begin()
	require.NoError(t, err)
	entries, err := txn2.ScanPrefix([]byte("row/"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "row/a", string(entries[0].Key))
	require.Equal(t, "row/b", string(entries[1].Key))
}
