package bitcask

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/storage"
)

func openTemp(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")
	e, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, path
}

func TestSetGetDelete(t *testing.T) {
	e, _ := openTemp(t)

	_, ok, err := e.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, e.Set([]byte("aa"), []byte("value1")))
	v, ok, err := e.Get([]byte("aa"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value1", string(v))

	require.NoError(t, e.Delete([]byte("aa")))
	_, ok, err = e.Get([]byte("aa"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScanOrderedAndDoubleEnded(t *testing.T) {
	e, _ := openTemp(t)
	for _, kv := range [][2]string{{"bb", "2"}, {"aa", "1"}, {"cc", "3"}} {
		require.NoError(t, e.Set([]byte(kv[0]), []byte(kv[1])))
	}

	it, err := e.Scan(nil, nil)
	require.NoError(t, err)
	entries, err := storage.Collect(it)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "aa", string(entries[0].Key))
	require.Equal(t, "bb", string(entries[1].Key))
	require.Equal(t, "cc", string(entries[2].Key))

	it2, err := e.Scan(nil, nil)
	require.NoError(t, err)
	k, v, ok, err := it2.Prev()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cc", string(k))
	require.Equal(t, "3", string(v))
	it2.Close()
}

// TestCompact replicates original_source/src/storage/disk.rs's
// test_disk_engine_compact: after a sequence of sets/deletes that
// overwrite and tombstone several keys, compaction must preserve
// exactly the live key set with their latest values, in key order.
func TestCompact(t *testing.T) {
	e, path := openTemp(t)

	require.NoError(t, e.Set([]byte("aa"), []byte("value1")))
	require.NoError(t, e.Set([]byte("bb"), []byte("value2")))
	require.NoError(t, e.Set([]byte("cc"), []byte("value3")))
	require.NoError(t, e.Delete([]byte("cc")))
	require.NoError(t, e.Set([]byte("aa"), []byte("value4")))
	require.NoError(t, e.Delete([]byte("aa")))
	require.NoError(t, e.Set([]byte("aa"), []byte("value3")))
	require.NoError(t, e.Set([]byte("bb"), []byte("value5")))
	require.NoError(t, e.Set([]byte("key3"), []byte("value")))

	require.NoError(t, e.Compact())

	it, err := e.Scan(nil, nil)
	require.NoError(t, err)
	entries, err := storage.Collect(it)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "aa", string(entries[0].Key))
	require.Equal(t, "value3", string(entries[0].Value))
	require.Equal(t, "bb", string(entries[1].Key))
	require.Equal(t, "value5", string(entries[1].Value))
	require.Equal(t, "key3", string(entries[2].Key))
	require.Equal(t, "value", string(entries[2].Value))

	require.NoError(t, e.Close())

	// Reopening rebuilds an equal KeyDir from the compacted file.
	e2, err := Open(path)
	require.NoError(t, err)
	defer e2.Close()
	it2, err := e2.Scan(nil, nil)
	require.NoError(t, err)
	entries2, err := storage.Collect(it2)
	require.NoError(t, err)
	require.Equal(t, entries, entries2)
}

func TestRebuildKeyDirOnReopen(t *testing.T) {
	e, path := openTemp(t)
	require.NoError(t, e.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, e.Set([]byte("k2"), []byte("v2")))
	require.NoError(t, e.Delete([]byte("k1")))
	require.NoError(t, e.Close())

	e2, err := Open(path)
	require.NoError(t, err)
	defer e2.Close()

	_, ok, err := e2.Get([]byte("k1"))
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := e2.Get([]byte("k2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(v))
}

func TestExclusiveLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")
	e1, err := Open(path)
	require.NoError(t, err)
	defer e1.Close()

	_, err = Open(path)
	require.Error(t, err)
}

func TestOpenCreatesParentlessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub.db")
	e, err := Open(path)
	require.NoError(t, err)
	defer e.Close()
	_, err = os.Stat(path)
	require.NoError(t, err)
}
