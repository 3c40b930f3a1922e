// Package storagetest is a generic conformance suite run against any
// storage.Engine implementation, adapted from
// perkeep-perkeep/pkg/sorted/kvtest.TestSorted's "run the same battery
// against every KeyValue implementation" idea, generalized from
// perkeep's string-keyed interface to this package's byte-range one.
package storagetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/storage"
)

// Run exercises get/set/delete/scan against a freshly constructed,
// empty Engine.
func Run(t *testing.T, newEngine func() storage.Engine) {
	t.Run("GetMissing", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		_, ok, err := e.Get([]byte("nope"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		require.NoError(t, e.Set([]byte("k"), []byte("v1")))
		v, ok, err := e.Get([]byte("k"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v1", string(v))

		require.NoError(t, e.Set([]byte("k"), []byte("v2")))
		v, ok, err = e.Get([]byte("k"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v2", string(v))
	})

	t.Run("DeleteThenGet", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		require.NoError(t, e.Set([]byte("k"), []byte("v")))
		require.NoError(t, e.Delete([]byte("k")))
		_, ok, err := e.Get([]byte("k"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("DeleteAbsentIsNotAnError", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		require.NoError(t, e.Delete([]byte("never-existed")))
	})

	t.Run("ScanOrdersByKeyBytes", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		for _, k := range []string{"c", "a", "b"} {
			require.NoError(t, e.Set([]byte(k), []byte(k)))
		}
		it, err := e.Scan(nil, nil)
		require.NoError(t, err)
		entries, err := storage.Collect(it)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, []string{"a", "b", "c"}, []string{
			string(entries[0].Key), string(entries[1].Key), string(entries[2].Key),
		})
	})

	t.Run("ScanRespectsBounds", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, e.Set([]byte(k), []byte(k)))
		}
		it, err := e.Scan([]byte("b"), []byte("d"))
		require.NoError(t, err)
		entries, err := storage.Collect(it)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "b", string(entries[0].Key))
		require.Equal(t, "c", string(entries[1].Key))
	})

	t.Run("ScanIsDoubleEnded", func(t *testing.T) {
		e := newEngine()
		defer e.Close()
		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, e.Set([]byte(k), []byte(k)))
		}
		it, err := e.Scan(nil, nil)
		require.NoError(t, err)
		k, _, ok, err := it.Prev()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "c", string(k))
		k, _, ok, err = it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "a", string(k))
		it.Close()
	})
}
