package keycode

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedb/embedb/pkg/types"
)

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "abc", "a\x00b", "\x00\x00", "hello world", "z\x00\x00z"} {
		enc := AppendString(nil, s)
		got, n, err := ReadString(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, s, got)
	}
}

func TestStringOrderPreserving(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"abc", "abd"},
		{"a", "aa"},
		{"", "a"},
		{"a\x00", "a\x00\x00"}, // "a\x00" < "a\x00\x00" textually too
	}
	for _, p := range pairs {
		a := AppendString(nil, p[0])
		b := AppendString(nil, p[1])
		require.True(t, bytes.Compare(a, b) < 0, "expected encode(%q) < encode(%q)", p[0], p[1])
	}
}

func TestIntegerOrderPreserving(t *testing.T) {
	values := []int64{-1 << 62, -1000, -1, 0, 1, 1000, 1 << 62}
	for i := 0; i < len(values)-1; i++ {
		a := AppendInteger(nil, values[i])
		b := AppendInteger(nil, values[i+1])
		require.True(t, bytes.Compare(a, b) < 0, "expected encode(%d) < encode(%d)", values[i], values[i+1])
		got, n, err := ReadInteger(a)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, values[i], got)
	}
}

func TestFloatOrderPreserving(t *testing.T) {
	values := []float64{-1e10, -1.5, -0.0001, 0, 0.0001, 1.5, 1e10}
	for i := 0; i < len(values)-1; i++ {
		a := AppendFloat(nil, values[i])
		b := AppendFloat(nil, values[i+1])
		require.True(t, bytes.Compare(a, b) < 0, "expected encode(%v) < encode(%v)", values[i], values[i+1])
	}
	for _, v := range values {
		enc := AppendFloat(nil, v)
		got, n, err := ReadFloat(enc)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, v, got)
	}
}

func TestFloatNegativeZeroRoundTrip(t *testing.T) {
	enc := AppendFloat(nil, math.Copysign(0, -1))
	got, n, err := ReadFloat(enc)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, float64(0), got)
	require.Equal(t, AppendFloat(nil, 0), enc, "-0.0 and 0.0 must encode identically")
}

func TestBoolRoundTrip(t *testing.T) {
	for _, b := range []bool{true, false} {
		enc := AppendBool(nil, b)
		got, n, err := ReadBool(enc)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, b, got)
	}
	require.True(t, bytes.Compare(AppendBool(nil, false), AppendBool(nil, true)) < 0)
}

func TestValueRoundTripAndOrder(t *testing.T) {
	vals := []types.Value{
		types.NewInteger(-5),
		types.NewInteger(5),
		types.NewFloat(1.5),
		types.NewString("abc"),
		types.NewBoolean(true),
		types.Null,
	}
	for _, v := range vals {
		enc := AppendValue(nil, v)
		got, n, err := ReadValue(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v.DataType(), got.DataType())
		require.Equal(t, v.IsNull(), got.IsNull())
	}

	// Null sorts after every non-null value's key encoding.
	nonNull := AppendValue(nil, types.NewInteger(1<<60))
	null := AppendValue(nil, types.Null)
	require.True(t, bytes.Compare(nonNull, null) < 0)
}

func TestPrefixRange(t *testing.T) {
	start, end := PrefixRange([]byte("abc"))
	require.Equal(t, []byte("abc"), start)
	require.Equal(t, []byte("abd"), end)

	start, end = PrefixRange([]byte{0xFF, 0xFF})
	require.Equal(t, []byte{0xFF, 0xFF}, start)
	require.Nil(t, end)

	start, end = PrefixRange([]byte{0x01, 0xFF})
	require.Equal(t, []byte{0x01, 0xFF}, start)
	require.Equal(t, []byte{0x02}, end)
}

func TestRowKeyPrefixOrdersByPrimaryKey(t *testing.T) {
	k1 := RowKey("users", types.NewInteger(1))
	k2 := RowKey("users", types.NewInteger(2))
	k10 := RowKey("users", types.NewInteger(10))
	require.True(t, bytes.Compare(k1, k2) < 0)
	require.True(t, bytes.Compare(k2, k10) < 0)

	prefix := RowPrefix("users")
	require.True(t, bytes.HasPrefix(k1, prefix))
	require.True(t, bytes.HasPrefix(k2, prefix))
}
