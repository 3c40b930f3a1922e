package keycode

import "github.com/embedb/embedb/pkg/types"

// TableKey encodes the key under which a table's metadata is stored:
// KindTable | name.
func TableKey(name string) []byte {
	k := []byte{byte(KindTable)}
	return AppendString(k, name)
}

// RowKey encodes Row(table, pk): KindRow | table | pk-value.
func RowKey(table string, pk types.Value) []byte {
	k := []byte{byte(KindRow)}
	k = AppendString(k, table)
	return AppendValue(k, pk)
}

// RowPrefix encodes the prefix shared by every row of one table, so a
// scan over it yields rows in primary-key order.
func RowPrefix(table string) []byte {
	k := []byte{byte(KindRow)}
	return AppendString(k, table)
}

// IndexKey encodes Index(table, column, value): KindIndex | table |
// column | value.
func IndexKey(table, column string, value types.Value) []byte {
	k := []byte{byte(KindIndex)}
	k = AppendString(k, table)
	k = AppendString(k, column)
	return AppendValue(k, value)
}

// IndexPrefix encodes the prefix shared by every entry of one index
// column, so a scan over it walks the index in value order.
func IndexPrefix(table, column string) []byte {
	k := []byte{byte(KindIndex)}
	k = AppendString(k, table)
	return AppendString(k, column)
}

// PrefixRange returns the [start, end) byte range that exactly covers
// every key with the given prefix: end is prefix with its last byte
// incremented (carrying as needed), or nil for "no upper bound" if the
// prefix is all 0xFF bytes.
func PrefixRange(prefix []byte) (start, end []byte) {
	start = append([]byte(nil), prefix...)
	end = append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}
