package mvcc

import (
	"encoding/binary"

	"github.com/embedb/embedb/pkg/sqlerr"
)

// The MVCC layer stores four key families in the wrapped storage.Engine,
// grounded on the well-known toyDB-style scheme referenced (but not
// retrieved in source form) from original_source/src/sql/engine/kv.rs's
// call sites — see SPEC_FULL.md §D.3:
//
//	0x01                                -> NextVersion counter
//	0x02 | version(8 BE)                 -> TxnActive(version) marker
//	0x03 | version(8 BE) | escKey        -> TxnWrite(version, key) marker
//	0x04 | escKey | version(8 BE)        -> Version(key, version) -> tombstone/value
//
// escKey escapes arbitrary key bytes the same way keycode escapes
// strings (0x00 -> 0x00 0xFF, terminated by 0x00 0x00), which
// preserves both the prefix property (so a logical-key prefix scan
// can be expressed as a byte-range scan) and exact round-tripping.
const (
	familyNextVersion byte = 0x01
	familyTxnActive   byte = 0x02
	familyTxnWrite    byte = 0x03
	familyVersion     byte = 0x04
)

func escapeKey(dst, key []byte) []byte {
	for _, c := range key {
		if c == 0x00 {
			dst = append(dst, 0x00, 0xFF)
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, 0x00, 0x00)
}

// escapeKeyPrefix escapes key without a terminator, so the result is a
// true byte-prefix of escapeKey(anything starting with key).
func escapeKeyPrefix(dst, key []byte) []byte {
	for _, c := range key {
		if c == 0x00 {
			dst = append(dst, 0x00, 0xFF)
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

func readEscapedKey(src []byte) ([]byte, int, error) {
	out := make([]byte, 0, len(src))
	i := 0
	for {
		if i >= len(src) {
			return nil, 0, sqlerr.Internalf("mvcc: unterminated key")
		}
		if src[i] != 0x00 {
			out = append(out, src[i])
			i++
			continue
		}
		if i+1 >= len(src) {
			return nil, 0, sqlerr.Internalf("mvcc: truncated key escape")
		}
		switch src[i+1] {
		case 0xFF:
			out = append(out, 0x00)
			i += 2
		case 0x00:
			return out, i + 2, nil
		default:
			return nil, 0, sqlerr.Internalf("mvcc: invalid key escape")
		}
	}
}

func encodeVersion(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func decodeVersion(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, sqlerr.Internalf("mvcc: malformed version, want 8 bytes got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func nextVersionKey() []byte {
	return []byte{familyNextVersion}
}

func txnActiveKey(version uint64) []byte {
	return append([]byte{familyTxnActive}, encodeVersion(version)...)
}

func txnActivePrefix() []byte {
	return []byte{familyTxnActive}
}

func txnWriteKey(version uint64, key []byte) []byte {
	k := append([]byte{familyTxnWrite}, encodeVersion(version)...)
	return escapeKey(k, key)
}

func txnWritePrefix(version uint64) []byte {
	return append([]byte{familyTxnWrite}, encodeVersion(version)...)
}

func versionKey(key []byte, version uint64) []byte {
	k := append([]byte{familyVersion}, escapeKeyPrefix(nil, key)...)
	k = append(k, 0x00, 0x00)
	return append(k, encodeVersion(version)...)
}

func versionPrefix(key []byte) []byte {
	k := append([]byte{familyVersion}, escapeKeyPrefix(nil, key)...)
	return append(k, 0x00, 0x00)
}

// exactKeyRange returns the [start, end) byte range covering every
// version of exactly this logical key (no other key can fall in this
// range, since versionPrefix terminates the escaped key before the
// version suffix).
func exactKeyRange(key []byte) (start, end []byte) {
	start = versionPrefix(key)
	end = append([]byte(nil), start...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}

func scanKeyPrefix(prefix []byte) (start, end []byte) {
	start = append([]byte{familyVersion}, escapeKeyPrefix(nil, prefix)...)
	end = append([]byte(nil), start...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}

// splitVersionKey extracts the logical key and version from a
// familyVersion-tagged stored key.
func splitVersionKey(stored []byte) (key []byte, version uint64, err error) {
	if len(stored) < 1 || stored[0] != familyVersion {
		return nil, 0, sqlerr.Internalf("mvcc: not a version key")
	}
	rest := stored[1:]
	key, n, err := readEscapedKey(rest)
	if err != nil {
		return nil, 0, err
	}
	version, err = decodeVersion(rest[n:])
	if err != nil {
		return nil, 0, err
	}
	return key, version, nil
}
