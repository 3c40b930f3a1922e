// Package keycode implements the order-preserving byte encoding used
// for every key in the underlying KV store (SPEC_FULL.md §4.4): a
// discriminant tag followed by escaped strings, sign-flipped integers,
// total-order floats, single-byte booleans, and a dedicated Null tag.
//
// The central property every codec in this file must satisfy:
// encode(a) < encode(b) lexicographically iff a < b under the value's
// own ordering, and decode(encode(x)) == x.
package keycode

import (
	"encoding/binary"
	"math"

	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Tag identifies the kind of value (or key partition) encoded next.
type Tag byte

const (
	TagNull Tag = iota
	TagBoolean
	TagInteger
	TagFloat
	TagString
)

// KeyKind is the one-byte discriminant prefixed to every stored key,
// partitioning the keyspace into Table/Row/Index families.
type KeyKind byte

const (
	KindTable KeyKind = iota
	KindRow
	KindIndex
)

// AppendString appends the order-preserving encoding of s: raw UTF-8
// bytes with every 0x00 escaped to 0x00 0xFF, terminated by 0x00 0x00.
func AppendString(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x00 {
			dst = append(dst, 0x00, 0xFF)
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, 0x00, 0x00)
}

// ReadString decodes a string previously written by AppendString,
// returning the decoded value and the number of bytes consumed.
func ReadString(src []byte) (string, int, error) {
	out := make([]byte, 0, len(src))
	i := 0
	for {
		if i >= len(src) {
			return "", 0, sqlerr.Internalf("keycode: unterminated string")
		}
		if src[i] != 0x00 {
			out = append(out, src[i])
			i++
			continue
		}
		// src[i] == 0x00: either an escape or the terminator.
		if i+1 >= len(src) {
			return "", 0, sqlerr.Internalf("keycode: truncated string escape")
		}
		switch src[i+1] {
		case 0xFF:
			out = append(out, 0x00)
			i += 2
		case 0x00:
			return string(out), i + 2, nil
		default:
			return "", 0, sqlerr.Internalf("keycode: invalid string escape 0x%02x", src[i+1])
		}
	}
}

// AppendInteger appends a big-endian i64 with the sign bit flipped, so
// two's-complement ordering matches byte-lexical ordering.
func AppendInteger(dst []byte, v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v)^(1<<63))
	return append(dst, buf[:]...)
}

// ReadInteger decodes an AppendInteger-encoded value.
func ReadInteger(src []byte) (int64, int, error) {
	if len(src) < 8 {
		return 0, 0, sqlerr.Internalf("keycode: truncated integer")
	}
	u := binary.BigEndian.Uint64(src[:8]) ^ (1 << 63)
	return int64(u), 8, nil
}

// AppendFloat appends an IEEE-754 total-order encoding: sign-flip for
// non-negative values, full bit-flip for negative values, so that
// byte-lexical order matches numeric order. -0.0 is normalized to
// +0.0's encoding first (v >= 0 is true for -0.0 too, but its raw bits
// have the sign bit set, which would otherwise XOR down to all-zero
// instead of +0.0's sign-bit-only pattern and decode back as NaN).
func AppendFloat(dst []byte, v float64) []byte {
	var bits uint64
	if v >= 0 {
		bits = math.Float64bits(math.Abs(v)) ^ (1 << 63)
	} else {
		bits = ^math.Float64bits(v)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return append(dst, buf[:]...)
}

// ReadFloat decodes an AppendFloat-encoded value.
func ReadFloat(src []byte) (float64, int, error) {
	if len(src) < 8 {
		return 0, 0, sqlerr.Internalf("keycode: truncated float")
	}
	bits := binary.BigEndian.Uint64(src[:8])
	// The top bit tells us which transform was applied: after a
	// sign-flip, non-negative originals have their top bit set.
	if bits&(1<<63) != 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), 8, nil
}

// AppendBool appends a single 0/1 byte.
func AppendBool(dst []byte, b bool) []byte {
	if b {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// ReadBool decodes an AppendBool-encoded value.
func ReadBool(src []byte) (bool, int, error) {
	if len(src) < 1 {
		return false, 0, sqlerr.Internalf("keycode: truncated boolean")
	}
	return src[0] != 0, 1, nil
}

// AppendValue appends a tag byte followed by the value's encoding.
// Values of one type order as types.Compare orders them; across types
// the tag byte decides (Boolean, Integer, Float, String), so an Integer
// and a Float are not compared numerically. Null is written as
// tagNullKey (0xFF), so it sorts after every other value (SPEC_FULL.md
// §D.1).
func AppendValue(dst []byte, v types.Value) []byte {
	if v.IsNull() {
		return append(dst, byte(tagNullKey))
	}
	switch v.DataType() {
	case types.Boolean:
		dst = append(dst, byte(TagBoolean))
		return AppendBool(dst, v.Bool())
	case types.Integer:
		dst = append(dst, byte(TagInteger))
		return AppendInteger(dst, v.Int())
	case types.Float:
		dst = append(dst, byte(TagFloat))
		return AppendFloat(dst, v.Float64())
	case types.String:
		dst = append(dst, byte(TagString))
		return AppendString(dst, v.Text())
	}
	return append(dst, byte(tagNullKey))
}

// tagNullKey is deliberately larger than every other tag so that a Null
// value's key encoding sorts after every typed value's, matching
// types.Compare's total order.
const tagNullKey = 0xFF

// ReadValue decodes an AppendValue-encoded value.
func ReadValue(src []byte) (types.Value, int, error) {
	if len(src) < 1 {
		return types.Null, 0, sqlerr.Internalf("keycode: empty value")
	}
	tag := src[0]
	rest := src[1:]
	switch tag {
	case byte(tagNullKey):
		return types.Null, 1, nil
	case byte(TagBoolean):
		b, n, err := ReadBool(rest)
		if err != nil {
			return types.Null, 0, err
		}
		return types.NewBoolean(b), 1 + n, nil
	case byte(TagInteger):
		i, n, err := ReadInteger(rest)
		if err != nil {
			return types.Null, 0, err
		}
		return types.NewInteger(i), 1 + n, nil
	case byte(TagFloat):
		f, n, err := ReadFloat(rest)
		if err != nil {
			return types.Null, 0, err
		}
		return types.NewFloat(f), 1 + n, nil
	case byte(TagString):
		s, n, err := ReadString(rest)
		if err != nil {
			return types.Null, 0, err
		}
		return types.NewString(s), 1 + n, nil
	}
	return types.Null, 0, sqlerr.Internalf("keycode: unknown value tag 0x%02x", tag)
}
