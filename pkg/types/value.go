// Package types defines the value domain shared by the storage record
// layer and the SQL executor: a small tagged union (Null, Boolean,
// Integer, Float, String) with three-valued comparison semantics.
package types

import (
	"fmt"
	"math"
)

// DataType is the declared type of a table column. Every non-Null Value
// carries exactly one of these.
type DataType int

const (
	Boolean DataType = iota
	Integer
	Float
	String
)

func (d DataType) String() string {
	switch d {
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged union over {Null, Boolean, Integer, Float, String}.
// The zero Value is Null.
type Value struct {
	null bool
	typ  DataType
	b    bool
	i    int64
	f    float64
	s    string
}

// Null is the absence-of-value literal.
var Null = Value{null: true}

func NewBoolean(b bool) Value  { return Value{typ: Boolean, b: b} }
func NewInteger(i int64) Value { return Value{typ: Integer, i: i} }
func NewFloat(f float64) Value { return Value{typ: Float, f: f} }
func NewString(s string) Value { return Value{typ: String, s: s} }

func (v Value) IsNull() bool    { return v.null }
func (v Value) DataType() DataType { return v.typ }

func (v Value) Bool() bool    { return v.b }
func (v Value) Int() int64    { return v.i }
func (v Value) Float64() float64 { return v.f }
func (v Value) String() string {
	if v.null {
		return "NULL"
	}
	switch v.typ {
	case Boolean:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%v", v.f)
	case String:
		return v.s
	}
	return ""
}

// Text returns the raw string payload without NULL/boolean formatting,
// used when rendering String-typed columns.
func (v Value) Text() string { return v.s }

// Matches reports whether v is a legal value for a column declared with
// the given datatype and nullability.
func (v Value) Matches(dt DataType, nullable bool) bool {
	if v.null {
		return nullable
	}
	return v.typ == dt
}

// IsTruthy implements three-valued-logic truthiness for use in WHERE/
// HAVING predicates: Null and non-Boolean values are not truthy on
// their own; callers distinguish "false/null -> drop" from "anything
// else -> error" explicitly, this helper only covers the true/false leaves.
func (v Value) IsTruthy() (value bool, isBool bool) {
	if v.null || v.typ != Boolean {
		return false, false
	}
	return v.b, true
}

// Equal implements three-valued equality: Null compared to anything
// (including Null) yields Null, represented here as (false, false).
func Equal(a, b Value) (result Value) {
	if a.null || b.null {
		return Null
	}
	switch a.typ {
	case Boolean:
		if b.typ == Boolean {
			return NewBoolean(a.b == b.b)
		}
	case Integer:
		if b.typ == Integer {
			return NewBoolean(a.i == b.i)
		}
		if b.typ == Float {
			return NewBoolean(float64(a.i) == b.f)
		}
	case Float:
		if b.typ == Integer {
			return NewBoolean(a.f == float64(b.i))
		}
		if b.typ == Float {
			return NewBoolean(a.f == b.f)
		}
	case String:
		if b.typ == String {
			return NewBoolean(a.s == b.s)
		}
	}
	return NewBoolean(false)
}

// Less implements three-valued less-than for Integer/Float (mixed
// numeric allowed) and String; other cross-type comparisons yield Null.
func Less(a, b Value) Value {
	if a.null || b.null {
		return Null
	}
	switch a.typ {
	case Integer:
		switch b.typ {
		case Integer:
			return NewBoolean(a.i < b.i)
		case Float:
			return NewBoolean(float64(a.i) < b.f)
		}
	case Float:
		switch b.typ {
		case Integer:
			return NewBoolean(a.f < float64(b.i))
		case Float:
			return NewBoolean(a.f < b.f)
		}
	case String:
		if b.typ == String {
			return NewBoolean(a.s < b.s)
		}
	case Boolean:
		if b.typ == Boolean {
			return NewBoolean(!a.b && b.b)
		}
	}
	return Null
}

// Greater is the mirror of Less.
func Greater(a, b Value) Value {
	return Less(b, a)
}

// Compare defines a total order over Value used by ORDER BY: within a
// type it follows natural order (numeric types compare across each
// other), and Null sorts after every non-Null value regardless of type
// (see SPEC_FULL.md open-question D.1). Returns -1, 0, or 1.
func Compare(a, b Value) int {
	if a.null && b.null {
		return 0
	}
	if a.null {
		return 1
	}
	if b.null {
		return -1
	}
	eq := Equal(a, b)
	if v, ok := eq.IsTruthy(); ok && v {
		return 0
	}
	lt := Less(a, b)
	if v, ok := lt.IsTruthy(); ok && v {
		return -1
	}
	gt := Greater(a, b)
	if v, ok := gt.IsTruthy(); ok && v {
		return 1
	}
	// Cross-type, non-numeric: order by DataType tag for stability.
	if a.typ != b.typ {
		if a.typ < b.typ {
			return -1
		}
		return 1
	}
	return 0
}

// IsIntegralFloat reports whether v is a Float whose fractional part is
// zero, the condition under which PrimaryKeyScan coerces it to Integer
// (SPEC_FULL.md §C).
func (v Value) IsIntegralFloat() bool {
	return !v.null && v.typ == Float && math.Trunc(v.f) == v.f
}

// AsInteger coerces an integral Float (or an actual Integer) to Integer.
func (v Value) AsInteger() (Value, bool) {
	if v.null {
		return v, false
	}
	if v.typ == Integer {
		return v, true
	}
	if v.IsIntegralFloat() {
		return NewInteger(int64(v.f)), true
	}
	return v, false
}
