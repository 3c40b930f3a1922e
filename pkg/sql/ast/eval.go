package ast

import (
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Row is the minimal row-shape Evaluate needs: resolve a (table,
// column) reference to a Value. Executors adapt their materialized
// rows to this interface via a closure or a small wrapper.
type Row interface {
	Resolve(table, column string) (types.Value, error)
}

// MapRow resolves fields against a flat column-name -> Value map,
// ignoring table qualification (used once a single row has already
// been assembled with unambiguous column names, e.g. post-join rows
// with prefixed aliases).
type MapRow map[string]types.Value

func (m MapRow) Resolve(table, column string) (types.Value, error) {
	if v, ok := m[column]; ok {
		return v, nil
	}
	return types.Null, sqlerr.Internalf("unknown column %q", column)
}

// Evaluate computes expr's value against row, implementing three-valued
// logic throughout (grounded on
// _examples/original_source/src/sql/parser/ast.rs's evaluate_expr):
// only Equal/GreaterThan/LessThan comparisons and And/Or/Not/arithmetic
// operators are defined; anything else is an internal error.
func Evaluate(expr Expression, row Row) (types.Value, error) {
	switch e := expr.(type) {
	case Const:
		return e.Value, nil
	case Field:
		return row.Resolve(e.Table, e.Name)
	case Operation:
		return evaluateOp(e, row)
	case Function:
		return types.Null, sqlerr.Internalf("aggregate function %s cannot be evaluated outside an Aggregate operator", e.Name)
	default:
		return types.Null, sqlerr.Internalf("unsupported expression type %T", expr)
	}
}

func evaluateOp(e Operation, row Row) (types.Value, error) {
	left, err := Evaluate(e.Left, row)
	if err != nil {
		return types.Null, err
	}
	if e.Op == OpNot {
		b, ok := left.IsTruthy()
		if left.IsNull() {
			return types.Null, nil
		}
		if !ok {
			return types.Null, sqlerr.Internalf("NOT requires a boolean operand")
		}
		return types.NewBoolean(!b), nil
	}

	right, err := Evaluate(e.Right, row)
	if err != nil {
		return types.Null, err
	}

	switch e.Op {
	case OpEqual:
		return types.Equal(left, right), nil
	case OpGreaterThan:
		return types.Greater(left, right), nil
	case OpLessThan:
		return types.Less(left, right), nil
	case OpAnd:
		return evalAnd(left, right)
	case OpOr:
		return evalOr(left, right)
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return evalArith(e.Op, left, right)
	default:
		return types.Null, sqlerr.Internalf("unsupported operator")
	}
}

// evalAnd implements three-valued AND: false dominates, else Null
// dominates, else both must be true.
func evalAnd(l, r types.Value) (types.Value, error) {
	lb, lok := l.IsTruthy()
	rb, rok := r.IsTruthy()
	if lok && !lb {
		return types.NewBoolean(false), nil
	}
	if rok && !rb {
		return types.NewBoolean(false), nil
	}
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	if !lok || !rok {
		return types.Null, sqlerr.Internalf("AND requires boolean operands")
	}
	return types.NewBoolean(lb && rb), nil
}

// evalOr implements three-valued OR: true dominates, else Null
// dominates, else both must be false.
func evalOr(l, r types.Value) (types.Value, error) {
	lb, lok := l.IsTruthy()
	rb, rok := r.IsTruthy()
	if lok && lb {
		return types.NewBoolean(true), nil
	}
	if rok && rb {
		return types.NewBoolean(true), nil
	}
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	if !lok || !rok {
		return types.Null, sqlerr.Internalf("OR requires boolean operands")
	}
	return types.NewBoolean(lb || rb), nil
}

func numeric(v types.Value) (float64, bool, bool) {
	if v.IsNull() {
		return 0, false, true
	}
	switch v.DataType() {
	case types.Integer:
		return float64(v.Int()), true, false
	case types.Float:
		return v.Float64(), true, false
	}
	return 0, false, false
}

func evalArith(op Op, l, r types.Value) (types.Value, error) {
	lf, lok, lnull := numeric(l)
	rf, rok, rnull := numeric(r)
	if lnull || rnull {
		return types.Null, nil
	}
	if !lok || !rok {
		return types.Null, sqlerr.Internalf("arithmetic requires numeric operands")
	}
	bothInt := l.DataType() == types.Integer && r.DataType() == types.Integer
	var result float64
	switch op {
	case OpAdd:
		result = lf + rf
	case OpSubtract:
		result = lf - rf
	case OpMultiply:
		result = lf * rf
	case OpDivide:
		if rf == 0 {
			return types.Null, sqlerr.Internalf("division by zero")
		}
		result = lf / rf
	}
	if bothInt && op != OpDivide {
		return types.NewInteger(int64(result)), nil
	}
	return types.NewFloat(result), nil
}
