package executor

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// execAggregate groups rows by the GROUP BY column (or treats the
// whole input as a single group when there is none) and evaluates each
// SELECT expression once per group, grounded on
// original_source/src/sql/executor/agg.rs's Aggregate executor and its
// Calculator trait. Every non-aggregated expression must be the group
// column itself, mirroring the original's "must appear in the GROUP BY
// clause or aggregate function" restriction.
func execAggregate(n plan.Aggregate, txn *record.Transaction) (*result.Set, error) {
	src, err := runScan(n.Source, txn)
	if err != nil {
		return nil, err
	}

	groupIdx := -1
	if n.GroupBy != "" {
		groupIdx = indexOf(src.Columns, n.GroupBy)
		if groupIdx < 0 {
			return nil, sqlerr.Internalf("unknown GROUP BY column %q", n.GroupBy)
		}
	}

	type group struct {
		key  types.Value
		rows []types.Row
	}
	var groups []*group
	index := make(map[string]*group)
	for _, row := range src.Rows {
		key := types.Null
		hk := "\x00single"
		if groupIdx >= 0 {
			key = row[groupIdx]
			hk = hashKey(key)
		}
		g, ok := index[hk]
		if !ok {
			g = &group{key: key}
			index[hk] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	if len(groups) == 0 && groupIdx < 0 {
		// An aggregate with no GROUP BY always produces exactly one row,
		// even over an empty input (e.g. COUNT(*) = 0).
		groups = append(groups, &group{key: types.Null})
	}

	names := make([]string, len(n.Expressions))
	for i, se := range n.Expressions {
		names[i] = exprLabel(se)
	}

	rows := make([]types.Row, 0, len(groups))
	for _, g := range groups {
		out := make(types.Row, len(n.Expressions))
		for i, se := range n.Expressions {
			v, err := evalAggExpr(se.Expr, n.GroupBy, src.Columns, g.key, g.rows)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		rows = append(rows, out)
	}
	return result.Scan(names, rows), nil
}

func exprLabel(se ast.SelectExpr) string {
	if se.Alias != "" {
		return se.Alias
	}
	switch e := se.Expr.(type) {
	case ast.Field:
		return e.Name
	case ast.Function:
		if e.Label != "" {
			return e.Label
		}
		return e.Name
	}
	return "?column?"
}

// evalAggExpr evaluates a single SELECT expression within one group:
// a Function call computes over the group's rows, a Field must match
// the GROUP BY column and takes its group key, anything else is
// rejected.
func evalAggExpr(expr ast.Expression, groupBy string, columns []string, key types.Value, rows []types.Row) (types.Value, error) {
	switch e := expr.(type) {
	case ast.Function:
		return computeAggregate(e, columns, rows)
	case ast.Field:
		if e.Name != groupBy {
			return types.Null, sqlerr.Internalf("column %q must appear in the GROUP BY clause or an aggregate function", e.Name)
		}
		return key, nil
	default:
		return types.Null, sqlerr.Internalf("expression must be an aggregate function or the GROUP BY column")
	}
}

// computeAggregate implements COUNT/SUM/MIN/MAX/AVG, each with its own
// Null-handling policy (SPEC_FULL.md §4.7):
//   - COUNT ignores Null values (COUNT(*) counts every row).
//   - SUM promotes to Float unless every summed value is Integer; Null
//     if every value is Null, zero rows, or all Null.
//   - MIN/MAX ignore Null; Null if there are no non-Null values.
//   - AVG is SUM/COUNT and so inherits SUM's Null propagation.
func computeAggregate(fn ast.Function, columns []string, rows []types.Row) (types.Value, error) {
	if fn.Name == "COUNT" && fn.Arg == nil {
		return types.NewInteger(int64(len(rows))), nil
	}
	field, ok := fn.Arg.(ast.Field)
	if !ok {
		return types.Null, sqlerr.Internalf("%s argument must be a column reference", fn.Name)
	}
	pos := indexOf(columns, field.Name)
	if pos < 0 {
		return types.Null, sqlerr.Internalf("unknown column %q", field.Name)
	}

	var nonNull []types.Value
	for _, row := range rows {
		if v := row[pos]; !v.IsNull() {
			nonNull = append(nonNull, v)
		}
	}

	switch fn.Name {
	case "COUNT":
		return types.NewInteger(int64(len(nonNull))), nil
	case "MIN":
		if len(nonNull) == 0 {
			return types.Null, nil
		}
		return reduceMinMax(nonNull, true), nil
	case "MAX":
		if len(nonNull) == 0 {
			return types.Null, nil
		}
		return reduceMinMax(nonNull, false), nil
	case "SUM":
		if len(nonNull) == 0 {
			return types.Null, nil
		}
		return sumValues(nonNull)
	case "AVG":
		if len(nonNull) == 0 {
			return types.Null, nil
		}
		fsum, err := floatSum(nonNull)
		if err != nil {
			return types.Null, err
		}
		return types.NewFloat(fsum / float64(len(nonNull))), nil
	default:
		return types.Null, sqlerr.Internalf("unsupported aggregate function %s", fn.Name)
	}
}

func reduceMinMax(values []types.Value, wantMin bool) types.Value {
	best := values[0]
	for _, v := range values[1:] {
		cmp := types.Compare(v, best)
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best
}

func floatSum(values []types.Value) (float64, error) {
	var fsum float64
	for _, v := range values {
		switch v.DataType() {
		case types.Integer:
			fsum += float64(v.Int())
		case types.Float:
			fsum += v.Float64()
		default:
			return 0, sqlerr.Internalf("SUM/AVG requires a numeric column")
		}
	}
	return fsum, nil
}

func sumValues(values []types.Value) (types.Value, error) {
	allInt := true
	var fsum float64
	var isum int64
	for _, v := range values {
		switch v.DataType() {
		case types.Integer:
			isum += v.Int()
			fsum += float64(v.Int())
		case types.Float:
			allInt = false
			fsum += v.Float64()
		default:
			return types.Null, sqlerr.Internalf("SUM/AVG requires a numeric column")
		}
	}
	if allInt {
		return types.NewInteger(isum), nil
	}
	return types.NewFloat(fsum), nil
}
