// Package executor materializes a plan.Node tree against a
// record.Transaction, producing a result.Set (SPEC_FULL.md §4.7).
// Grounded on original_source/src/sql/executor/{mod,query,join,agg,
// mutation,schema}.rs, re-expressed as a single Execute function
// dispatching on the concrete plan.Node type rather than a boxed
// Executor trait object per node — the idiomatic Go analogue of
// trait-object dispatch is a type switch over a sealed interface.
package executor

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
)

// Execute runs node to completion against txn, returning exactly one
// result.Set. Every node below a scan/join/aggregate root is itself
// executed by recursing through Execute, so each operator only has to
// know how to consume an already-materialized Scan-shaped result.
func Execute(node plan.Node, txn *record.Transaction) (*result.Set, error) {
	switch n := node.(type) {
	case plan.Scan:
		return execScan(n, txn)
	case plan.IndexScan:
		return execIndexScan(n, txn)
	case plan.PrimaryKeyScan:
		return execPrimaryKeyScan(n, txn)
	case plan.Filter:
		return execFilter(n, txn)
	case plan.Projection:
		return execProjection(n, txn)
	case plan.Order:
		return execOrder(n, txn)
	case plan.Limit:
		return execLimit(n, txn)
	case plan.Offset:
		return execOffset(n, txn)
	case plan.NestedLoopJoin:
		return execNestedLoopJoin(n, txn)
	case plan.HashJoin:
		return execHashJoin(n, txn)
	case plan.Aggregate:
		return execAggregate(n, txn)
	case plan.Insert:
		return execInsert(n, txn)
	case plan.Update:
		return execUpdate(n, txn)
	case plan.Delete:
		return execDelete(n, txn)
	case plan.CreateTable:
		return execCreateTable(n, txn)
	case plan.DropTable:
		return execDropTable(n, txn)
	case plan.Begin:
		return result.Begin(txn.Version()), nil
	case plan.Commit:
		return result.Commit(txn.Version()), nil
	case plan.Rollback:
		return result.Rollback(txn.Version()), nil
	case plan.Explain:
		return result.Explain(plan.Render(n.Inner)), nil
	default:
		return nil, sqlerr.Internalf("unsupported plan node %T", node)
	}
}

// runScan executes source and requires the result to be Scan-shaped,
// the contract every row-producing operator below this one depends on.
func runScan(source plan.Node, txn *record.Transaction) (*result.Set, error) {
	res, err := Execute(source, txn)
	if err != nil {
		return nil, err
	}
	if res.Kind != result.KindScan {
		return nil, sqlerr.Internalf("expected a row-producing operator, got %T's result", source)
	}
	return res, nil
}
