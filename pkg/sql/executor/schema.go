package executor

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
)

// execCreateTable and execDropTable are thin wrappers over the record
// layer, grounded on original_source/src/sql/executor/schema.rs.

func execCreateTable(n plan.CreateTable, txn *record.Transaction) (*result.Set, error) {
	if err := txn.CreateTable(n.Table); err != nil {
		return nil, err
	}
	return result.CreateTable(n.Table.Name), nil
}

func execDropTable(n plan.DropTable, txn *record.Transaction) (*result.Set, error) {
	if err := txn.DropTable(n.Name); err != nil {
		return nil, err
	}
	return result.DropTable(n.Name), nil
}
