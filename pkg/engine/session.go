package engine

import (
	"github.com/embedb/embedb/pkg/record"
	"github.com/embedb/embedb/pkg/schema"
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sql/executor"
	"github.com/embedb/embedb/pkg/sql/parser"
	"github.com/embedb/embedb/pkg/sql/plan"
	"github.com/embedb/embedb/pkg/sql/result"
	"github.com/embedb/embedb/pkg/sqlerr"
)

// Session is one client's view of an Engine: at most one explicit
// transaction open at a time, auto-committing every other statement in
// its own implicit transaction. Grounded on
// original_source/src/sql/engine/mod.rs's Session, whose execute
// method intercepts Begin/Commit/Rollback/Explain before ever handing
// a statement to the planner.
type Session struct {
	engine *Engine
	txn    *record.Transaction // non-nil while an explicit transaction is open
}

// Execute parses sql as a single statement and runs it, opening and
// committing an implicit transaction unless an explicit one (via
// BEGIN) is already in progress.
func (s *Session) Execute(sql string) (*result.Set, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return s.executeStatement(stmt)
}

func (s *Session) executeStatement(stmt ast.Statement) (*result.Set, error) {
	switch st := stmt.(type) {
	case ast.Begin:
		if s.txn != nil {
			return nil, sqlerr.Internalf("a transaction is already open")
		}
		mtxn, err := s.engine.mvcc.Begin()
		if err != nil {
			return nil, err
		}
		s.txn = record.New(mtxn)
		return result.Begin(s.txn.Version()), nil
	case ast.Commit:
		if s.txn == nil {
			return nil, sqlerr.Internalf("no transaction is open")
		}
		version := s.txn.Version()
		err := s.txn.Commit()
		s.txn = nil
		if err != nil {
			return nil, err
		}
		return result.Commit(version), nil
	case ast.Rollback:
		if s.txn == nil {
			return nil, sqlerr.Internalf("no transaction is open")
		}
		version := s.txn.Version()
		err := s.txn.Rollback()
		s.txn = nil
		if err != nil {
			return nil, err
		}
		return result.Rollback(version), nil
	case ast.Explain:
		return s.explain(st.Inner)
	default:
		return s.runStatement(stmt)
	}
}

// explain builds (but does not execute) the plan for inner, rendering
// it as text, against either the open explicit transaction or a
// throwaway implicit one (EXPLAIN never mutates or needs to commit).
func (s *Session) explain(inner ast.Statement) (*result.Set, error) {
	if s.txn != nil {
		node, err := plan.Build(inner, s.txn)
		if err != nil {
			return nil, err
		}
		return result.Explain(plan.Render(node)), nil
	}
	mtxn, err := s.engine.mvcc.Begin()
	if err != nil {
		return nil, err
	}
	txn := record.New(mtxn)
	node, buildErr := plan.Build(inner, txn)
	_ = txn.Rollback()
	if buildErr != nil {
		return nil, buildErr
	}
	return result.Explain(plan.Render(node)), nil
}

// runStatement builds and executes stmt's plan, reusing an open
// explicit transaction or opening/committing an implicit one.
func (s *Session) runStatement(stmt ast.Statement) (*result.Set, error) {
	if s.txn != nil {
		node, err := plan.Build(stmt, s.txn)
		if err != nil {
			return nil, err
		}
		return executor.Execute(node, s.txn)
	}

	mtxn, err := s.engine.mvcc.Begin()
	if err != nil {
		return nil, err
	}
	txn := record.New(mtxn)
	node, err := plan.Build(stmt, txn)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	res, err := executor.Execute(node, txn)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// TableNames returns every table name known to the database, using the
// session's open transaction if there is one (SPEC_FULL.md §C).
func (s *Session) TableNames() ([]string, error) {
	if s.txn != nil {
		return s.txn.GetTableNames()
	}
	mtxn, err := s.engine.mvcc.Begin()
	if err != nil {
		return nil, err
	}
	txn := record.New(mtxn)
	names, err := txn.GetTableNames()
	_ = txn.Rollback()
	return names, err
}

// DescribeTable renders a table's schema as a CREATE TABLE-shaped
// string (SPEC_FULL.md §C).
func (s *Session) DescribeTable(name string) (string, error) {
	if s.txn != nil {
		t, err := s.txn.GetTable(name)
		if err != nil {
			return "", err
		}
		return t.String(), nil
	}
	mtxn, err := s.engine.mvcc.Begin()
	if err != nil {
		return "", err
	}
	txn := record.New(mtxn)
	t, err := txn.GetTable(name)
	_ = txn.Rollback()
	if err != nil {
		return "", err
	}
	return describeOrEmpty(t), nil
}

func describeOrEmpty(t *schema.Table) string {
	if t == nil {
		return ""
	}
	return t.String()
}
