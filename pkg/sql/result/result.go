// Package result defines the uniform envelope every executor operator
// returns (SPEC_FULL.md §4.7 and §C): a Scan result carrying columns
// and rows, DML results carrying an affected-row count, DDL results
// naming the affected table, transaction results carrying a version,
// and an Explain result carrying rendered plan text. Grounded on
// original_source/src/sql/executor/mod.rs's ResultSet enum, collapsed
// into a single Go struct tagged by Kind rather than a Rust enum (this
// module's analogue of "enum-of-operators instead of trait objects"
// from SPEC_FULL.md's design notes).
package result

import (
	"fmt"
	"strings"

	"github.com/embedb/embedb/pkg/types"
)

// Kind discriminates which fields of a Set are meaningful.
type Kind int

const (
	KindScan Kind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindDropTable
	KindBegin
	KindCommit
	KindRollback
	KindExplain
)

// Set is the result of executing one statement.
type Set struct {
	Kind Kind

	// KindScan
	Columns []string
	Rows    []types.Row

	// KindInsert/Update/Delete
	Count int

	// KindCreateTable/DropTable
	TableName string

	// KindBegin/Commit/Rollback
	Version uint64

	// KindExplain
	PlanText string
}

func Scan(columns []string, rows []types.Row) *Set {
	return &Set{Kind: KindScan, Columns: columns, Rows: rows}
}

func Insert(count int) *Set      { return &Set{Kind: KindInsert, Count: count} }
func Update(count int) *Set      { return &Set{Kind: KindUpdate, Count: count} }
func Delete(count int) *Set      { return &Set{Kind: KindDelete, Count: count} }
func CreateTable(name string) *Set { return &Set{Kind: KindCreateTable, TableName: name} }
func DropTable(name string) *Set   { return &Set{Kind: KindDropTable, TableName: name} }
func Begin(version uint64) *Set    { return &Set{Kind: KindBegin, Version: version} }
func Commit(version uint64) *Set   { return &Set{Kind: KindCommit, Version: version} }
func Rollback(version uint64) *Set { return &Set{Kind: KindRollback, Version: version} }
func Explain(planText string) *Set { return &Set{Kind: KindExplain, PlanText: planText} }

// Render pretty-prints s the way a REPL would: a column-aligned,
// header-underlined table for Scan, a one-line summary for everything
// else (SPEC_FULL.md §C, grounded on
// original_source/src/sql/executor/mod.rs's ResultSet::to_string).
func (s *Set) Render() string {
	switch s.Kind {
	case KindCreateTable:
		return fmt.Sprintf("CREATE TABLE %s", s.TableName)
	case KindDropTable:
		return fmt.Sprintf("DROP TABLE %s", s.TableName)
	case KindInsert:
		return fmt.Sprintf("INSERT %d rows", s.Count)
	case KindUpdate:
		return fmt.Sprintf("UPDATE %d rows", s.Count)
	case KindDelete:
		return fmt.Sprintf("DELETE %d rows", s.Count)
	case KindBegin:
		return fmt.Sprintf("TRANSACTION %d BEGIN", s.Version)
	case KindCommit:
		return fmt.Sprintf("TRANSACTION %d COMMIT", s.Version)
	case KindRollback:
		return fmt.Sprintf("TRANSACTION %d ROLLBACK", s.Version)
	case KindExplain:
		return s.PlanText
	case KindScan:
		return renderScan(s.Columns, s.Rows)
	}
	return ""
}

func renderScan(columns []string, rows []types.Row) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, v := range row {
			s := v.String()
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" |")
		}
		fmt.Fprintf(&b, "%-*s", widths[i], c)
	}
	b.WriteString("\n")
	for i, w := range widths {
		if i > 0 {
			b.WriteString("+")
		}
		b.WriteString(strings.Repeat("-", w+1))
	}
	b.WriteString("\n")
	for r, row := range cells {
		if r > 0 {
			b.WriteString("\n")
		}
		for i := range row {
			if i > 0 {
				b.WriteString(" |")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], row[i])
		}
	}
	fmt.Fprintf(&b, "\n(%d rows)", len(rows))
	return b.String()
}
