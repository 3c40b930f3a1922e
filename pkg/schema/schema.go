// Package schema defines table and column metadata, grounded on
// original_source/src/sql/schema.rs: the same Column invariants
// (exactly one primary key, primary key implies not-null, default's
// datatype must match) re-expressed as Go validation over pkg/types.
package schema

import (
	"fmt"
	"strings"

	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Column describes one table column.
type Column struct {
	Name       string
	DataType   types.DataType
	Nullable   bool
	Default    *types.Value // nil means "no default"
	PrimaryKey bool
	Index      bool
}

// Table is the persisted metadata for one table: a name plus an
// ordered, non-empty list of uniquely named columns.
type Table struct {
	Name    string
	Columns []Column
}

// PrimaryKey returns the table's single primary-key column.
func (t *Table) PrimaryKey() (Column, error) {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c, nil
		}
	}
	return Column{}, sqlerr.Internalf("table %s has no primary key", t.Name)
}

// ColumnIndex returns the 0-based position of a column by name.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, sqlerr.Internalf("table %s has no column %s", t.Name, name)
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return Column{}, err
	}
	return t.Columns[i], nil
}

// Validate enforces the invariants from the data model: non-empty
// columns, unique names, exactly one primary key, primary key not
// nullable, default's datatype matching (or Null when nullable).
func (t *Table) Validate() error {
	if t.Name == "" {
		return sqlerr.Internalf("table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return sqlerr.Internalf("table %s must have at least one column", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	pkCount := 0
	for _, c := range t.Columns {
		if seen[c.Name] {
			return sqlerr.Internalf("table %s has duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
		if c.PrimaryKey {
			pkCount++
			if c.Nullable {
				return sqlerr.Internalf("primary key column %s must not be nullable", c.Name)
			}
			if c.Index {
				return sqlerr.Internalf("primary key column %s is implicitly indexed", c.Name)
			}
		}
		if c.Default != nil {
			if c.Default.IsNull() {
				if !c.Nullable {
					return sqlerr.Internalf("column %s has a NULL default but is not nullable", c.Name)
				}
			} else if c.Default.DataType() != c.DataType {
				return sqlerr.Internalf("column %s default type does not match column type", c.Name)
			}
		}
	}
	if pkCount != 1 {
		return sqlerr.Internalf("table %s must have exactly one primary key column, has %d", t.Name, pkCount)
	}
	return nil
}

// ColumnNames returns the ordered column name list.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// String renders the table as a CREATE TABLE-shaped description, the
// Go analogue of the original's Display for Table, used by
// DescribeTable (SPEC_FULL.md §C).
func (t *Table) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	for i, c := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", c.Name, c.DataType)
		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		} else if c.Nullable {
			b.WriteString(" NULL")
		} else {
			b.WriteString(" NOT NULL")
		}
		if c.Default != nil {
			fmt.Fprintf(&b, " DEFAULT %s", c.Default.String())
		}
		if c.Index {
			b.WriteString(" INDEX")
		}
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}
