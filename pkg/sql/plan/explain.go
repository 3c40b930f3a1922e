package plan

import (
	"fmt"
	"strings"
)

// Render renders node as an indented plan tree for EXPLAIN, grounded on
// original_source/src/sql/plan/mod.rs's Node::format: a "SQL PLAN"
// header, a separator line, then each node on its own line prefixed by
// "-> " and indented two spaces per level of nesting.
func Render(node Node) string {
	var b strings.Builder
	b.WriteString("SQL PLAN\n")
	b.WriteString("--------\n")
	renderNode(&b, node, 0)
	return b.String()
}

func renderNode(b *strings.Builder, node Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s-> %s\n", indent, describe(node))
	for _, child := range children(node) {
		renderNode(b, child, depth+1)
	}
}

func describe(node Node) string {
	switch n := node.(type) {
	case Scan:
		if n.Filter != nil {
			return fmt.Sprintf("Scan %s (filtered)", n.Table)
		}
		return fmt.Sprintf("Scan %s", n.Table)
	case IndexScan:
		return fmt.Sprintf("IndexScan %s.%s = %s", n.Table, n.Column, n.Value.String())
	case PrimaryKeyScan:
		return fmt.Sprintf("PrimaryKeyScan %s by id = %s", n.Table, n.Value.String())
	case Filter:
		return "Filter"
	case Projection:
		return fmt.Sprintf("Projection (%d expressions)", len(n.Expressions))
	case Order:
		return fmt.Sprintf("Order by %d keys", len(n.By))
	case Limit:
		return fmt.Sprintf("Limit %d", n.N)
	case Offset:
		return fmt.Sprintf("Offset %d", n.N)
	case NestedLoopJoin:
		if n.Outer {
			return "NestedLoopJoin (outer)"
		}
		return "NestedLoopJoin"
	case HashJoin:
		if n.Outer {
			return "HashJoin (outer)"
		}
		return "HashJoin"
	case Aggregate:
		if n.GroupBy != "" {
			return fmt.Sprintf("Aggregate group by %s", n.GroupBy)
		}
		return "Aggregate"
	case Insert:
		return fmt.Sprintf("Insert into %s (%d rows)", n.Table, len(n.Rows))
	case Update:
		return fmt.Sprintf("Update %s", n.Table)
	case Delete:
		return fmt.Sprintf("Delete from %s", n.Table)
	case CreateTable:
		return fmt.Sprintf("CreateTable %s", n.Table.Name)
	case DropTable:
		return fmt.Sprintf("DropTable %s", n.Name)
	case Begin:
		return "Begin"
	case Commit:
		return "Commit"
	case Rollback:
		return "Rollback"
	case Explain:
		return "Explain"
	default:
		return fmt.Sprintf("%T", node)
	}
}

func children(node Node) []Node {
	switch n := node.(type) {
	case Filter:
		return []Node{n.Source}
	case Projection:
		return []Node{n.Source}
	case Order:
		return []Node{n.Source}
	case Limit:
		return []Node{n.Source}
	case Offset:
		return []Node{n.Source}
	case NestedLoopJoin:
		return []Node{n.Left, n.Right}
	case HashJoin:
		return []Node{n.Left, n.Right}
	case Aggregate:
		return []Node{n.Source}
	case Update:
		return []Node{n.Source}
	case Delete:
		return []Node{n.Source}
	case Explain:
		return []Node{n.Inner}
	default:
		return nil
	}
}
