package parser

import (
	"github.com/embedb/embedb/pkg/sql/ast"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/types"
)

// Parser holds the token stream for one parse. It is not safe to reuse
// across statements.
type Parser struct {
	toks []token
	pos  int
}

// Parse parses exactly one SQL statement, optionally terminated by a
// semicolon, and reports an error if trailing tokens remain.
func Parse(sql string) (ast.Statement, error) {
	toks, err := newLexer(sql).tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	if p.cur().kind != tokEOF {
		return nil, sqlerr.Parsef("unexpected trailing input after statement")
	}
	return stmt, nil
}

// ParseAll splits sql on semicolons into zero or more statements, the
// shape a REPL or script runner needs.
func ParseAll(sql string) ([]ast.Statement, error) {
	toks, err := newLexer(sql).tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	var stmts []ast.Statement
	for {
		p.skipSemicolons()
		if p.cur().kind == tokEOF {
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

func (p *Parser) skipSemicolons() {
	for p.cur().kind == tokSymbol && p.cur().text == ";" {
		p.pos++
	}
}

func (p *Parser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokKeyword && t.text == kw
}

func (p *Parser) isSymbol(sym string) bool {
	t := p.cur()
	return t.kind == tokSymbol && t.text == sym
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return sqlerr.Parsef("expected keyword %s, found %q", kw, p.cur().text)
	}
	p.pos++
	return nil
}

func (p *Parser) expectSymbol(sym string) error {
	if !p.isSymbol(sym) {
		return sqlerr.Parsef("expected %q, found %q", sym, p.cur().text)
	}
	p.pos++
	return nil
}

// expectIdent consumes a plain identifier. COUNT/SUM/MIN/MAX/AVG are
// lexed as keywords so parsePrimary can recognize a function call, but
// they are not reserved words: a bare ORDER BY/GROUP BY column or an
// alias is allowed to read "avg" etc (e.g. ORDER BY avg for an
// aliasless avg(c) in the SELECT list), so they are accepted here too,
// returning the as-typed spelling rather than the upper-cased keyword
// text.
func (p *Parser) expectIdent() (string, error) {
	t := p.cur()
	switch {
	case t.kind == tokIdent:
		p.pos++
		return t.text, nil
	case t.kind == tokKeyword && ast.IsAggregateName(t.text):
		p.pos++
		return t.raw, nil
	default:
		return "", sqlerr.Parsef("expected identifier, found %q", t.text)
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreateTable()
	case p.isKeyword("DROP"):
		return p.parseDropTable()
	case p.isKeyword("INSERT"):
		return p.parseInsert()
	case p.isKeyword("UPDATE"):
		return p.parseUpdate()
	case p.isKeyword("DELETE"):
		return p.parseDelete()
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	case p.isKeyword("BEGIN"):
		p.pos++
		return ast.Begin{}, nil
	case p.isKeyword("COMMIT"):
		p.pos++
		return ast.Commit{}, nil
	case p.isKeyword("ROLLBACK"):
		p.pos++
		return ast.Rollback{}, nil
	case p.isKeyword("EXPLAIN"):
		p.pos++
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return ast.Explain{Inner: inner}, nil
	default:
		return nil, sqlerr.Parsef("expected a statement, found %q", p.cur().text)
	}
}

// --- DDL ---

func (p *Parser) parseDataType() (types.DataType, error) {
	t := p.cur()
	if t.kind != tokKeyword {
		return 0, sqlerr.Parsef("expected a data type, found %q", t.text)
	}
	p.pos++
	switch t.text {
	case "INT", "INTEGER":
		return types.Integer, nil
	case "FLOAT", "DOUBLE":
		return types.Float, nil
	case "BOOL", "BOOLEAN":
		return types.Boolean, nil
	case "STRING", "TEXT", "VARCHAR":
		return types.String, nil
	default:
		return 0, sqlerr.Parsef("unknown data type %q", t.text)
	}
}

func (p *Parser) parseCreateTable() (ast.Statement, error) {
	p.pos++ // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cols []ast.ColumnSpec
	for {
		col, err := p.parseColumnSpec()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.isSymbol(",") {
			p.pos++
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return ast.CreateTable{Name: name, Columns: cols}, nil
}

func (p *Parser) parseColumnSpec() (ast.ColumnSpec, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.ColumnSpec{}, err
	}
	dt, err := p.parseDataType()
	if err != nil {
		return ast.ColumnSpec{}, err
	}
	spec := ast.ColumnSpec{Name: name, DataType: dt}
	for {
		switch {
		case p.isKeyword("PRIMARY"):
			p.pos++
			if err := p.expectKeyword("KEY"); err != nil {
				return ast.ColumnSpec{}, err
			}
			spec.PrimaryKey = true
		case p.isKeyword("NOT"):
			p.pos++
			if err := p.expectKeyword("NULL"); err != nil {
				return ast.ColumnSpec{}, err
			}
			f := false
			spec.Nullable = &f
		case p.isKeyword("NULL"):
			p.pos++
			tru := true
			spec.Nullable = &tru
		case p.isKeyword("DEFAULT"):
			p.pos++
			expr, err := p.parseExpr()
			if err != nil {
				return ast.ColumnSpec{}, err
			}
			spec.Default = expr
		case p.isKeyword("INDEX"):
			p.pos++
			spec.Index = true
		default:
			return spec, nil
		}
	}
}

func (p *Parser) parseDropTable() (ast.Statement, error) {
	p.pos++ // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return ast.DropTable{Name: name}, nil
}

// --- DML ---

func (p *Parser) parseInsert() (ast.Statement, error) {
	p.pos++ // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var columns []string
	if p.isSymbol("(") {
		p.pos++
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			columns = append(columns, name)
			if p.isSymbol(",") {
				p.pos++
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	var rows [][]ast.Expression
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var row []ast.Expression
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.isSymbol(",") {
				p.pos++
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.isSymbol(",") {
			p.pos++
			continue
		}
		break
	}
	return ast.Insert{Table: table, Columns: columns, Values: rows}, nil
}

func (p *Parser) parseUpdate() (ast.Statement, error) {
	p.pos++ // UPDATE
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	set := make(map[string]ast.Expression)
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		set[name] = e
		if p.isSymbol(",") {
			p.pos++
			continue
		}
		break
	}
	var where ast.Expression
	if p.isKeyword("WHERE") {
		p.pos++
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return ast.Update{Table: table, Set: set, Where: where}, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	p.pos++ // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var where ast.Expression
	if p.isKeyword("WHERE") {
		p.pos++
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return ast.Delete{Table: table, Where: where}, nil
}

// --- SELECT ---

func (p *Parser) parseSelect() (ast.Statement, error) {
	p.pos++ // SELECT
	var exprs []ast.SelectExpr
	if p.isSymbol("*") {
		p.pos++
	} else {
		for {
			se, err := p.parseSelectExpr()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, se)
			if p.isSymbol(",") {
				p.pos++
				continue
			}
			break
		}
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseFrom()
	if err != nil {
		return nil, err
	}
	sel := ast.Select{Expressions: exprs, From: from}

	if p.isKeyword("WHERE") {
		p.pos++
		sel.Where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.isKeyword("GROUP") {
		p.pos++
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		sel.GroupBy, err = p.expectIdent()
		if err != nil {
			return nil, err
		}
	}
	if p.isKeyword("HAVING") {
		p.pos++
		sel.Having, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.isKeyword("ORDER") {
		p.pos++
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			desc := false
			if p.isKeyword("ASC") {
				p.pos++
			} else if p.isKeyword("DESC") {
				p.pos++
				desc = true
			}
			sel.OrderBy = append(sel.OrderBy, ast.OrderExpr{Column: col, Desc: desc})
			if p.isSymbol(",") {
				p.pos++
				continue
			}
			break
		}
	}
	if p.isKeyword("LIMIT") {
		p.pos++
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		sel.Limit = &n
	}
	if p.isKeyword("OFFSET") {
		p.pos++
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		sel.Offset = &n
	}
	return sel, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	t := p.cur()
	if t.kind != tokNumber {
		return 0, sqlerr.Parsef("expected a number, found %q", t.text)
	}
	p.pos++
	return parseInt(t.text)
}

func (p *Parser) parseSelectExpr() (ast.SelectExpr, error) {
	e, err := p.parseExpr()
	if err != nil {
		return ast.SelectExpr{}, err
	}
	alias := ""
	if p.isKeyword("AS") {
		p.pos++
		alias, err = p.expectIdent()
		if err != nil {
			return ast.SelectExpr{}, err
		}
	} else if p.cur().kind == tokIdent {
		alias, err = p.expectIdent()
		if err != nil {
			return ast.SelectExpr{}, err
		}
	}
	return ast.SelectExpr{Expr: e, Alias: alias}, nil
}

func (p *Parser) parseFrom() (ast.FromItem, error) {
	left, err := p.parseFromTable()
	if err != nil {
		return nil, err
	}
	for {
		joinType, ok := p.peekJoin()
		if !ok {
			return left, nil
		}
		p.consumeJoin()
		right, err := p.parseFromTable()
		if err != nil {
			return nil, err
		}
		var on ast.Expression
		if joinType != ast.JoinCross {
			if err := p.expectKeyword("ON"); err != nil {
				return nil, err
			}
			on, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		left = ast.FromJoin{Left: left, Right: right, Type: joinType, On: on}
	}
}

func (p *Parser) parseFromTable() (ast.FromItem, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return ast.FromTable{Name: name}, nil
}

func (p *Parser) peekJoin() (ast.JoinType, bool) {
	switch {
	case p.isKeyword("CROSS"):
		return ast.JoinCross, true
	case p.isKeyword("INNER"):
		return ast.JoinInner, true
	case p.isKeyword("LEFT"):
		return ast.JoinLeft, true
	case p.isKeyword("RIGHT"):
		return ast.JoinRight, true
	case p.isKeyword("JOIN"):
		return ast.JoinInner, true
	default:
		return 0, false
	}
}

func (p *Parser) consumeJoin() {
	if p.isKeyword("JOIN") {
		p.pos++
		return
	}
	p.pos++ // CROSS/INNER/LEFT/RIGHT
	if p.isKeyword("JOIN") {
		p.pos++
	}
}

// --- expressions ---
//
// Precedence, lowest to highest: OR, AND, NOT, comparison (= > < >= <=
// != <>), additive (+ -), multiplicative (* /), unary minus, primary.

func (p *Parser) parseExpr() (ast.Expression, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.Operation{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.Operation{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.isKeyword("NOT") {
		p.pos++
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.Operation{Op: ast.OpNot, Left: e}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	sym := p.cur()
	if sym.kind != tokSymbol || !isComparisonSymbol(sym.text) {
		return left, nil
	}
	p.pos++
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return buildComparison(sym.text, left, right), nil
}

func isComparisonSymbol(s string) bool {
	switch s {
	case "=", ">", "<", ">=", "<=", "!=", "<>":
		return true
	}
	return false
}

// buildComparison expands the compound comparison operators in terms
// of the three primitives the evaluator understands (Equal,
// GreaterThan, LessThan, Not), since ast.Op has no dedicated variants
// for them.
func buildComparison(sym string, left, right ast.Expression) ast.Expression {
	switch sym {
	case "=":
		return ast.Operation{Op: ast.OpEqual, Left: left, Right: right}
	case ">":
		return ast.Operation{Op: ast.OpGreaterThan, Left: left, Right: right}
	case "<":
		return ast.Operation{Op: ast.OpLessThan, Left: left, Right: right}
	case ">=":
		return ast.Operation{Op: ast.OpNot, Left: ast.Operation{Op: ast.OpLessThan, Left: left, Right: right}}
	case "<=":
		return ast.Operation{Op: ast.OpNot, Left: ast.Operation{Op: ast.OpGreaterThan, Left: left, Right: right}}
	default: // "!=", "<>"
		return ast.Operation{Op: ast.OpNot, Left: ast.Operation{Op: ast.OpEqual, Left: left, Right: right}}
	}
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("+") || p.isSymbol("-") {
		op := ast.OpAdd
		if p.cur().text == "-" {
			op = ast.OpSubtract
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.Operation{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("*") || p.isSymbol("/") {
		op := ast.OpMultiply
		if p.cur().text == "/" {
			op = ast.OpDivide
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.Operation{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.isSymbol("-") {
		p.pos++
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Operation{Op: ast.OpSubtract, Left: ast.Const{Value: types.NewInteger(0)}, Right: e}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	t := p.cur()
	switch {
	case t.kind == tokNumber:
		p.pos++
		return numberLiteral(t.text)
	case t.kind == tokString:
		p.pos++
		return ast.Const{Value: types.NewString(t.text)}, nil
	case t.kind == tokKeyword && t.text == "TRUE":
		p.pos++
		return ast.Const{Value: types.NewBoolean(true)}, nil
	case t.kind == tokKeyword && t.text == "FALSE":
		p.pos++
		return ast.Const{Value: types.NewBoolean(false)}, nil
	case t.kind == tokKeyword && t.text == "NULL":
		p.pos++
		return ast.Const{Value: types.Null}, nil
	case t.kind == tokKeyword && ast.IsAggregateName(t.text):
		return p.parseFunctionCall()
	case t.kind == tokSymbol && t.text == "(":
		p.pos++
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.kind == tokIdent:
		return p.parseFieldOrCall()
	default:
		return nil, sqlerr.Parsef("expected an expression, found %q", t.text)
	}
}

func numberLiteral(text string) (ast.Expression, error) {
	for _, r := range text {
		if r == '.' {
			f, err := parseFloat(text)
			if err != nil {
				return nil, err
			}
			return ast.Const{Value: types.NewFloat(f)}, nil
		}
	}
	n, err := parseInt(text)
	if err != nil {
		return nil, err
	}
	return ast.Const{Value: types.NewInteger(n)}, nil
}

func (p *Parser) parseFunctionCall() (ast.Expression, error) {
	name := p.cur().text
	raw := p.cur().raw
	p.pos++
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var arg ast.Expression
	if p.isSymbol("*") {
		p.pos++
	} else {
		var err error
		arg, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return ast.Function{Name: name, Arg: arg, Label: raw}, nil
}

// parseFieldOrCall resolves an identifier into a (possibly
// table-qualified) Field. Aggregate calls never reach it: their names
// are lexed as keywords and parsed by parseFunctionCall.
func (p *Parser) parseFieldOrCall() (ast.Expression, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.isSymbol(".") {
		p.pos++
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return ast.Field{Table: name, Name: col}, nil
	}
	return ast.Field{Name: name}, nil
}
