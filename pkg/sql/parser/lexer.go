// Package parser turns SQL text into an ast.Statement (SPEC_FULL.md
// §6's grammar). The core spec scopes lexing/parsing out as an
// "external collaborator" the planner doesn't depend on, but a
// runnable CLI needs some way to produce an ast.Statement from text;
// this hand-rolled recursive-descent parser is grounded on
// original_source/src/sql/parser/{lexer,mod,ast}.rs's token set and
// statement grammar, re-expressed in the teacher's error-handling
// idiom (sqlerr.Parse) rather than a parser-combinator library — see
// DESIGN.md for why no third-party parsing library was used.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/embedb/embedb/pkg/sqlerr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKeyword
	tokIdent
	tokString
	tokNumber
	tokSymbol
)

type token struct {
	kind tokenKind
	text string // verbatim for idents/strings/numbers; upper-cased keyword/symbol spelling
	raw  string // as-typed spelling, before keyword upper-casing; set for identifiers (equal to text) and keywords only
}

var keywords = map[string]bool{
	"CREATE": true, "TABLE": true, "DROP": true, "INSERT": true, "INTO": true,
	"VALUES": true, "UPDATE": true, "SET": true, "DELETE": true, "FROM": true,
	"SELECT": true, "WHERE": true, "GROUP": true, "BY": true, "HAVING": true,
	"ORDER": true, "ASC": true, "DESC": true, "LIMIT": true, "OFFSET": true,
	"JOIN": true, "CROSS": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"ON": true, "AND": true, "OR": true, "NOT": true, "NULL": true,
	"TRUE": true, "FALSE": true, "PRIMARY": true, "KEY": true, "DEFAULT": true,
	"INDEX": true, "BEGIN": true, "COMMIT": true, "ROLLBACK": true,
	"EXPLAIN": true, "AS": true,
	"INT": true, "INTEGER": true, "FLOAT": true, "DOUBLE": true,
	"BOOL": true, "BOOLEAN": true, "STRING": true, "TEXT": true, "VARCHAR": true,
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true, "AVG": true,
}

// lexer converts a SQL source string into a token slice, grounded on
// original_source/src/sql/parser/lexer.rs's Token enum.
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) tokenize() ([]token, error) {
	var toks []token
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			toks = append(toks, token{kind: tokEOF})
			return toks, nil
		}
		c := l.src[l.pos]
		switch {
		case unicode.IsLetter(c) || c == '_':
			toks = append(toks, l.lexIdentOrKeyword())
		case unicode.IsDigit(c):
			toks = append(toks, l.lexNumber())
		case c == '\'':
			tok, err := l.lexString()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		default:
			tok, err := l.lexSymbol()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		}
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsSpace(c) {
			l.pos++
			continue
		}
		if c == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '-' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func (l *lexer) lexIdentOrKeyword() token {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	upper := strings.ToUpper(text)
	if keywords[upper] {
		return token{kind: tokKeyword, text: upper, raw: text}
	}
	return token{kind: tokIdent, text: text, raw: text}
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos])}
}

func (l *lexer) lexString() (token, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, sqlerr.Parsef("unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				b.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: b.String()}, nil
		}
		b.WriteRune(c)
		l.pos++
	}
}

var twoCharSymbols = map[string]bool{">=": true, "<=": true, "!=": true, "<>": true}

func (l *lexer) lexSymbol() (token, error) {
	c := l.src[l.pos]
	if l.pos+1 < len(l.src) {
		two := string(l.src[l.pos : l.pos+2])
		if twoCharSymbols[two] {
			l.pos += 2
			return token{kind: tokSymbol, text: two}, nil
		}
	}
	switch c {
	case '(', ')', ',', ';', '*', '+', '-', '/', '=', '>', '<', '.':
		l.pos++
		return token{kind: tokSymbol, text: string(c)}, nil
	}
	return token{}, sqlerr.Parsef("unexpected character %q", string(c))
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, sqlerr.Parsef("invalid number literal %q", s)
	}
	return f, nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, sqlerr.Parsef("invalid integer literal %q", s)
	}
	return n, nil
}
