package data

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ValueKind classifies a literal in an insert statement.
type ValueKind int

const (
	// ValueNull is the NULL keyword.
	ValueNull ValueKind = iota
	// ValueString is a single-quoted literal.
	ValueString
	// ValueNumber is a numeric literal.
	ValueNumber
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is one literal of a VALUES tuple. Number is set for ValueNumber and
// Text holds the literal as written, without quotes.
type Value struct {
	Kind   ValueKind
	Text   string
	Number decimal.Decimal
}

// Insert is one INSERT INTO statement. Columns is nil when the statement
// omits the column list, in which case each tuple covers every column of the
// table in declaration order.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]Value
	Line    int
	Column  int
}

// SyntaxError reports a query that does not follow the insert grammar.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokInsert
	tokInto
	tokValues
	tokCommit
	tokNull
	tokOpenParen
	tokCloseParen
	tokComma
	tokSemicolon
)

var tokenNames = [...]string{
	tokEOF:        "end of input",
	tokIdent:      "identifier",
	tokString:     "string",
	tokNumber:     "number",
	tokInsert:     "INSERT",
	tokInto:       "INTO",
	tokValues:     "VALUES",
	tokCommit:     "COMMIT",
	tokNull:       "NULL",
	tokOpenParen:  "`(`",
	tokCloseParen: "`)`",
	tokComma:      "`,`",
	tokSemicolon:  "`;`",
}

// keywords are matched case-insensitively.
var keywords = map[string]tokenKind{
	"insert": tokInsert,
	"into":   tokInto,
	"values": tokValues,
	"commit": tokCommit,
	"null":   tokNull,
}

type token struct {
	kind   tokenKind
	text   string
	line   int
	column int
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent, tokNumber:
		return fmt.Sprintf("%s %q", tokenNames[t.kind], t.text)
	case tokString:
		return fmt.Sprintf("string '%s'", t.text)
	default:
		return tokenNames[t.kind]
	}
}

type lexer struct {
	src    string
	offset int
	line   int
	column int
}

func scan(src string) ([]token, error) {
	l := &lexer{src: src, line: 1, column: 1}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peek() rune {
	if l.offset >= len(l.src) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.offset:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) errorf(line, column int, format string, args ...any) error {
	return &SyntaxError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	tok := token{line: l.line, column: l.column}
	if l.offset >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}

	start := l.offset
	r := l.peek()
	switch {
	case r == '(':
		l.advance()
		tok.kind = tokOpenParen
	case r == ')':
		l.advance()
		tok.kind = tokCloseParen
	case r == ',':
		l.advance()
		tok.kind = tokComma
	case r == ';':
		l.advance()
		tok.kind = tokSemicolon
	case r == '\'':
		text, err := l.scanString()
		if err != nil {
			return tok, err
		}
		tok.kind, tok.text = tokString, text
		return tok, nil
	case r == '-' || r == '+' || r == '.' || isDigit(r):
		l.scanNumber()
		tok.kind = tokNumber
	case r == '_' || unicode.IsLetter(r):
		for l.offset < len(l.src) {
			r := l.peek()
			if r != '_' && !unicode.IsLetter(r) && !isDigit(r) {
				break
			}
			l.advance()
		}
		tok.kind = tokIdent
		if kind, ok := keywords[strings.ToLower(l.src[start:l.offset])]; ok {
			tok.kind = kind
		}
	default:
		if r == utf8.RuneError {
			return tok, l.errorf(tok.line, tok.column, "unexpected byte %#02x", l.src[l.offset])
		}
		return tok, l.errorf(tok.line, tok.column, "unexpected character %q", r)
	}
	tok.text = l.src[start:l.offset]
	return tok, nil
}

// skipSpace skips whitespace and `--` line comments.
func (l *lexer) skipSpace() {
	for l.offset < len(l.src) {
		r := l.peek()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case strings.HasPrefix(l.src[l.offset:], "--"):
			for l.offset < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// scanString reads a single-quoted literal. A doubled quote stands for one
// quote character.
func (l *lexer) scanString() (string, error) {
	line, column := l.line, l.column
	l.advance()
	var b strings.Builder
	for l.offset < len(l.src) {
		r := l.advance()
		if r != '\'' {
			b.WriteRune(r)
			continue
		}
		if l.offset < len(l.src) && l.peek() == '\'' {
			l.advance()
			b.WriteRune('\'')
			continue
		}
		return b.String(), nil
	}
	return "", l.errorf(line, column, "unterminated string literal")
}

// scanNumber consumes a sign, digits, an optional fraction and an optional
// exponent. The parser validates the result.
func (l *lexer) scanNumber() {
	if r := l.peek(); r == '-' || r == '+' {
		l.advance()
	}
	for l.offset < len(l.src) {
		r := l.peek()
		switch {
		case isDigit(r), r == '.':
			l.advance()
		case r == 'e' || r == 'E':
			l.advance()
			if r := l.peek(); r == '-' || r == '+' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

type queryParser struct {
	tokens []token
	pos    int
}

// Parse reads a query made of INSERT INTO statements separated by
// semicolons. COMMIT statements and empty statements are accepted and carry
// no data; a query must hold at least one insert.
func Parse(src string) ([]Insert, error) {
	tokens, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &queryParser{tokens: tokens}
	var inserts []Insert
	for {
		switch p.current().kind {
		case tokEOF:
			if len(inserts) == 0 {
				tok := p.current()
				return nil, &SyntaxError{Line: tok.line, Column: tok.column, Message: "query holds no INSERT statement"}
			}
			return inserts, nil
		case tokSemicolon:
			p.advance()
			continue
		case tokCommit:
			p.advance()
		case tokInsert:
			ins, err := p.parseInsert()
			if err != nil {
				return nil, err
			}
			inserts = append(inserts, ins)
		default:
			return nil, p.unexpected("INSERT or COMMIT")
		}
		if kind := p.current().kind; kind != tokSemicolon && kind != tokEOF {
			return nil, p.unexpected("`;`")
		}
	}
}

func (p *queryParser) current() token {
	return p.tokens[p.pos]
}

func (p *queryParser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *queryParser) expect(kind tokenKind) (token, error) {
	if p.current().kind != kind {
		return token{}, p.unexpected(tokenNames[kind])
	}
	return p.advance(), nil
}

func (p *queryParser) unexpected(expected string) error {
	tok := p.current()
	return &SyntaxError{
		Line:    tok.line,
		Column:  tok.column,
		Message: fmt.Sprintf("expected %s, got %s", expected, tok.describe()),
	}
}

func (p *queryParser) parseInsert() (Insert, error) {
	insertTok := p.advance()
	if _, err := p.expect(tokInto); err != nil {
		return Insert{}, err
	}
	tableTok, err := p.expect(tokIdent)
	if err != nil {
		return Insert{}, err
	}
	ins := Insert{Table: tableTok.text, Line: insertTok.line, Column: insertTok.column}

	if p.current().kind == tokOpenParen {
		p.advance()
		for {
			col, err := p.expect(tokIdent)
			if err != nil {
				return Insert{}, err
			}
			ins.Columns = append(ins.Columns, col.text)
			if p.current().kind != tokComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(tokCloseParen); err != nil {
			return Insert{}, err
		}
	}

	if _, err := p.expect(tokValues); err != nil {
		return Insert{}, err
	}
	for {
		row, err := p.parseTuple()
		if err != nil {
			return Insert{}, err
		}
		ins.Rows = append(ins.Rows, row)
		if p.current().kind != tokComma {
			return ins, nil
		}
		p.advance()
	}
}

func (p *queryParser) parseTuple() ([]Value, error) {
	if _, err := p.expect(tokOpenParen); err != nil {
		return nil, err
	}
	var row []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		row = append(row, v)
		if p.current().kind != tokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(tokCloseParen); err != nil {
		return nil, err
	}
	return row, nil
}

func (p *queryParser) parseValue() (Value, error) {
	tok := p.current()
	switch tok.kind {
	case tokString:
		p.advance()
		return Value{Kind: ValueString, Text: tok.text}, nil
	case tokNull:
		p.advance()
		return Value{Kind: ValueNull}, nil
	case tokNumber:
		n, err := decimal.NewFromString(tok.text)
		if err != nil {
			return Value{}, &SyntaxError{Line: tok.line, Column: tok.column, Message: fmt.Sprintf("invalid number %q", tok.text)}
		}
		p.advance()
		return Value{Kind: ValueNumber, Text: tok.text, Number: n}, nil
	default:
		return Value{}, p.unexpected("a value")
	}
}
