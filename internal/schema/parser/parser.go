// Package parser implements a recursive-descent parser for schema source.
package parser

import (
	"strconv"

	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
	"github.com/electwix/db-catalogue/internal/schema/model"
	"github.com/electwix/db-catalogue/internal/schema/tokenizer"
)

const (
	annotationID         = "id"
	annotationReferences = "references"
)

// Result is the output of ParseModels.
type Result struct {
	// Models holds every model parsed before the first syntactic error, in
	// source order.
	Models []model.Model
	// Diagnostics holds at most one syntactic diagnostic.
	Diagnostics []diagnostic.Diagnostic
	// Lexical holds the diagnostics raised while tokenizing the source.
	Lexical []diagnostic.Diagnostic
}

// Failed reports whether parsing stopped on a syntactic error.
func (r Result) Failed() bool {
	return len(r.Diagnostics) > 0
}

// Parser turns schema source into models. A Parser is not safe for
// concurrent use; create one per compilation.
type Parser struct {
	src    string
	tokens []tokenizer.Token
	pos    int

	diagnostics []diagnostic.Diagnostic
}

// New returns a parser over src.
func New(src string) *Parser {
	return &Parser{src: src}
}

// Parse is shorthand for New(src).ParseModels().
func Parse(src string) Result {
	return New(src).ParseModels()
}

// ParseModels tokenizes the source and parses models until the input is
// exhausted or a model fails to parse. Parsing is fail-fast: the first
// structural error aborts the current model and no later model is attempted.
// Calling ParseModels again re-parses from the start.
func (p *Parser) ParseModels() Result {
	scanned := tokenizer.Scan(p.src)
	p.tokens = scanned.Tokens
	p.pos = 0
	p.diagnostics = nil

	models := make([]model.Model, 0, 4)
	for !p.isEOF() {
		m, ok := p.parseModel()
		if !ok {
			break
		}
		models = append(models, m)
	}
	return Result{
		Models:      models,
		Diagnostics: p.diagnostics,
		Lexical:     scanned.Diagnostics,
	}
}

func (p *Parser) parseModel() (model.Model, bool) {
	modelTok, ok := p.expect(tokenizer.KindModel, diagnostic.ReasonExpectedModel, "`model`")
	if !ok {
		return model.Model{}, false
	}
	nameTok, ok := p.expectIdentifier("model name")
	if !ok {
		return model.Model{}, false
	}
	if _, ok := p.expect(tokenizer.KindOpenBrace, diagnostic.ReasonExpectedOpenBrace, "`{`"); !ok {
		return model.Model{}, false
	}

	m := model.Model{
		Name: nameTok.Text,
		Pos:  p.position(modelTok),
	}
	for !p.isEOF() && p.current().Kind != tokenizer.KindCloseBrace {
		field, ok := p.parseField()
		if !ok {
			return model.Model{}, false
		}
		m.Fields = append(m.Fields, field)
	}
	if _, ok := p.expect(tokenizer.KindCloseBrace, diagnostic.ReasonExpectedCloseBrace, "`}`"); !ok {
		return model.Model{}, false
	}
	return m, true
}

func (p *Parser) parseField() (model.Field, bool) {
	nameTok, ok := p.expectIdentifier("field name")
	if !ok {
		return model.Field{}, false
	}
	field := model.Field{
		Name: nameTok.Text,
		Pos:  p.position(nameTok),
	}

	typeTok := p.current()
	switch typeTok.Kind {
	case tokenizer.KindType:
		field.Type, _ = model.LookupBasicType(typeTok.Text)
		p.advance()
	case tokenizer.KindIdentifier:
		p.addDiag(typeTok, diagnostic.ReasonUnknownType, "unknown type %s for field %q", describe(typeTok), field.Name)
		return model.Field{}, false
	default:
		p.addDiag(typeTok, diagnostic.ReasonExpectedType, "expected type for field %q, got %s", field.Name, describe(typeTok))
		return model.Field{}, false
	}

	if p.current().Kind == tokenizer.KindQuestion {
		p.advance()
		field.Nullable = true
	}

	for p.current().Kind == tokenizer.KindAt {
		if !p.parseAnnotation(&field) {
			return model.Field{}, false
		}
	}
	return field, true
}

func (p *Parser) parseAnnotation(field *model.Field) bool {
	p.advance() // @
	nameTok, ok := p.expectIdentifier("annotation name")
	if !ok {
		return false
	}
	switch nameTok.Text {
	case annotationID:
		field.Primary = true
		return true
	case annotationReferences:
		if field.References != nil {
			p.addDiag(nameTok, diagnostic.ReasonDuplicateReference,
				"field %q already references %s.%s", field.Name, field.References.Model, field.References.Field)
			return false
		}
		fk, ok := p.parseReferences(nameTok)
		if !ok {
			return false
		}
		field.References = fk
		return true
	default:
		p.addDiag(nameTok, diagnostic.ReasonUnknownAnnotation,
			"unknown annotation @%s, expected @%s or @%s", nameTok.Text, annotationID, annotationReferences)
		return false
	}
}

func (p *Parser) parseReferences(refTok tokenizer.Token) (*model.ForeignKey, bool) {
	if _, ok := p.expect(tokenizer.KindOpenParen, diagnostic.ReasonExpectedOpenParen, "`(` after @references"); !ok {
		return nil, false
	}
	modelTok, ok := p.expectIdentifier("referenced model name")
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(tokenizer.KindComma, diagnostic.ReasonExpectedComma, "`,` between @references arguments"); !ok {
		return nil, false
	}
	fieldTok, ok := p.expectIdentifier("referenced field name")
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(tokenizer.KindCloseParen, diagnostic.ReasonExpectedCloseParen, "`)` after @references arguments"); !ok {
		return nil, false
	}
	return &model.ForeignKey{
		Model: modelTok.Text,
		Field: fieldTok.Text,
		Pos:   p.position(refTok),
	}, true
}

func (p *Parser) expectIdentifier(what string) (tokenizer.Token, bool) {
	return p.expect(tokenizer.KindIdentifier, diagnostic.ReasonExpectedIdentifier, "identifier ("+what+")")
}

// expect consumes the current token when it has the wanted kind. Otherwise it
// records a diagnostic naming the expected construct and leaves the cursor in
// place.
func (p *Parser) expect(kind tokenizer.Kind, reason diagnostic.Reason, expected string) (tokenizer.Token, bool) {
	tok := p.current()
	if tok.Kind != kind {
		p.addDiag(tok, reason, "expected %s, got %s", expected, describe(tok))
		return tok, false
	}
	p.advance()
	return tok, true
}

func (p *Parser) current() tokenizer.Token {
	if p.pos >= len(p.tokens) {
		return tokenizer.Token{Kind: tokenizer.KindEOF, Offset: len(p.src)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() tokenizer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) isEOF() bool {
	return p.current().Kind == tokenizer.KindEOF
}

func (p *Parser) position(tok tokenizer.Token) tokenizer.LineColumn {
	return tokenizer.Position(p.src, tok.Offset)
}

func (p *Parser) addDiag(tok tokenizer.Token, reason diagnostic.Reason, format string, args ...any) {
	pos := p.position(tok)
	p.diagnostics = append(p.diagnostics, diagnostic.New(diagnostic.StageSyntactic, reason, pos.Line, pos.Column, format, args...))
}

func describe(tok tokenizer.Token) string {
	if tok.Kind == tokenizer.KindEOF {
		return tok.Kind.String()
	}
	return strconv.Quote(tok.Text)
}
