// Package grammar declares the schema language as a participle grammar.
//
// The hand-written parser in internal/schema/parser is what the compiler
// uses; this package exists to print the grammar as EBNF and to cross-check
// the hand-written parser on well-formed input.
package grammar

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/electwix/db-catalogue/internal/schema/model"
	"github.com/electwix/db-catalogue/internal/schema/tokenizer"
)

//nolint:govet // Participle struct tags are DSL, not reflect tags
type Schema struct {
	Models []*ModelDecl `parser:"@@*"`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type ModelDecl struct {
	Pos    lexer.Position
	Name   string       `parser:"\"model\" @Ident \"{\""`
	Fields []*FieldDecl `parser:"@@* \"}\""`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type FieldDecl struct {
	Pos         lexer.Position
	Name        string        `parser:"@Ident"`
	Type        string        `parser:"@(\"Int\" | \"Float\" | \"Date\" | \"String\" | \"Blob\")"`
	Nullable    bool          `parser:"@\"?\"?"`
	Annotations []*Annotation `parser:"@@*"`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type Annotation struct {
	Pos       lexer.Position
	Name      string     `parser:"\"@\" @Ident"`
	Reference *Reference `parser:"@@?"`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type Reference struct {
	Model string `parser:"\"(\" @Ident \",\""`
	Field string `parser:"@Ident \")\""`
}

// Lexer mirrors the hand-written tokenizer: `//` comments, letters followed
// by letters, digits or underscores, and single-character punctuation.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Ident", Pattern: `\pL[\pL\p{Nd}_]*`},
	{Name: "Punct", Pattern: `[{}()?@,]`},
})

// ErrReserved is returned when a keyword is used where a name is expected.
var ErrReserved = errors.New("reserved word used as a name")

// Parser wraps the participle parser for the schema language.
type Parser struct {
	parser *participle.Parser[Schema]
}

// NewParser builds the participle parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[Schema](
		participle.Lexer(Lexer),
		participle.Elide("Comment", "Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("build schema grammar: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// MustParser is NewParser for package-level initialisation.
func MustParser() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the grammar as EBNF.
func (p *Parser) String() string {
	return p.parser.String()
}

// ParseString parses src into the grammar AST.
func (p *Parser) ParseString(src string) (*Schema, error) {
	schema, err := p.parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return schema, nil
}

// Parse parses src and converts the AST into models.
func (p *Parser) Parse(src string) ([]model.Model, error) {
	schema, err := p.ParseString(src)
	if err != nil {
		return nil, err
	}
	return schema.ToModels()
}

// ToModels converts the AST into models. It applies the checks participle
// cannot express: names must not be keywords and annotations must be @id or
// @references(Model, Field).
func (s *Schema) ToModels() ([]model.Model, error) {
	models := make([]model.Model, 0, len(s.Models))
	for _, decl := range s.Models {
		if err := checkName(decl.Name, decl.Pos); err != nil {
			return nil, err
		}
		m := model.Model{Name: decl.Name, Pos: lineColumn(decl.Pos)}
		for _, fd := range decl.Fields {
			field, err := fd.field()
			if err != nil {
				return nil, err
			}
			m.Fields = append(m.Fields, field)
		}
		models = append(models, m)
	}
	return models, nil
}

func (fd *FieldDecl) field() (model.Field, error) {
	if err := checkName(fd.Name, fd.Pos); err != nil {
		return model.Field{}, err
	}
	bt, ok := model.LookupBasicType(fd.Type)
	if !ok {
		return model.Field{}, &model.UnknownTypeError{Name: fd.Type}
	}
	field := model.Field{
		Name:     fd.Name,
		Type:     bt,
		Nullable: fd.Nullable,
		Pos:      lineColumn(fd.Pos),
	}
	for _, ann := range fd.Annotations {
		switch {
		case ann.Name == "id" && ann.Reference == nil:
			field.Primary = true
		case ann.Name == "references" && ann.Reference != nil:
			if field.References != nil {
				return model.Field{}, fmt.Errorf("%s: field %s has more than one @references", ann.Pos, fd.Name)
			}
			for _, name := range []string{ann.Reference.Model, ann.Reference.Field} {
				if err := checkName(name, ann.Pos); err != nil {
					return model.Field{}, err
				}
			}
			field.References = &model.ForeignKey{
				Model: ann.Reference.Model,
				Field: ann.Reference.Field,
				Pos:   lineColumn(ann.Pos),
			}
		default:
			return model.Field{}, fmt.Errorf("%s: unsupported annotation @%s", ann.Pos, ann.Name)
		}
	}
	return field, nil
}

func checkName(name string, pos lexer.Position) error {
	if tokenizer.LookupKeyword(name) != tokenizer.KindIdentifier {
		return fmt.Errorf("%s: %q: %w", pos, name, ErrReserved)
	}
	return nil
}

func lineColumn(pos lexer.Position) tokenizer.LineColumn {
	return tokenizer.LineColumn{Line: pos.Line, Column: pos.Column}
}
