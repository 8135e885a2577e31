package grammar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/electwix/db-catalogue/internal/schema/model"
	"github.com/electwix/db-catalogue/internal/schema/parser"
	"github.com/electwix/db-catalogue/internal/schema/tokenizer"
)

func TestGrammarAgreesWithParser(t *testing.T) {
	fixture, err := os.ReadFile(filepath.Join("..", "parser", "testdata", "hr.ddl"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	sources := map[string]string{
		"fixture":     string(fixture),
		"empty":       "",
		"single":      "model Foo { id Int @id name String }",
		"nullable":    "model N { a Int? b Blob ? c Date?@id }",
		"annotations": "model A { x Int @references(B, y) @id }\nmodel B { y Int @id }",
		"comments":    "// header\nmodel C { // trailing\n  id Float @id\n}",
		"unicode":     "model Café { größe Int @id }",
		"no fields":   "model Empty { }",
	}

	p := MustParser()
	opts := cmp.Options{cmpopts.IgnoreTypes(tokenizer.LineColumn{}), cmpopts.EquateEmpty()}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			want := parser.Parse(src)
			if want.Failed() || len(want.Lexical) != 0 {
				t.Fatalf("hand-written parser rejected source: %v %v", want.Lexical, want.Diagnostics)
			}
			got, err := p.Parse(src)
			if err != nil {
				t.Fatalf("grammar rejected source: %v", err)
			}
			if diff := cmp.Diff(want.Models, got, opts); diff != "" {
				t.Fatalf("grammar and parser disagree (-parser +grammar):\n%s", diff)
			}
		})
	}
}

func TestGrammarRejects(t *testing.T) {
	p := MustParser()
	cases := map[string]string{
		"unterminated":       "model Foo {",
		"unknown type":       "model Foo { id Bool }",
		"missing comma":      "model Foo { id Int @references(Bar id) }",
		"unknown annotation": "model Foo { id Int @unique }",
		"id with arguments":  "model Foo { id Int @id(Bar, id) }",
		"bare references":    "model Foo { id Int @references }",
		"keyword field":      "model Foo { String Int }",
		"double reference":   "model Foo { id Int @references(A, b) @references(C, d) }",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Parse(src); err == nil {
				t.Fatalf("expected error for %q", src)
			}
			if !parser.Parse(src).Failed() {
				t.Fatalf("hand-written parser accepted %q", src)
			}
		})
	}
}

func TestGrammarReservedName(t *testing.T) {
	_, err := MustParser().Parse("model Int { }")
	if !errors.Is(err, ErrReserved) {
		t.Fatalf("expected ErrReserved, got %v", err)
	}
}

func TestGrammarPositions(t *testing.T) {
	models, err := MustParser().Parse("model A {\n  id Int @id\n}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := models[0].Fields[0].Pos; got != (tokenizer.LineColumn{Line: 2, Column: 3}) {
		t.Fatalf("field position = %+v, want 2:3", got)
	}
	if models[0].Fields[0].Type != model.Int {
		t.Fatalf("field type = %v", models[0].Fields[0].Type)
	}
}

func TestGrammarEBNF(t *testing.T) {
	ebnf := MustParser().String()
	for _, want := range []string{"Schema", "ModelDecl", "FieldDecl", `"model"`, `"Blob"`} {
		if !strings.Contains(ebnf, want) {
			t.Fatalf("EBNF missing %s:\n%s", want, ebnf)
		}
	}
}
