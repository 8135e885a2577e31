package tokenizer

import (
	"strings"
	"testing"

	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
)

type tokenExpectation struct {
	kind Kind
	text string
}

func TestScanAllKinds(t *testing.T) {
	res := Scan("model {}() identifier Int Float Date String Blob ? , @")
	expected := []tokenExpectation{
		{KindModel, "model"},
		{KindOpenBrace, "{"},
		{KindCloseBrace, "}"},
		{KindOpenParen, "("},
		{KindCloseParen, ")"},
		{KindIdentifier, "identifier"},
		{KindType, "Int"},
		{KindType, "Float"},
		{KindType, "Date"},
		{KindType, "String"},
		{KindType, "Blob"},
		{KindQuestion, "?"},
		{KindComma, ","},
		{KindAt, "@"},
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	assertTokens(t, res.Tokens, expected)
}

func TestScanModelBlock(t *testing.T) {
	src := `model Employee {
    EmployeeID String @id
    DepartmentID Int? @references(Department, DepartmentID)
}
`
	res := Scan(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	expected := []tokenExpectation{
		{KindModel, "model"},
		{KindIdentifier, "Employee"},
		{KindOpenBrace, "{"},
		{KindIdentifier, "EmployeeID"},
		{KindType, "String"},
		{KindAt, "@"},
		{KindIdentifier, "id"},
		{KindIdentifier, "DepartmentID"},
		{KindType, "Int"},
		{KindQuestion, "?"},
		{KindAt, "@"},
		{KindIdentifier, "references"},
		{KindOpenParen, "("},
		{KindIdentifier, "Department"},
		{KindComma, ","},
		{KindIdentifier, "DepartmentID"},
		{KindCloseParen, ")"},
		{KindCloseBrace, "}"},
	}
	assertTokens(t, res.Tokens, expected)

	pos := Position(src, res.Tokens[3].Offset)
	if pos.Line != 2 || pos.Column != 5 {
		t.Fatalf("EmployeeID position = %+v, want 2:5", pos)
	}
}

func TestScanKeywordsAreCaseSensitive(t *testing.T) {
	res := Scan("Model int string model_name Int2")
	for i, tok := range res.Tokens {
		if tok.Kind != KindIdentifier {
			t.Fatalf("token %d (%q) kind = %s, want identifier", i, tok.Text, tok.Kind)
		}
	}
	if len(res.Tokens) != 5 {
		t.Fatalf("got %d tokens, want 5", len(res.Tokens))
	}
}

func TestScanSkipsComments(t *testing.T) {
	src := "// leading comment\nmodel Foo { // trailing\n  id Int @id\n}\n// eof comment"
	res := Scan(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	assertTokens(t, res.Tokens, []tokenExpectation{
		{KindModel, "model"},
		{KindIdentifier, "Foo"},
		{KindOpenBrace, "{"},
		{KindIdentifier, "id"},
		{KindType, "Int"},
		{KindAt, "@"},
		{KindIdentifier, "id"},
		{KindCloseBrace, "}"},
	})
}

func TestScanSingleSlashIsUnexpected(t *testing.T) {
	res := Scan("model / Foo")
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(res.Diagnostics))
	}
	if len(res.Tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(res.Tokens))
	}
}

func TestScanRecoversFromUnexpectedCharacter(t *testing.T) {
	res := Scan("model Foo { id Int# }")
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(res.Diagnostics), res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Stage != diagnostic.StageLexical || d.Reason != diagnostic.ReasonUnexpectedCharacter {
		t.Fatalf("unexpected diagnostic classification: %+v", d)
	}
	if d.Line != 1 || d.Column != 19 {
		t.Fatalf("diagnostic position = %d:%d, want 1:19", d.Line, d.Column)
	}
	if !strings.Contains(d.Message, "'#'") {
		t.Fatalf("message should quote the character: %q", d.Message)
	}
	assertTokens(t, res.Tokens, []tokenExpectation{
		{KindModel, "model"},
		{KindIdentifier, "Foo"},
		{KindOpenBrace, "{"},
		{KindIdentifier, "id"},
		{KindType, "Int"},
		{KindCloseBrace, "}"},
	})
}

func TestScanReportsEveryBadCharacter(t *testing.T) {
	res := Scan("model A {\n  a Int $\n  b Int %\n}\n;")
	if len(res.Diagnostics) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %v", len(res.Diagnostics), res.Diagnostics)
	}
	wantLines := []int{2, 3, 5}
	for i, d := range res.Diagnostics {
		if d.Line != wantLines[i] {
			t.Fatalf("diagnostic %d line = %d, want %d", i, d.Line, wantLines[i])
		}
	}
}

func TestScanInvalidUTF8(t *testing.T) {
	res := Scan("model \xff Foo")
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(res.Diagnostics))
	}
	if !strings.Contains(res.Diagnostics[0].Message, "0xff") {
		t.Fatalf("message should show the byte: %q", res.Diagnostics[0].Message)
	}
	if len(res.Tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(res.Tokens))
	}
}

func TestScanUnicodeIdentifiers(t *testing.T) {
	res := Scan("model Café { größe Int }")
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if res.Tokens[1].Text != "Café" || res.Tokens[3].Text != "größe" {
		t.Fatalf("unicode identifiers not preserved: %+v", res.Tokens)
	}
	if got := Position("model Café { größe Int }", res.Tokens[3].Offset); got.Column != 14 {
		t.Fatalf("größe column = %d, want 14", got.Column)
	}
}

func TestScanEmpty(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "// only a comment"} {
		res := Scan(src)
		if len(res.Tokens) != 0 || len(res.Diagnostics) != 0 {
			t.Fatalf("Scan(%q) = %+v, want empty", src, res)
		}
	}
}

func TestScanOffsetsNonDecreasing(t *testing.T) {
	src := "model A{a Int?@id b String@references(B,b)}model B{b String @id}"
	res := Scan(src)
	prev := -1
	for i, tok := range res.Tokens {
		if tok.Offset <= prev {
			t.Fatalf("token %d offset %d not after %d", i, tok.Offset, prev)
		}
		if src[tok.Offset:tok.Offset+len(tok.Text)] != tok.Text {
			t.Fatalf("token %d text %q does not match source at offset %d", i, tok.Text, tok.Offset)
		}
		prev = tok.Offset
	}
}

func TestPosition(t *testing.T) {
	src := "ab\ncd\n\nef"
	cases := []struct {
		offset int
		want   LineColumn
	}{
		{0, LineColumn{1, 1}},
		{1, LineColumn{1, 2}},
		{2, LineColumn{1, 3}},
		{3, LineColumn{2, 1}},
		{7, LineColumn{4, 1}},
		{9, LineColumn{4, 3}},
		{100, LineColumn{4, 3}},
	}
	for _, tc := range cases {
		if got := Position(src, tc.offset); got != tc.want {
			t.Fatalf("Position(%d) = %+v, want %+v", tc.offset, got, tc.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindCloseBrace.String() != "`}`" {
		t.Fatalf("KindCloseBrace = %q", KindCloseBrace.String())
	}
	if KindEOF.String() != "end of input" {
		t.Fatalf("KindEOF = %q", KindEOF.String())
	}
	if Kind(99).String() != "Kind(99)" {
		t.Fatalf("Kind(99) = %q", Kind(99).String())
	}
}

func assertTokens(t *testing.T, tokens []Token, expected []tokenExpectation) {
	t.Helper()
	if len(tokens) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(expected), tokens)
	}
	for i, exp := range expected {
		tok := tokens[i]
		if tok.Kind != exp.kind || tok.Text != exp.text {
			t.Fatalf("token %d mismatch: got (%s,%q), want (%s,%q)", i, tok.Kind, tok.Text, exp.kind, exp.text)
		}
	}
}
