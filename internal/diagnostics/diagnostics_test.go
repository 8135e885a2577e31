package diagnostics

import (
	"errors"
	"strings"
	"testing"

	"github.com/electwix/db-catalogue/internal/compiler"
)

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "staged",
			d: Diagnostic{
				Severity: SeverityError,
				Stage:    "Syntactic",
				Message:  "expected }",
				Location: Location{Path: "hr.ddl", Line: 3, Column: 1},
			},
			want: "hr.ddl:3:1: [Syntactic] expected }",
		},
		{
			name: "path only",
			d:    Diagnostic{Severity: SeverityError, Message: "permission denied", Location: Location{Path: "hr.ddl"}},
			want: "hr.ddl: error: permission denied",
		},
		{
			name: "no location",
			d:    Diagnostic{Severity: SeverityWarning, Message: "no models"},
			want: "warning: no models",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromCompileError(t *testing.T) {
	_, err := compiler.Compile("model A { id Int @id }\nmodel B { x Int @references(C, id) id Int @id }")
	diags := FromCompileError("s.ddl", err)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	d := diags[0]
	if d.Stage != "Semantic" || d.Code != "unknown-target-model" {
		t.Errorf("stage/code = %s/%s", d.Stage, d.Code)
	}
	if d.Location != (Location{Path: "s.ddl", Line: 2, Column: 18}) {
		t.Errorf("location = %+v", d.Location)
	}

	diags = FromCompileError("s.ddl", errors.New("boom"))
	if len(diags) != 1 || diags[0].Stage != "" || diags[0].String() != "s.ddl: error: boom" {
		t.Errorf("plain error = %v", diags)
	}

	if FromCompileError("s.ddl", nil) != nil {
		t.Error("nil error should yield no diagnostics")
	}
}

func TestCollection(t *testing.T) {
	c := NewCollection()
	if c.HasErrors() {
		t.Fatal("empty collection has errors")
	}
	c.Add(Diagnostic{Severity: SeverityWarning, Message: "w"})
	c.Add(Diagnostic{Severity: SeverityError, Message: "e1"}, Diagnostic{Severity: SeverityError, Message: "e2"})

	first, ok := c.FirstError()
	if !ok || first.Message != "e1" {
		t.Errorf("FirstError = %v, %v", first, ok)
	}
	if s := c.Summary(); s.Errors != 2 || s.Warnings != 1 {
		t.Errorf("Summary = %+v", s)
	}
	all := c.All()
	all[0].Message = "changed"
	if c.All()[0].Message != "w" {
		t.Error("All must return a copy")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestExtractContext(t *testing.T) {
	src := []byte("model A {\n  id Int @id\n  x Bool\n}\n")
	ctx := ExtractContext(src, 3, 5, 1)
	if ctx.StartLine != 2 || len(ctx.Lines) != 3 {
		t.Fatalf("context = %+v", ctx)
	}
	want := "  2 |   id Int @id\n" +
		"> 3 |   x Bool\n" +
		"          ^\n" +
		"  4 | }\n"
	if got := ctx.Format(); got != want {
		t.Errorf("Format():\n%s\nwant:\n%s", got, want)
	}

	if !ExtractContext(src, 99, 1, 1).IsEmpty() {
		t.Error("out of range line should be empty")
	}
	if ExtractContext(src, 0, 1, 1).Format() != "" {
		t.Error("empty context should format to nothing")
	}
}

func TestFormatter(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Stage:    "Lexical",
		Code:     "unexpected-character",
		Message:  `unexpected character '#'`,
		Location: Location{Path: "a.ddl", Line: 1, Column: 19},
	}
	sources := Sources{"a.ddl": []byte("model Foo { id Int# }")}

	got := NewFormatter().Format(d, sources)
	want := "a.ddl:1:19: [Lexical] unexpected character '#' (unexpected-character)\n" +
		"> 1 | model Foo { id Int# }\n" +
		"      " + strings.Repeat(" ", 18) + "^\n"
	if got != want {
		t.Errorf("Format():\n%q\nwant:\n%q", got, want)
	}

	simple := NewSimpleFormatter().Format(d, sources)
	if simple != d.String()+"\n" {
		t.Errorf("simple = %q", simple)
	}

	colored := (&Formatter{Colorize: true}).Format(d, nil)
	if !strings.Contains(colored, colorRed+"[Lexical]"+colorReset) {
		t.Errorf("colored = %q", colored)
	}
}

func TestWriteAllAndSummary(t *testing.T) {
	c := NewCollection()
	c.Add(
		Diagnostic{Severity: SeverityError, Stage: "Syntactic", Message: "m1", Location: Location{Path: "a", Line: 1, Column: 1}},
		Diagnostic{Severity: SeverityWarning, Message: "m2"},
	)
	var b strings.Builder
	f := NewSimpleFormatter()
	if err := f.WriteAll(&b, c, nil); err != nil {
		t.Fatal(err)
	}
	f.PrintSummary(&b, c)
	want := "a:1:1: [Syntactic] m1\nwarning: m2\n1 error(s), 1 warning(s)\n"
	if b.String() != want {
		t.Errorf("output = %q, want %q", b.String(), want)
	}

	var empty strings.Builder
	f.PrintSummary(&empty, NewCollection())
	if empty.Len() != 0 {
		t.Errorf("empty summary printed %q", empty.String())
	}
}
