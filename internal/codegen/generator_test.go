package codegen

import (
	"context"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

var blanks = regexp.MustCompile(`[ \t]+`)

// normalize collapses alignment padding so tests do not depend on column widths.
func normalize(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = blanks.ReplaceAllString(strings.TrimRight(line, " \t"), " ")
	}
	return strings.Join(lines, "\n")
}

func compile(t *testing.T, src string) []model.Model {
	t.Helper()
	models, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return models
}

func TestGenerateStructs(t *testing.T) {
	models := compile(t, `
model Department {
  DepartmentID Int @id
  Name String
}
model Employee {
  EmployeeID Int @id
  Salary Float?
  Hired Date
  Left Date?
  Nickname String?
  Photo Blob?
  DepartmentID Int @references(Department, DepartmentID)
}`)

	files, err := New(Options{Package: "hr"}).Generate(context.Background(), models)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Path != "models.go" {
		t.Errorf("path = %q, want models.go", files[0].Path)
	}

	want := `// Code generated by db-catalogue. DO NOT EDIT.

package hr

import "time"

type Department struct {
	DepartmentID int64 ` + "`db:\"DepartmentID\"`" + `
	Name string ` + "`db:\"Name\"`" + `
}

func (Department) TableName() string {
	return "Department"
}

type Employee struct {
	EmployeeID int64 ` + "`db:\"EmployeeID\"`" + `
	Salary *float64 ` + "`db:\"Salary\"`" + `
	Hired time.Time ` + "`db:\"Hired\"`" + `
	Left *time.Time ` + "`db:\"Left\"`" + `
	Nickname *string ` + "`db:\"Nickname\"`" + `
	Photo []byte ` + "`db:\"Photo\"`" + `
	DepartmentID int64 ` + "`db:\"DepartmentID\"`" + `
}

func (Employee) TableName() string {
	return "Employee"
}
`
	if got := normalize(string(files[0].Content)); got != normalize(want) {
		t.Fatalf("generated source mismatch\n got:\n%s\nwant:\n%s", got, normalize(want))
	}

	if _, err := parser.ParseFile(token.NewFileSet(), "models.go", files[0].Content, 0); err != nil {
		t.Fatalf("generated source does not parse: %v", err)
	}
}

func TestGenerateOmitsUnusedImports(t *testing.T) {
	models := compile(t, "model Tag { Name String @id }")
	files, err := New(Options{}).Generate(context.Background(), models)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	src := string(files[0].Content)
	if strings.Contains(src, "import") {
		t.Errorf("unexpected import in:\n%s", src)
	}
	if !strings.Contains(src, "package models") {
		t.Errorf("default package missing in:\n%s", src)
	}
}

func TestGenerateJSONTags(t *testing.T) {
	models := compile(t, "model Tag { Name String @id }")
	files, err := New(Options{EmitJSONTags: true, FileName: "tags.go"}).Generate(context.Background(), models)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if files[0].Path != "tags.go" {
		t.Errorf("path = %q, want tags.go", files[0].Path)
	}
	if !strings.Contains(string(files[0].Content), "`db:\"Name\" json:\"Name\"`") {
		t.Errorf("json tag missing in:\n%s", files[0].Content)
	}
}

func TestGenerateRenamesCollisions(t *testing.T) {
	models := []model.Model{
		{Name: "item", Fields: []model.Field{
			{Name: "TableName", Type: model.String},
			{Name: "sku", Type: model.String},
			{Name: "Sku", Type: model.Int},
		}},
		{Name: "Item", Fields: []model.Field{{Name: "id", Type: model.Int}}},
	}
	files, err := New(Options{}).Generate(context.Background(), models)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := normalize(string(files[0].Content))
	for _, want := range []string{
		"type Item struct",
		"TableName2 string `db:\"TableName\"`",
		"Sku string `db:\"sku\"`",
		"Sku2 int64 `db:\"Sku\"`",
		"type Item2 struct",
		"Id int64 `db:\"id\"`",
		"func (Item2) TableName() string",
		"return \"item\"",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	files, err := New(Options{}).Generate(context.Background(), nil)
	if err != nil || files != nil {
		t.Fatalf("Generate(nil) = %v, %v; want nil, nil", files, err)
	}
}

func TestGenerateRejects(t *testing.T) {
	models := []model.Model{{Name: "A", Fields: []model.Field{{Name: "x", Type: model.BasicType(99)}}}}
	if _, err := New(Options{}).Generate(context.Background(), models); err == nil {
		t.Fatal("expected unknown type error")
	}
	if _, err := New(Options{Package: "my-pkg"}).Generate(context.Background(), models); err == nil {
		t.Fatal("expected invalid package error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).Generate(ctx, models); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNaming(t *testing.T) {
	tests := []struct {
		raw, ident, file string
	}{
		{"Employee", "Employee", "employee"},
		{"employee_id", "EmployeeId", "employee_id"},
		{"EmployeeID", "EmployeeID", "employee_id"},
		{"HTTPServer", "HTTPServer", "http_server"},
		{"_x", "X", "x"},
		{"日本", "X日本", "日本"},
		{"", "X", "models"},
	}
	for _, tt := range tests {
		if got := ExportedIdentifier(tt.raw); got != tt.ident {
			t.Errorf("ExportedIdentifier(%q) = %q, want %q", tt.raw, got, tt.ident)
		}
		if got := FileName(tt.raw); got != tt.file {
			t.Errorf("FileName(%q) = %q, want %q", tt.raw, got, tt.file)
		}
	}

	used := map[string]int{}
	for i, want := range []string{"Name", "Name2", "Name3"} {
		if got := UniqueName("Name", used); got != want {
			t.Errorf("UniqueName call %d = %q, want %q", i, got, want)
		}
	}
}
