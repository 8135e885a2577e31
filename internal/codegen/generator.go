// Package codegen emits Go structs for compiled schema models.
package codegen

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/electwix/db-catalogue/internal/codegen/render"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// Header marks every generated file.
const Header = "// Code generated by db-catalogue. DO NOT EDIT."

// Options controls the generated package.
type Options struct {
	// Package defaults to "models".
	Package string
	// FileName defaults to "models.go".
	FileName     string
	EmitJSONTags bool
}

// Generator turns models into Go source files.
type Generator struct {
	opts Options
}

// File is one generated source file, relative to the output directory.
type File struct {
	Path    string
	Content []byte
}

// New returns a Generator with opts.
func New(opts Options) *Generator {
	if opts.Package == "" {
		opts.Package = "models"
	}
	if opts.FileName == "" {
		opts.FileName = "models.go"
	}
	return &Generator{opts: opts}
}

type structModel struct {
	tableName string
	typeName  string
	fields    []structField
}

type structField struct {
	columnName string
	fieldName  string
	goType     ast.Expr
}

// Generate renders one struct per model, in declaration order, each with a
// TableName method. No models produce no files.
func (g *Generator) Generate(ctx context.Context, models []model.Model) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	if !token.IsIdentifier(g.opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", g.opts.Package)
	}

	usedTypes := make(map[string]int, len(models))
	structs := make([]structModel, 0, len(models))
	for _, m := range models {
		sm, err := buildStruct(m, usedTypes)
		if err != nil {
			return nil, err
		}
		structs = append(structs, sm)
	}

	file := &ast.File{Name: ast.NewIdent(g.opts.Package)}
	for _, sm := range structs {
		file.Decls = append(file.Decls, g.structDecl(sm), tableNameFunc(sm))
	}

	rendered, err := render.Format([]render.Spec{{Path: g.opts.FileName, Header: Header, Node: file}})
	if err != nil {
		return nil, err
	}
	files := make([]File, len(rendered))
	for i, f := range rendered {
		files[i] = File{Path: f.Path, Content: f.Content}
	}
	return files, nil
}

func buildStruct(m model.Model, usedTypes map[string]int) (structModel, error) {
	sm := structModel{
		tableName: m.Name,
		typeName:  UniqueName(ExportedIdentifier(m.Name), usedTypes),
		fields:    make([]structField, 0, len(m.Fields)),
	}
	// TableName is a method on every struct.
	usedFields := map[string]int{"TableName": 1}
	for _, f := range m.Fields {
		goType, err := goTypeFor(f.Type, f.Nullable)
		if err != nil {
			return structModel{}, fmt.Errorf("model %s field %s: %w", m.Name, f.Name, err)
		}
		sm.fields = append(sm.fields, structField{
			columnName: f.Name,
			fieldName:  UniqueName(ExportedIdentifier(f.Name), usedFields),
			goType:     goType,
		})
	}
	return sm, nil
}

// goTypeFor maps a BasicType onto its Go type. Nullable scalars become
// pointers; a nil []byte already represents a missing Blob.
func goTypeFor(t model.BasicType, nullable bool) (ast.Expr, error) {
	var expr ast.Expr
	switch t {
	case model.Int:
		expr = ast.NewIdent("int64")
	case model.Float:
		expr = ast.NewIdent("float64")
	case model.Date:
		expr = &ast.SelectorExpr{X: ast.NewIdent("time"), Sel: ast.NewIdent("Time")}
	case model.String:
		expr = ast.NewIdent("string")
	case model.Blob:
		return &ast.ArrayType{Elt: ast.NewIdent("byte")}, nil
	default:
		return nil, &model.UnknownTypeError{Name: t.String()}
	}
	if nullable {
		expr = &ast.StarExpr{X: expr}
	}
	return expr, nil
}

func (g *Generator) structDecl(sm structModel) ast.Decl {
	fields := make([]*ast.Field, 0, len(sm.fields))
	for _, f := range sm.fields {
		tag := fmt.Sprintf("db:%q", f.columnName)
		if g.opts.EmitJSONTags {
			tag += fmt.Sprintf(" json:%q", f.columnName)
		}
		fields = append(fields, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(f.fieldName)},
			Type:  f.goType,
			Tag:   &ast.BasicLit{Kind: token.STRING, Value: "`" + tag + "`"},
		})
	}
	spec := &ast.TypeSpec{
		Name: ast.NewIdent(sm.typeName),
		Type: &ast.StructType{Fields: &ast.FieldList{List: fields}},
	}
	return &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{spec}}
}

func tableNameFunc(sm structModel) ast.Decl {
	return &ast.FuncDecl{
		Recv: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent(sm.typeName)}}},
		Name: ast.NewIdent("TableName"),
		Type: &ast.FuncType{
			Params:  &ast.FieldList{},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("string")}}},
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{
			&ast.ReturnStmt{Results: []ast.Expr{
				&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(sm.tableName)},
			}},
		}},
	}
}
