// Package typescript generates TypeScript interfaces using text templates.
package typescript

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strconv"
	"text/template"

	"github.com/electwix/db-catalogue/internal/schema/model"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// File represents a generated file.
type File struct {
	Path    string
	Content []byte
}

// Generator produces one interface per model plus an index module.
type Generator struct {
	tmpl *template.Template
}

// NewGenerator parses the embedded templates.
func NewGenerator() (*Generator, error) {
	tmpl, err := template.New("typescript").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

type tsField struct {
	Key  string
	Type string
}

type tsModel struct {
	Name   string
	Table  string
	Fields []tsField
}

// GenerateModels renders models/<name>.ts for each model and models/index.ts.
// Property keys keep the column names so values decode from the catalogue
// JSON unchanged.
func (g *Generator) GenerateModels(models []model.Model) ([]File, error) {
	if len(models) == 0 {
		return nil, nil
	}
	files := make([]File, 0, len(models)+1)
	modules := make([]string, 0, len(models))
	usedModules := make(map[string]int, len(models))
	usedNames := make(map[string]int, len(models))
	for _, m := range models {
		data := tsModel{
			Name:  uniqueName(pascalCase(m.Name), usedNames),
			Table: m.Name,
		}
		for _, f := range m.Fields {
			typ, err := tsType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("model %s field %s: %w", m.Name, f.Name, err)
			}
			if f.Nullable {
				typ += " | null"
			}
			data.Fields = append(data.Fields, tsField{Key: propertyKey(f.Name), Type: typ})
		}

		var buf bytes.Buffer
		if err := g.tmpl.ExecuteTemplate(&buf, "model.tmpl", data); err != nil {
			return nil, fmt.Errorf("generate model %s: %w", m.Name, err)
		}
		module := uniqueName(camelCase(m.Name), usedModules)
		modules = append(modules, module)
		files = append(files, File{Path: "models/" + module + ".ts", Content: buf.Bytes()})
	}

	var index bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&index, "index.tmpl", modules); err != nil {
		return nil, fmt.Errorf("generate index: %w", err)
	}
	files = append(files, File{Path: "models/index.ts", Content: index.Bytes()})
	return files, nil
}

func tsType(t model.BasicType) (string, error) {
	switch t {
	case model.Int, model.Float:
		return "number", nil
	case model.Date:
		return "string", nil
	case model.String:
		return "string", nil
	case model.Blob:
		return "Uint8Array", nil
	default:
		return "", &model.UnknownTypeError{Name: t.String()}
	}
}

var plainKey = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func propertyKey(name string) string {
	if plainKey.MatchString(name) {
		return name
	}
	return strconv.Quote(name)
}
