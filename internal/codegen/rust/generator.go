// Package rust generates serde-annotated Rust structs using text templates.
package rust

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/electwix/db-catalogue/internal/schema/model"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// File represents a generated file.
type File struct {
	Path    string
	Content []byte
}

// Generator produces Rust code from compiled models.
type Generator struct {
	tmpl *template.Template
}

// NewGenerator creates a new Rust code generator.
func NewGenerator() (*Generator, error) {
	tmpl, err := template.New("rust").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

type structData struct {
	Name   string
	Table  string
	Fields []fieldData
}

type fieldData struct {
	Name   string
	Column string
	Type   string
	Rename bool
}

type moduleData struct {
	Module string
	Type   string
}

// GenerateModels writes models/<name>.rs per model and a models/mod.rs that
// re-exports every struct.
func (g *Generator) GenerateModels(models []model.Model) ([]File, error) {
	if len(models) == 0 {
		return nil, nil
	}
	var (
		files       = make([]File, 0, len(models)+1)
		modules     = make([]moduleData, 0, len(models))
		usedModules = make(map[string]int, len(models))
		usedTypes   = make(map[string]int, len(models))
	)
	for _, m := range models {
		data := structData{
			Name:  unique(toPascalCase(m.Name), usedTypes),
			Table: m.Name,
		}
		usedFields := make(map[string]int, len(m.Fields))
		for _, f := range m.Fields {
			typ, err := rustType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("model %s field %s: %w", m.Name, f.Name, err)
			}
			if f.Nullable {
				typ = "Option<" + typ + ">"
			}
			snake := unique(toSnakeCase(f.Name), usedFields)
			data.Fields = append(data.Fields, fieldData{
				Name:   escapeKeyword(snake),
				Column: f.Name,
				Type:   typ,
				Rename: snake != f.Name,
			})
		}

		var buf bytes.Buffer
		if err := g.tmpl.ExecuteTemplate(&buf, "model.tmpl", data); err != nil {
			return nil, fmt.Errorf("generate model %s: %w", m.Name, err)
		}
		module := unique(toSnakeCase(m.Name), usedModules)
		modules = append(modules, moduleData{Module: escapeKeyword(module), Type: data.Name})
		files = append(files, File{Path: "models/" + module + ".rs", Content: buf.Bytes()})
	}

	var mod bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&mod, "mod.tmpl", modules); err != nil {
		return nil, fmt.Errorf("generate mod.rs: %w", err)
	}
	files = append(files, File{Path: "models/mod.rs", Content: mod.Bytes()})
	return files, nil
}

func rustType(t model.BasicType) (string, error) {
	switch t {
	case model.Int:
		return "i64", nil
	case model.Float:
		return "f64", nil
	case model.Date:
		return "chrono::NaiveDate", nil
	case model.String:
		return "String", nil
	case model.Blob:
		return "Vec<u8>", nil
	default:
		return "", &model.UnknownTypeError{Name: t.String()}
	}
}

var keywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "dyn": true, "else": true, "enum": true, "extern": true,
	"false": true, "fn": true, "for": true, "if": true, "impl": true,
	"in": true, "let": true, "loop": true, "match": true, "mod": true,
	"move": true, "mut": true, "pub": true, "ref": true, "return": true,
	"static": true, "struct": true, "trait": true, "true": true, "type": true,
	"unsafe": true, "use": true, "where": true, "while": true, "abstract": true,
	"become": true, "box": true, "do": true, "final": true, "macro": true,
	"override": true, "priv": true, "try": true, "typeof": true, "unsized": true,
	"virtual": true, "yield": true,
}

// escapeKeyword turns reserved words into raw identifiers.
func escapeKeyword(name string) string {
	if keywords[name] {
		return "r#" + name
	}
	return name
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) &&
				!strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "field"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "_" + name
	}
	return name
}

func toPascalCase(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(toSnakeCase(s), "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	name := b.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "Model" + name
	}
	return name
}

func unique(base string, used map[string]int) string {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n+1)
}
