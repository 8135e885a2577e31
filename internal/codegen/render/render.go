// Package render prints generated Go syntax trees as gofmt-clean source.
package render

import (
	"bytes"
	"fmt"
	goast "go/ast"
	"go/printer"
	"go/token"

	"golang.org/x/tools/imports"
)

// Spec describes a file to render. Header is emitted verbatim above the
// package clause; Raw, when set, replaces Node.
type Spec struct {
	Path   string
	Header string
	Node   *goast.File
	Raw    []byte
}

// File contains the rendered Go source for a path.
type File struct {
	Path    string
	Content []byte
}

// Format prints each spec with go/printer and resolves imports with goimports.
func Format(specs []Spec) ([]File, error) {
	rendered := make([]File, 0, len(specs))
	for _, spec := range specs {
		var buf bytes.Buffer
		if spec.Header != "" {
			buf.WriteString(spec.Header)
			buf.WriteString("\n\n")
		}
		switch {
		case len(spec.Raw) > 0:
			buf.Write(spec.Raw)
		case spec.Node != nil:
			cfg := &printer.Config{Mode: printer.TabIndent | printer.UseSpaces, Tabwidth: 8}
			if err := cfg.Fprint(&buf, token.NewFileSet(), spec.Node); err != nil {
				return nil, fmt.Errorf("render %s: %w", spec.Path, err)
			}
		default:
			return nil, fmt.Errorf("render %s: nil AST node", spec.Path)
		}
		formatted, err := imports.Process(spec.Path, buf.Bytes(), nil)
		if err != nil {
			return nil, fmt.Errorf("goimports %s: %w", spec.Path, err)
		}
		rendered = append(rendered, File{Path: spec.Path, Content: formatted})
	}
	return rendered, nil
}
