// Package pipeline compiles schema files and generates code from them.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/electwix/db-catalogue/internal/codegen"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/diagnostics"
	"github.com/electwix/db-catalogue/internal/fileset"
	"github.com/electwix/db-catalogue/internal/logging"
	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	// Source defaults to an OS resolver rooted at the working directory.
	Source fileset.Source
	Logger logging.Logger
	// Writer defaults to fileset.NewOSWriter.
	Writer   fileset.Writer
	Compiler *compiler.Compiler
	Hooks    Hooks
}

// Pipeline compiles schema files and optionally generates code.
type Pipeline struct {
	Env Environment
}

// RunOptions configures a pipeline execution.
type RunOptions struct {
	// Patterns are file paths or globs naming schema sources.
	Patterns []string
	// Out is the code generation directory. Empty skips generation.
	Out string
	// Language defaults to Go.
	Language     codegen.Language
	Package      string
	FileName     string
	EmitJSONTags bool
	// DryRun generates files without writing them.
	DryRun bool
}

// Unit is one compiled schema file.
type Unit struct {
	Path   string
	Source []byte
	Models []model.Model
}

// Summary captures what a run compiled, generated and wrote.
type Summary struct {
	Units []Unit
	// Models holds the models of every clean unit in file order.
	Models      []model.Model
	Files       []codegen.File
	Written     []string
	Diagnostics []diagnostics.Diagnostic
	// Sources holds the text of every file read, keyed by path.
	Sources diagnostics.Sources
}

// DiagnosticsError indicates that errors were reported via diagnostics.
type DiagnosticsError struct {
	Diagnostic diagnostics.Diagnostic
	Count      int
}

func (e *DiagnosticsError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("%s (and %d more)", e.Diagnostic, e.Count-1)
	}
	return e.Diagnostic.String()
}

// WriteError wraps failures encountered while writing generated files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Run compiles every schema named by opts.Patterns. Files are compiled
// independently; a model name declared in two files is reported against the
// later one. When every file is clean and opts.Out is set, Run generates
// models in opts.Language and writes the files whose content changed.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (summary Summary, err error) {
	logger := p.Env.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	hooks := p.Env.Hooks
	summary.Sources = make(diagnostics.Sources)

	defer func() {
		if hookErr := callHook(ctx, hooks.AfterRun, summary); hookErr != nil && err == nil {
			err = fmt.Errorf("after run hook: %w", hookErr)
		}
	}()

	source := p.Env.Source
	if source == nil {
		resolver, resolverErr := fileset.NewOSResolver(".")
		if resolverErr != nil {
			return summary, fmt.Errorf("resolve filesystem: %w", resolverErr)
		}
		source = resolver
	}
	paths, err := source.Resolve(opts.Patterns)
	if err != nil {
		return summary, fmt.Errorf("resolve schemas: %w", err)
	}
	if err := callHook(ctx, hooks.BeforeCompile, paths); err != nil {
		return summary, fmt.Errorf("before compile hook: %w", err)
	}

	comp := p.Env.Compiler
	if comp == nil {
		comp = compiler.New(compiler.Options{Logger: logger})
	}

	diags := diagnostics.NewCollection()
	declared := make(map[string]diagnostics.Location)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		contents, readErr := source.ReadFile(path)
		if readErr != nil {
			diags.Add(diagnostics.FromCompileError(path, readErr)...)
			continue
		}
		summary.Sources[path] = contents

		models, compileErr := comp.Compile(string(contents))
		if compileErr != nil {
			diags.Add(diagnostics.FromCompileError(path, compileErr)...)
			continue
		}
		for _, m := range models {
			loc := diagnostics.Location{Path: path, Line: m.Pos.Line, Column: m.Pos.Column}
			if prev, dup := declared[m.Name]; dup {
				diags.Add(diagnostics.Diagnostic{
					Severity: diagnostics.SeverityError,
					Stage:    diagnostic.StageSemantic.String(),
					Code:     diagnostic.ReasonDuplicateModel.String(),
					Message: fmt.Sprintf("model %s is declared more than once (previous declaration at %s:%d:%d)",
						m.Name, prev.Path, prev.Line, prev.Column),
					Location: loc,
				})
				continue
			}
			declared[m.Name] = loc
		}
		summary.Units = append(summary.Units, Unit{Path: path, Source: contents, Models: models})
		logger.Debug("schema file compiled", "path", path, "models", len(models))
	}
	summary.Diagnostics = diags.All()
	if first, ok := diags.FirstError(); ok {
		logger.Info("schema files rejected", "files", len(paths), "diagnostics", diags.Len())
		return summary, &DiagnosticsError{Diagnostic: first, Count: diags.Len()}
	}

	for _, u := range summary.Units {
		summary.Models = append(summary.Models, u.Models...)
	}
	if err := callHook(ctx, hooks.AfterCompile, summary.Models); err != nil {
		return summary, fmt.Errorf("after compile hook: %w", err)
	}
	if opts.Out == "" {
		return summary, nil
	}

	generator, err := codegen.NewGeneratorFactory(codegen.Options{
		Package:      opts.Package,
		FileName:     opts.FileName,
		EmitJSONTags: opts.EmitJSONTags,
	}).Create(opts.Language)
	if err != nil {
		return summary, err
	}
	generated, err := generator.Generate(ctx, summary.Models)
	if err != nil {
		return summary, fmt.Errorf("code generation: %w", err)
	}
	for _, f := range generated {
		summary.Files = append(summary.Files, codegen.File{
			Path:    filepath.Join(opts.Out, f.Path),
			Content: f.Content,
		})
	}
	if err := callHook(ctx, hooks.AfterGenerate, summary.Files); err != nil {
		return summary, fmt.Errorf("after generate hook: %w", err)
	}
	if opts.DryRun {
		return summary, nil
	}

	if err := callHook(ctx, hooks.BeforeWrite, summary.Files); err != nil {
		return summary, fmt.Errorf("before write hook: %w", err)
	}
	writer := p.Env.Writer
	if writer == nil {
		writer = fileset.NewOSWriter()
	}
	for _, file := range summary.Files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		same, cmpErr := fileMatches(file.Path, file.Content)
		if cmpErr != nil {
			return summary, &WriteError{Path: file.Path, Err: cmpErr}
		}
		if same {
			continue
		}
		if err := writer.WriteFile(file.Path, file.Content); err != nil {
			return summary, &WriteError{Path: file.Path, Err: err}
		}
		summary.Written = append(summary.Written, file.Path)
	}
	logger.Info("code generated", "language", generatorLanguage(opts.Language), "models", len(summary.Models), "files", len(summary.Files), "written", len(summary.Written))
	return summary, nil
}

func fileMatches(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(existing, content), nil
}

func generatorLanguage(lang codegen.Language) codegen.Language {
	if lang == "" {
		return codegen.LanguageGo
	}
	return lang
}
