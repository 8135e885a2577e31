package codegen

import (
	"context"
	"fmt"

	"github.com/electwix/db-catalogue/internal/codegen/rust"
	"github.com/electwix/db-catalogue/internal/codegen/typescript"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// Language selects the target of code generation.
type Language string

// Supported languages.
const (
	LanguageGo         Language = "go"
	LanguageTypeScript Language = "typescript"
	LanguageRust       Language = "rust"
)

// Languages lists every supported language.
var Languages = []Language{LanguageGo, LanguageTypeScript, LanguageRust}

// ParseLanguage validates a language name. Empty selects Go.
func ParseLanguage(s string) (Language, error) {
	switch lang := Language(s); lang {
	case "":
		return LanguageGo, nil
	case LanguageGo, LanguageTypeScript, LanguageRust:
		return lang, nil
	case "ts":
		return LanguageTypeScript, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// ModelGenerator is implemented by every language backend.
type ModelGenerator interface {
	Generate(ctx context.Context, models []model.Model) ([]File, error)
}

// GeneratorFactory creates language-specific generators.
type GeneratorFactory struct {
	opts Options
}

// NewGeneratorFactory creates a new generator factory. opts only applies to
// the Go backend.
func NewGeneratorFactory(opts Options) *GeneratorFactory {
	return &GeneratorFactory{opts: opts}
}

// Create returns a generator for lang, which may be any name ParseLanguage
// accepts.
func (f *GeneratorFactory) Create(lang Language) (ModelGenerator, error) {
	lang, err := ParseLanguage(string(lang))
	if err != nil {
		return nil, err
	}
	switch lang {
	case LanguageGo:
		return New(f.opts), nil
	case LanguageRust:
		gen, err := rust.NewGenerator()
		if err != nil {
			return nil, fmt.Errorf("create rust generator: %w", err)
		}
		return templateGenerator{lang: lang, generate: func(models []model.Model) ([]File, error) {
			files, err := gen.GenerateModels(models)
			return convertFiles(files, func(f rust.File) File { return File(f) }), err
		}}, nil
	case LanguageTypeScript:
		gen, err := typescript.NewGenerator()
		if err != nil {
			return nil, fmt.Errorf("create typescript generator: %w", err)
		}
		return templateGenerator{lang: lang, generate: func(models []model.Model) ([]File, error) {
			files, err := gen.GenerateModels(models)
			return convertFiles(files, func(f typescript.File) File { return File(f) }), err
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
}

// templateGenerator adapts the template-driven backends to ModelGenerator.
type templateGenerator struct {
	lang     Language
	generate func([]model.Model) ([]File, error)
}

func (g templateGenerator) Generate(ctx context.Context, models []model.Model) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := g.generate(models)
	if err != nil {
		return nil, fmt.Errorf("generate %s models: %w", g.lang, err)
	}
	return files, nil
}

func convertFiles[T any](in []T, conv func(T) File) []File {
	if in == nil {
		return nil
	}
	out := make([]File, len(in))
	for i, f := range in {
		out[i] = conv(f)
	}
	return out
}
