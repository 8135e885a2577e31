// Package semantic validates parsed models against each other.
package semantic

import (
	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
	"github.com/electwix/db-catalogue/internal/schema/model"
	"github.com/electwix/db-catalogue/internal/schema/tokenizer"
)

// Checker runs the semantic passes. The zero value reproduces the default
// rules; Strict adds the primary-key shape checks.
type Checker struct {
	// Strict rejects models with more than one primary field and primary
	// fields marked nullable.
	Strict bool
}

// Check validates models with the default rules.
func Check(models []model.Model) []diagnostic.Diagnostic {
	return Checker{}.Check(models)
}

// Check validates models and returns every finding. An empty result means the
// models are accepted. Check never modifies models.
func (c Checker) Check(models []model.Model) []diagnostic.Diagnostic {
	r := &run{
		models:  models,
		byName:  make(map[string]int, len(models)),
		results: make([]diagnostic.Diagnostic, 0),
	}
	for i := len(models) - 1; i >= 0; i-- {
		r.byName[models[i].Name] = i
	}

	seenModels := make(map[string]struct{}, len(models))
	for _, m := range models {
		r.checkForeignKeys(m)
		r.checkPrimaryKeyPresence(m)
		r.checkDuplicates(m, seenModels)
		if c.Strict {
			r.checkPrimaryKeyShape(m)
		}
	}
	return r.results
}

type run struct {
	models []model.Model
	// byName maps a model name onto its first declaration.
	byName  map[string]int
	results []diagnostic.Diagnostic
}

func (r *run) lookup(name string) (model.Model, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return model.Model{}, false
	}
	return r.models[idx], true
}

func (r *run) checkForeignKeys(m model.Model) {
	for _, f := range m.Fields {
		fk := f.References
		if fk == nil {
			continue
		}
		target, ok := r.lookup(fk.Model)
		if !ok {
			r.add(fk.Pos, diagnostic.ReasonUnknownTargetModel,
				"model %s not found, referenced by %s.%s", fk.Model, m.Name, f.Name)
			continue
		}
		targetField, ok := target.Field(fk.Field)
		if !ok {
			r.add(fk.Pos, diagnostic.ReasonUnknownTargetField,
				"field %s not found in model %s, referenced by %s.%s", fk.Field, fk.Model, m.Name, f.Name)
			continue
		}
		if targetField.Type != f.Type {
			r.add(fk.Pos, diagnostic.ReasonTypeMismatch,
				"%s.%s has type %s but references %s.%s of type %s",
				m.Name, f.Name, f.Type, fk.Model, fk.Field, targetField.Type)
		}
		if !targetField.Primary {
			r.add(fk.Pos, diagnostic.ReasonTargetNotPrimary,
				"%s.%s references %s.%s, which is not a primary key", m.Name, f.Name, fk.Model, fk.Field)
		}
	}
}

func (r *run) checkPrimaryKeyPresence(m model.Model) {
	if m.PrimaryKey() < 0 {
		r.add(m.Pos, diagnostic.ReasonMissingPrimaryKey, "model %s must have a primary key", m.Name)
	}
}

// checkDuplicates reports m when an earlier model took its name, then every
// repeated field name within m.
func (r *run) checkDuplicates(m model.Model, seenModels map[string]struct{}) {
	if _, dup := seenModels[m.Name]; dup {
		r.add(m.Pos, diagnostic.ReasonDuplicateModel, "model %s is declared more than once", m.Name)
	}
	seenModels[m.Name] = struct{}{}

	seenFields := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if _, dup := seenFields[f.Name]; dup {
			r.add(f.Pos, diagnostic.ReasonDuplicateField, "field %s is declared more than once in model %s", f.Name, m.Name)
		}
		seenFields[f.Name] = struct{}{}
	}
}

func (r *run) checkPrimaryKeyShape(m model.Model) {
	primaries := 0
	for _, f := range m.Fields {
		if !f.Primary {
			continue
		}
		primaries++
		if primaries == 2 {
			r.add(f.Pos, diagnostic.ReasonMultiplePrimaryKeys, "model %s has more than one primary key", m.Name)
		}
		if f.Nullable {
			r.add(f.Pos, diagnostic.ReasonNullablePrimaryKey, "primary key %s.%s cannot be nullable", m.Name, f.Name)
		}
	}
}

func (r *run) add(pos tokenizer.LineColumn, reason diagnostic.Reason, format string, args ...any) {
	r.results = append(r.results, diagnostic.New(diagnostic.StageSemantic, reason, pos.Line, pos.Column, format, args...))
}
