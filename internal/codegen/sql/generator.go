// Package sql renders CREATE TABLE statements for compiled models.
package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/electwix/db-catalogue/internal/codegen"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// Dialect selects the SQL flavour.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DefaultFileName is the path of the generated schema file.
const DefaultFileName = "schema.gen.sql"

// Options configures DDL generation.
type Options struct {
	Dialect Dialect
	// FileName defaults to DefaultFileName.
	FileName string
	// SQLiteStrict emits STRICT tables for sqlite.
	SQLiteStrict bool
}

// Generator renders DDL.
type Generator struct {
	opts     Options
	types    map[model.BasicType]string
	keyTypes map[model.BasicType]string
	quote    func(string) string
}

var columnTypes = map[Dialect]map[model.BasicType]string{
	DialectSQLite: {
		model.Int: "INTEGER", model.Float: "REAL", model.Date: "TEXT",
		model.String: "TEXT", model.Blob: "BLOB",
	},
	DialectPostgres: {
		model.Int: "BIGINT", model.Float: "DOUBLE PRECISION", model.Date: "DATE",
		model.String: "TEXT", model.Blob: "BYTEA",
	},
	DialectMySQL: {
		model.Int: "BIGINT", model.Float: "DOUBLE", model.Date: "DATE",
		model.String: "TEXT", model.Blob: "LONGBLOB",
	},
}

// keyColumnTypes overrides columnTypes for primary and foreign key columns.
// MySQL cannot index TEXT or BLOB columns without a prefix length.
var keyColumnTypes = map[Dialect]map[model.BasicType]string{
	DialectMySQL: {
		model.String: "VARCHAR(255)", model.Blob: "VARBINARY(255)",
	},
}

// New returns a Generator for opts.Dialect.
func New(opts Options) (*Generator, error) {
	types, ok := columnTypes[opts.Dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL dialect %q", opts.Dialect)
	}
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	quote := quoteDouble
	if opts.Dialect == DialectMySQL {
		quote = quoteBacktick
	}
	return &Generator{opts: opts, types: types, keyTypes: keyColumnTypes[opts.Dialect], quote: quote}, nil
}

// ColumnType returns the dialect's column type for t.
func (g *Generator) ColumnType(t model.BasicType) (string, error) {
	name, ok := g.types[t]
	if !ok {
		return "", &model.UnknownTypeError{Name: t.String()}
	}
	return name, nil
}

// Generate renders one CREATE TABLE per model in declaration order. Every
// @id field joins the primary key. SQLite declares foreign keys inline;
// the other dialects add them with ALTER TABLE once every table exists, so
// mutual references need no ordering.
func (g *Generator) Generate(ctx context.Context, models []model.Model) ([]codegen.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Code generated by db-catalogue. DO NOT EDIT.\n-- Dialect: %s\n", g.opts.Dialect)
	inline := g.opts.Dialect == DialectSQLite
	for _, m := range models {
		if err := g.createTable(&b, m, inline); err != nil {
			return nil, err
		}
	}
	if !inline {
		for _, m := range models {
			for _, f := range m.Fields {
				if f.References == nil {
					continue
				}
				fmt.Fprintf(&b, "\nALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);\n",
					g.quote(m.Name), g.quote(constraintName("fk", m.Name, f.Name)),
					g.quote(f.Name), g.quote(f.References.Model), g.quote(f.References.Field))
			}
		}
	}
	if g.opts.Dialect != DialectMySQL {
		for _, m := range models {
			for _, f := range m.Fields {
				if f.References == nil {
					continue
				}
				fmt.Fprintf(&b, "\nCREATE INDEX IF NOT EXISTS %s ON %s (%s);\n",
					g.quote(constraintName("idx", m.Name, f.Name)), g.quote(m.Name), g.quote(f.Name))
			}
		}
	}
	return []codegen.File{{Path: g.opts.FileName, Content: []byte(b.String())}}, nil
}

// fieldType is ColumnType, with the dialect's key override for fields that
// are part of a primary key or reference another table.
func (g *Generator) fieldType(f model.Field) (string, error) {
	if f.Primary || f.References != nil {
		if name, ok := g.keyTypes[f.Type]; ok {
			return name, nil
		}
	}
	return g.ColumnType(f.Type)
}

func (g *Generator) createTable(b *strings.Builder, m model.Model, inlineForeignKeys bool) error {
	lines := make([]string, 0, len(m.Fields)+2)
	var primary []string
	for _, f := range m.Fields {
		typ, err := g.fieldType(f)
		if err != nil {
			return fmt.Errorf("model %s field %s: %w", m.Name, f.Name, err)
		}
		line := g.quote(f.Name) + " " + typ
		if !f.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
		if f.Primary {
			primary = append(primary, g.quote(f.Name))
		}
	}
	if len(primary) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(primary, ", ")+")")
	}
	if inlineForeignKeys {
		for _, f := range m.Fields {
			if f.References != nil {
				lines = append(lines, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
					g.quote(f.Name), g.quote(f.References.Model), g.quote(f.References.Field)))
			}
		}
	}

	fmt.Fprintf(b, "\nCREATE TABLE IF NOT EXISTS %s (\n    %s\n)", g.quote(m.Name), strings.Join(lines, ",\n    "))
	switch {
	case g.opts.Dialect == DialectMySQL:
		b.WriteString(" ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	case g.opts.Dialect == DialectSQLite && g.opts.SQLiteStrict:
		b.WriteString(" STRICT")
	}
	b.WriteString(";\n")
	return nil
}

func constraintName(prefix, table, column string) string {
	return prefix + "_" + codegen.FileName(table) + "_" + codegen.FileName(column)
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
