// Package catalogue stores the table records derived from accepted schemas.
package catalogue

import (
	"errors"
	"fmt"
	"slices"

	"github.com/electwix/db-catalogue/internal/schema/model"
)

var (
	// ErrTableExists is matched by errors reporting a table name collision.
	ErrTableExists = errors.New("table already exists")
	// ErrNotFound reports a lookup for a table the catalogue does not hold.
	ErrNotFound = errors.New("table not found")
)

// TableExistsError names the table that collided.
type TableExistsError struct {
	Name string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %s already exists", e.Name)
}

// Is reports whether target is ErrTableExists.
func (e *TableExistsError) Is(target error) bool {
	return target == ErrTableExists
}

// Column is one field of a table.
type Column struct {
	Name     string          `json:"name" yaml:"name" toml:"name"`
	Type     model.BasicType `json:"type" yaml:"type" toml:"type"`
	Nullable bool            `json:"nullable" yaml:"nullable" toml:"nullable"`
}

// Table is the catalogue record of one model. PrimaryKey indexes Columns and
// is nil when the model declared no primary field.
type Table struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Columns    []Column `json:"columns" yaml:"columns" toml:"columns"`
	PrimaryKey *int     `json:"primary_key,omitempty" yaml:"primary_key,omitempty" toml:"primary_key,omitempty"`
}

// PrimaryColumn returns the primary key column.
func (t Table) PrimaryColumn() (Column, bool) {
	if t.PrimaryKey == nil || *t.PrimaryKey < 0 || *t.PrimaryKey >= len(t.Columns) {
		return Column{}, false
	}
	return t.Columns[*t.PrimaryKey], true
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Name: t.Name, Columns: slices.Clone(t.Columns)}
	if t.PrimaryKey != nil {
		pk := *t.PrimaryKey
		out.PrimaryKey = &pk
	}
	return out
}

// FromModel maps a model onto its table record. The first primary field
// becomes the primary key.
func FromModel(m model.Model) Table {
	t := Table{
		Name:    m.Name,
		Columns: make([]Column, 0, len(m.Fields)),
	}
	for _, f := range m.Fields {
		t.Columns = append(t.Columns, Column{Name: f.Name, Type: f.Type, Nullable: f.Nullable})
	}
	if idx := m.PrimaryKey(); idx >= 0 {
		t.PrimaryKey = &idx
	}
	return t
}

// FromModels maps models in order.
func FromModels(models []model.Model) []Table {
	tables := make([]Table, 0, len(models))
	for _, m := range models {
		tables = append(tables, FromModel(m))
	}
	return tables
}

func cloneTables(tables []Table) []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}
