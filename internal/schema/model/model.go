// Package model defines the schema definitions produced by the parser.
package model

import (
	"strconv"

	"github.com/electwix/db-catalogue/internal/schema/tokenizer"
)

// BasicType is the scalar kind of a field.
type BasicType int

const (
	// Int is a signed integer column.
	Int BasicType = iota
	// Float is a floating point column.
	Float
	// Date is a calendar date column.
	Date
	// String is a text column.
	String
	// Blob is an opaque binary column.
	Blob
)

var basicTypeNames = [...]string{
	Int:    "Int",
	Float:  "Float",
	Date:   "Date",
	String: "String",
	Blob:   "Blob",
}

var basicTypesByName = map[string]BasicType{
	"Int":    Int,
	"Float":  Float,
	"Date":   Date,
	"String": String,
	"Blob":   Blob,
}

// BasicTypes lists every BasicType in declaration order.
func BasicTypes() []BasicType {
	return []BasicType{Int, Float, Date, String, Blob}
}

// LookupBasicType maps a type keyword onto its BasicType.
func LookupBasicType(name string) (BasicType, bool) {
	t, ok := basicTypesByName[name]
	return t, ok
}

// Valid reports whether t is one of the declared basic types.
func (t BasicType) Valid() bool {
	return t >= Int && t <= Blob
}

func (t BasicType) String() string {
	if t.Valid() {
		return basicTypeNames[t]
	}
	return "BasicType(" + strconv.Itoa(int(t)) + ")"
}

// MarshalText encodes the type by name.
func (t BasicType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &UnknownTypeError{Name: t.String()}
	}
	return []byte(basicTypeNames[t]), nil
}

// UnmarshalText decodes a type name.
func (t *BasicType) UnmarshalText(text []byte) error {
	v, ok := LookupBasicType(string(text))
	if !ok {
		return &UnknownTypeError{Name: string(text)}
	}
	*t = v
	return nil
}

// UnknownTypeError reports a type name outside the BasicType set.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return "unknown basic type " + strconv.Quote(e.Name)
}

// ForeignKey names the model field a field refers to.
type ForeignKey struct {
	Model string
	Field string
	Pos   tokenizer.LineColumn
}

// Field is a typed attribute of a model.
type Field struct {
	Name     string
	Type     BasicType
	Nullable bool
	Primary  bool
	// References is nil when the field carries no @references annotation.
	References *ForeignKey
	Pos        tokenizer.LineColumn
}

// Model is a named table definition. Fields keep their declaration order.
type Model struct {
	Name   string
	Fields []Field
	Pos    tokenizer.LineColumn
}

// Field returns the field with the given name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKey returns the index of the first primary field, or -1 when none exists.
func (m Model) PrimaryKey() int {
	for i, f := range m.Fields {
		if f.Primary {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of m.
func (m Model) Clone() Model {
	out := m
	if m.Fields == nil {
		return out
	}
	out.Fields = make([]Field, len(m.Fields))
	for i, f := range m.Fields {
		out.Fields[i] = f
		if f.References != nil {
			fk := *f.References
			out.Fields[i].References = &fk
		}
	}
	return out
}

// CloneModels deep-copies models, preserving nil.
func CloneModels(models []Model) []Model {
	if models == nil {
		return nil
	}
	out := make([]Model, len(models))
	for i, m := range models {
		out[i] = m.Clone()
	}
	return out
}
