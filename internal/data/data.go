// Package data stores the rows inserted into catalogue tables.
//
// Queries are INSERT INTO statements checked against the table records held
// by the catalogue. Accepted rows are appended to a write-ahead log and then
// persisted through a Store.
package data

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// DateLayout is the accepted form of Date values.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidRow is matched by errors reporting a row its table rejects.
	ErrInvalidRow = errors.New("invalid row")
	// ErrDuplicateKey is matched by errors reporting a primary key collision.
	ErrDuplicateKey = errors.New("duplicate primary key")
)

// Row maps column names onto values. Values are string for String, Date and
// Blob columns, int64 for Int and float64 for Float. Null columns are absent.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UnknownTableError names a table the catalogue does not hold.
type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("table %s not found", e.Name)
}

// Is reports whether target is catalogue.ErrNotFound.
func (e *UnknownTableError) Is(target error) bool {
	return target == catalogue.ErrNotFound
}

// RowError reports why a row was rejected. Column is empty when the problem
// concerns the row as a whole.
type RowError struct {
	Table  string
	Column string
	Reason string
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("table %s, column %s: %s", e.Table, e.Column, e.Reason)
}

// Is reports whether target is ErrInvalidRow.
func (e *RowError) Is(target error) bool {
	return target == ErrInvalidRow
}

// DuplicateKeyError names the primary key value that is already taken.
type DuplicateKeyError struct {
	Table  string
	Column string
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate primary key %s.%s = %s", e.Table, e.Column, e.Key)
}

// Is reports whether target is ErrDuplicateKey.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// BuildRow checks one VALUES tuple against t and converts it into a Row.
// columns lists the target of each value; nil selects every column of t.
func BuildRow(t catalogue.Table, columns []string, values []Value) (Row, error) {
	if columns == nil {
		columns = make([]string, len(t.Columns))
		for i, c := range t.Columns {
			columns[i] = c.Name
		}
	}
	if len(values) != len(columns) {
		return nil, &RowError{Table: t.Name, Reason: fmt.Sprintf("%d values for %d columns", len(values), len(columns))}
	}

	byName := make(map[string]catalogue.Column, len(t.Columns))
	for _, c := range t.Columns {
		byName[c.Name] = c
	}
	row := make(Row, len(columns))
	set := make(map[string]struct{}, len(columns))
	for i, name := range columns {
		col, ok := byName[name]
		if !ok {
			return nil, &RowError{Table: t.Name, Column: name, Reason: "no such column"}
		}
		if _, dup := set[name]; dup {
			return nil, &RowError{Table: t.Name, Column: name, Reason: "column listed more than once"}
		}
		set[name] = struct{}{}

		v, err := convert(col, values[i])
		if err != nil {
			return nil, &RowError{Table: t.Name, Column: name, Reason: err.Error()}
		}
		if v != nil {
			row[name] = v
		}
	}
	for _, c := range t.Columns {
		if _, ok := row[c.Name]; !ok && !c.Nullable {
			return nil, &RowError{Table: t.Name, Column: c.Name, Reason: "value required"}
		}
	}
	return row, nil
}

// convert maps a literal onto the Go value stored for the column type. A nil
// result stands for NULL.
func convert(col catalogue.Column, v Value) (any, error) {
	if v.Kind == ValueNull {
		if !col.Nullable {
			return nil, errors.New("value required")
		}
		return nil, nil
	}
	switch col.Type {
	case model.Int:
		if v.Kind != ValueNumber || !v.Number.IsInteger() {
			return nil, fmt.Errorf("expected an integer, got %s", describeValue(v))
		}
		if v.Number.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || v.Number.LessThan(decimal.NewFromInt(math.MinInt64)) {
			return nil, fmt.Errorf("integer %s out of range", v.Text)
		}
		return v.Number.IntPart(), nil
	case model.Float:
		if v.Kind != ValueNumber {
			return nil, fmt.Errorf("expected a number, got %s", describeValue(v))
		}
		return v.Number.InexactFloat64(), nil
	case model.Date:
		if v.Kind != ValueString {
			return nil, fmt.Errorf("expected a date, got %s", describeValue(v))
		}
		if _, err := time.Parse(DateLayout, v.Text); err != nil {
			return nil, fmt.Errorf("expected a date as YYYY-MM-DD, got '%s'", v.Text)
		}
		return v.Text, nil
	case model.String, model.Blob:
		if v.Kind != ValueString {
			return nil, fmt.Errorf("expected a string, got %s", describeValue(v))
		}
		return v.Text, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.Type)
	}
}

func describeValue(v Value) string {
	switch v.Kind {
	case ValueString:
		return fmt.Sprintf("string '%s'", v.Text)
	case ValueNumber:
		return "number " + v.Text
	default:
		return v.Kind.String()
	}
}

// keyOf renders a stored value so that equal keys compare equal whatever
// codec decoded them.
func keyOf(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case int64:
		return decimal.NewFromInt(v).String(), true
	case float64:
		return decimal.NewFromFloat(v).String(), true
	case []byte:
		return base64.StdEncoding.EncodeToString(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// normalize converts a decoded value into the types BuildRow produces.
func normalize(col catalogue.Column, v any) any {
	switch n := v.(type) {
	case int:
		v = int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			v = int64(n)
		}
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			v = d.InexactFloat64()
		}
	case time.Time:
		v = n.Format(DateLayout)
	}
	switch col.Type {
	case model.Int:
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return int64(f)
		}
	case model.Float:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	}
	return v
}
