// Package diagnostics attaches file locations to compiler diagnostics and
// renders them for terminals.
package diagnostics

import (
	"fmt"
	"strings"
)

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityWarning reports an issue that does not stop the run.
	SeverityWarning Severity = iota
	// SeverityError reports an issue that rejects the input.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Location represents a position in a source file.
type Location struct {
	Path   string
	Line   int
	Column int
}

// Diagnostic is a located message. Stage and Code are set for diagnostics
// that came from the schema compiler.
type Diagnostic struct {
	Severity Severity
	// Stage is "Lexical", "Syntactic" or "Semantic".
	Stage    string
	Code     string
	Message  string
	Location Location
}

// HasLocation reports whether the diagnostic points into a file.
func (d Diagnostic) HasLocation() bool {
	return d.Location.Path != "" && d.Location.Line > 0
}

// String renders "path:line:column: [Stage] message". Diagnostics without a
// stage show their severity instead.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.HasLocation() {
		fmt.Fprintf(&b, "%s:%d:%d: ", d.Location.Path, d.Location.Line, d.Location.Column)
	} else if d.Location.Path != "" {
		fmt.Fprintf(&b, "%s: ", d.Location.Path)
	}
	if d.Stage != "" {
		fmt.Fprintf(&b, "[%s] ", d.Stage)
	} else {
		fmt.Fprintf(&b, "%s: ", d.Severity)
	}
	b.WriteString(d.Message)
	return b.String()
}

// Collection accumulates diagnostics in report order.
type Collection struct {
	items []Diagnostic
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends diagnostics.
func (c *Collection) Add(diags ...Diagnostic) {
	c.items = append(c.items, diags...)
}

// All returns a copy of every diagnostic.
func (c *Collection) All() []Diagnostic {
	return append([]Diagnostic(nil), c.items...)
}

// Len returns the number of diagnostics.
func (c *Collection) Len() int {
	return len(c.items)
}

// HasErrors reports whether any diagnostic is an error.
func (c *Collection) HasErrors() bool {
	_, ok := c.FirstError()
	return ok
}

// FirstError returns the earliest error diagnostic.
func (c *Collection) FirstError() (Diagnostic, bool) {
	for _, d := range c.items {
		if d.Severity == SeverityError {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// Summary counts diagnostics by severity.
type Summary struct {
	Errors   int
	Warnings int
}

// Summary counts the collected diagnostics.
func (c *Collection) Summary() Summary {
	var s Summary
	for _, d := range c.items {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		}
	}
	return s
}
