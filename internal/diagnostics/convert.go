package diagnostics

import (
	"errors"

	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
)

// FromSchema locates a compiler diagnostic in path.
func FromSchema(path string, d diagnostic.Diagnostic) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Stage:    d.Stage.String(),
		Code:     d.Reason.String(),
		Message:  d.Message,
		Location: Location{Path: path, Line: d.Line, Column: d.Column},
	}
}

// FromCompileError converts the error returned by compiler.Compile for path.
// A *compiler.Error yields one diagnostic per stage diagnostic; any other
// error becomes a single unstaged error.
func FromCompileError(path string, err error) []Diagnostic {
	if err == nil {
		return nil
	}
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		return []Diagnostic{{
			Severity: SeverityError,
			Message:  err.Error(),
			Location: Location{Path: path},
		}}
	}
	out := make([]Diagnostic, 0, len(cerr.Diagnostics))
	for _, d := range cerr.Diagnostics {
		out = append(out, FromSchema(path, d))
	}
	return out
}
