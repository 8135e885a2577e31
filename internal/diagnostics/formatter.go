package diagnostics

import (
	"fmt"
	"io"
	"strings"
)

// Sources maps a diagnostic path onto the text it points into.
type Sources map[string][]byte

// Formatter formats diagnostics for display.
type Formatter struct {
	// ShowContext prints the source lines around each located diagnostic.
	ShowContext bool
	// ShowCode appends the reason code.
	ShowCode bool
	// Colorize controls whether to use ANSI color codes.
	Colorize bool
	// ContextLines is the number of lines shown on each side of the error line.
	ContextLines int
}

// NewFormatter creates a formatter that shows one line of context.
func NewFormatter() *Formatter {
	return &Formatter{ShowContext: true, ShowCode: true, ContextLines: 1}
}

// NewSimpleFormatter creates a formatter with one line per diagnostic.
func NewSimpleFormatter() *Formatter {
	return &Formatter{}
}

// Format formats a single diagnostic. sources may be nil.
func (f *Formatter) Format(d Diagnostic, sources Sources) string {
	var b strings.Builder
	f.formatDiagnostic(&b, d, sources)
	return b.String()
}

// WriteAll writes every diagnostic in c.
func (f *Formatter) WriteAll(w io.Writer, c *Collection, sources Sources) error {
	for _, d := range c.All() {
		if _, err := io.WriteString(w, f.Format(d, sources)); err != nil {
			return err
		}
	}
	return nil
}

// PrintSummary prints "N error(s), M warning(s)" when c is not empty.
func (f *Formatter) PrintSummary(w io.Writer, c *Collection) {
	summary := c.Summary()
	parts := make([]string, 0, 2)
	if summary.Errors > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d error(s)", summary.Errors), colorRed))
	}
	if summary.Warnings > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d warning(s)", summary.Warnings), colorYellow))
	}
	if len(parts) > 0 {
		_, _ = fmt.Fprintf(w, "%s\n", strings.Join(parts, ", "))
	}
}

func (f *Formatter) formatDiagnostic(b *strings.Builder, d Diagnostic, sources Sources) {
	if d.HasLocation() {
		location := fmt.Sprintf("%s:%d:%d", d.Location.Path, d.Location.Line, d.Location.Column)
		fmt.Fprintf(b, "%s: ", f.colorize(location, colorCyan))
	} else if d.Location.Path != "" {
		fmt.Fprintf(b, "%s: ", f.colorize(d.Location.Path, colorCyan))
	}

	if d.Stage != "" {
		fmt.Fprintf(b, "%s ", f.colorize("["+d.Stage+"]", f.severityColor(d.Severity)))
	} else {
		fmt.Fprintf(b, "%s: ", f.colorize(d.Severity.String(), f.severityColor(d.Severity)))
	}
	b.WriteString(d.Message)

	if f.ShowCode && d.Code != "" {
		fmt.Fprintf(b, " %s", f.colorize("("+d.Code+")", colorMagenta))
	}
	b.WriteString("\n")

	if f.ShowContext && d.HasLocation() {
		if src, ok := sources[d.Location.Path]; ok {
			ctx := ExtractContext(src, d.Location.Line, d.Location.Column, f.ContextLines)
			b.WriteString(ctx.Format())
		}
	}
}

func (f *Formatter) severityColor(s Severity) string {
	if s == SeverityError {
		return colorRed
	}
	return colorYellow
}

func (f *Formatter) colorize(s, color string) string {
	if !f.Colorize {
		return s
	}
	return color + s + colorReset
}

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)
