package diagnostics

import (
	"fmt"
	"strings"
)

// Context is a window of source lines around a diagnostic.
type Context struct {
	Lines       []string
	StartLine   int
	ErrorLine   int
	ErrorColumn int
}

// ExtractContext returns up to contextLines lines on each side of line.
// An out-of-range line yields an empty Context.
func ExtractContext(source []byte, line, column, contextLines int) Context {
	lines := strings.Split(strings.ReplaceAll(string(source), "\r\n", "\n"), "\n")
	if line < 1 || line > len(lines) {
		return Context{}
	}
	start := max(line-contextLines, 1)
	end := min(line+contextLines, len(lines))
	return Context{
		Lines:       lines[start-1 : end],
		StartLine:   start,
		ErrorLine:   line,
		ErrorColumn: column,
	}
}

// IsEmpty returns true if the context has no lines.
func (c Context) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Format renders the lines with numbers, marking the error line with ">" and
// the error column with a caret.
func (c Context) Format() string {
	if c.IsEmpty() {
		return ""
	}

	var b strings.Builder
	maxLineNum := c.StartLine + len(c.Lines) - 1
	width := len(fmt.Sprintf("%d", maxLineNum))

	for i, line := range c.Lines {
		lineNum := c.StartLine + i
		isErrorLine := lineNum == c.ErrorLine
		if isErrorLine {
			fmt.Fprintf(&b, "> %*d | ", width, lineNum)
		} else {
			fmt.Fprintf(&b, "  %*d | ", width, lineNum)
		}
		b.WriteString(line)
		b.WriteString("\n")

		if isErrorLine && c.ErrorColumn > 0 {
			b.WriteString(strings.Repeat(" ", width+5))
			// Columns count runes; tabs are kept so the caret lines up.
			col := 1
			for _, r := range line {
				if col >= c.ErrorColumn {
					break
				}
				if r == '\t' {
					b.WriteByte('\t')
				} else {
					b.WriteByte(' ')
				}
				col++
			}
			b.WriteString("^\n")
		}
	}
	return b.String()
}
