package codegen

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExportedIdentifier converts a schema name into a public Go identifier.
// Underscores split words: "employee_id" becomes "EmployeeId".
func ExportedIdentifier(raw string) string {
	var b strings.Builder
	for _, seg := range strings.Split(raw, "_") {
		r, size := utf8.DecodeRuneInString(seg)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(seg[size:])
	}
	ident := b.String()
	if ident == "" {
		return "X"
	}
	// Identifiers that start with a digit or an uncased letter are not exported.
	if r, _ := utf8.DecodeRuneInString(ident); !unicode.IsUpper(r) {
		ident = "X" + ident
	}
	return ident
}

// FileName converts a name into a snake_case file name segment.
func FileName(raw string) string {
	runes := []rune(raw)
	var b strings.Builder
	b.Grow(len(runes) * 2)
	prevUnderscore := false
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) {
				lowerPrev := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
				lowerNext := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])
				if (lowerPrev || lowerNext) && !prevUnderscore {
					b.WriteRune('_')
				}
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == '-' || r == ' ':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "models"
	}
	return name
}

// UniqueName returns base, or base with the smallest numeric suffix not yet
// present in used, and records the result.
func UniqueName(base string, used map[string]int) string {
	if _, exists := used[base]; !exists {
		used[base] = 1
		return base
	}
	for i := used[base] + 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, exists := used[candidate]; !exists {
			used[base] = i
			used[candidate] = 1
			return candidate
		}
	}
}
