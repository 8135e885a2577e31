package typescript

import (
	"strconv"
	"strings"
	"unicode"
)

// words splits on underscores and on lower-to-upper transitions.
func words(s string) []string {
	var (
		out []string
		cur []rune
	)
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_':
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				out = append(out, string(cur))
				cur = nil
			}
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func pascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	if b.Len() == 0 {
		return "Model"
	}
	return b.String()
}

func camelCase(s string) string {
	p := []rune(pascalCase(s))
	p[0] = unicode.ToLower(p[0])
	return string(p)
}

func uniqueName(base string, used map[string]int) string {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n+1)
}
