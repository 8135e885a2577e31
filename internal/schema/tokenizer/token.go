package tokenizer

import (
	"strconv"
	"unicode/utf8"
)

// Kind represents the classification of a scanned token.
type Kind int

const (
	// KindModel is the `model` keyword.
	KindModel Kind = iota
	// KindType is one of the basic type keywords (Int, Float, Date, String, Blob).
	KindType
	// KindIdentifier is any other word.
	KindIdentifier
	// KindOpenBrace is `{`.
	KindOpenBrace
	// KindCloseBrace is `}`.
	KindCloseBrace
	// KindOpenParen is `(`.
	KindOpenParen
	// KindCloseParen is `)`.
	KindCloseParen
	// KindQuestion is `?`.
	KindQuestion
	// KindAt is `@`.
	KindAt
	// KindComma is `,`.
	KindComma
	// KindEOF marks the logical end of the input. Scan never emits it; the
	// parser synthesises it when the stream is exhausted.
	KindEOF
)

var kindNames = [...]string{
	KindModel:      "model",
	KindType:       "type",
	KindIdentifier: "identifier",
	KindOpenBrace:  "`{`",
	KindCloseBrace: "`}`",
	KindOpenParen:  "`(`",
	KindCloseParen: "`)`",
	KindQuestion:   "`?`",
	KindAt:         "`@`",
	KindComma:      "`,`",
	KindEOF:        "end of input",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is a unit emitted by the scanner. Offset is the byte offset of the
// first character of Text in the source.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
}

// keywords maps reserved words onto their token kind.
var keywords = map[string]Kind{
	"model":  KindModel,
	"Int":    KindType,
	"Float":  KindType,
	"Date":   KindType,
	"String": KindType,
	"Blob":   KindType,
}

// LookupKeyword classifies a scanned word.
func LookupKeyword(word string) Kind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	return KindIdentifier
}

var punctuation = map[byte]Kind{
	'{': KindOpenBrace,
	'}': KindCloseBrace,
	'(': KindOpenParen,
	')': KindCloseParen,
	'?': KindQuestion,
	'@': KindAt,
	',': KindComma,
}

// LineColumn is a 1-based source position.
type LineColumn struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Position maps a byte offset in src onto its line and column. Columns count
// runes. Offsets past the end of src resolve to the position just after the
// last character.
func Position(src string, offset int) LineColumn {
	lc := LineColumn{Line: 1, Column: 1}
	if offset > len(src) {
		offset = len(src)
	}
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(src[i:])
		if r == '\n' {
			lc.Line++
			lc.Column = 1
		} else {
			lc.Column++
		}
		i += size
	}
	return lc
}
