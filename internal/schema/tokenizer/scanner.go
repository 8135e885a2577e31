// Package tokenizer scans schema source into tokens.
package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
)

const eofRune = -1

// Result is the output of a single scan.
type Result struct {
	Tokens      []Token
	Diagnostics []diagnostic.Diagnostic
}

// Scan tokenizes src. It always returns; characters outside the language are
// reported as lexical diagnostics and skipped.
func Scan(src string) Result {
	s := &Scanner{
		src:    src,
		tokens: make([]Token, 0, len(src)/4+1),
	}
	s.scan()
	return Result{Tokens: s.tokens, Diagnostics: s.diagnostics}
}

// Scanner maintains scanning state over a schema source.
type Scanner struct {
	src         string
	index       int
	tokens      []Token
	diagnostics []diagnostic.Diagnostic
}

func (s *Scanner) scan() {
	for s.index < len(s.src) {
		r := s.peek()
		switch {
		case unicode.IsSpace(r):
			s.advance()
		case r == '/' && s.peekNext() == '/':
			s.consumeLineComment()
		case unicode.IsLetter(r):
			s.consumeWord()
		case r < utf8.RuneSelf && isPunctuation(byte(r)):
			s.emit(punctuation[byte(r)], s.index, s.index+1)
			s.index++
		default:
			start := s.index
			s.advance()
			s.unexpected(r, start)
		}
	}
}

func (s *Scanner) consumeLineComment() {
	for {
		r := s.peek()
		if r == eofRune {
			return
		}
		s.advance()
		if r == '\n' {
			return
		}
	}
}

func (s *Scanner) consumeWord() {
	start := s.index
	for isWordPart(s.peek()) {
		s.advance()
	}
	text := s.src[start:s.index]
	s.tokens = append(s.tokens, Token{Kind: LookupKeyword(text), Text: text, Offset: start})
}

func (s *Scanner) emit(kind Kind, start, end int) {
	s.tokens = append(s.tokens, Token{Kind: kind, Text: s.src[start:end], Offset: start})
}

func (s *Scanner) unexpected(r rune, offset int) {
	pos := Position(s.src, offset)
	var d diagnostic.Diagnostic
	if r == utf8.RuneError {
		d = diagnostic.New(diagnostic.StageLexical, diagnostic.ReasonUnexpectedCharacter, pos.Line, pos.Column,
			"unexpected byte %#02x", s.src[offset])
	} else {
		d = diagnostic.New(diagnostic.StageLexical, diagnostic.ReasonUnexpectedCharacter, pos.Line, pos.Column,
			"unexpected character %q", r)
	}
	s.diagnostics = append(s.diagnostics, d)
}

func (s *Scanner) peek() rune {
	if s.index >= len(s.src) {
		return eofRune
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.index:])
	return r
}

func (s *Scanner) peekNext() rune {
	idx := s.index
	if idx >= len(s.src) {
		return eofRune
	}
	_, size := utf8.DecodeRuneInString(s.src[idx:])
	idx += size
	if idx >= len(s.src) {
		return eofRune
	}
	r, _ := utf8.DecodeRuneInString(s.src[idx:])
	return r
}

func (s *Scanner) advance() {
	if s.index >= len(s.src) {
		return
	}
	_, size := utf8.DecodeRuneInString(s.src[s.index:])
	s.index += size
}

func isWordPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isPunctuation(b byte) bool {
	_, ok := punctuation[b]
	return ok
}
