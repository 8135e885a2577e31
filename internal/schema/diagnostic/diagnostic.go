// Package diagnostic provides the shared diagnostic type emitted by every
// schema compilation stage.
//
// It lives apart from the stage packages so the tokenizer, parser and
// semantic checker can all produce it without importing each other.
package diagnostic

import (
	"fmt"
	"strconv"
)

// Stage identifies the compilation stage that produced a diagnostic.
type Stage int

const (
	// StageLexical diagnostics come from the tokenizer.
	StageLexical Stage = iota
	// StageSyntactic diagnostics come from the parser.
	StageSyntactic
	// StageSemantic diagnostics come from the semantic checker.
	StageSemantic
)

func (s Stage) String() string {
	switch s {
	case StageLexical:
		return "Lexical"
	case StageSyntactic:
		return "Syntactic"
	case StageSemantic:
		return "Semantic"
	default:
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason classifies why a diagnostic was raised.
type Reason int

const (
	// ReasonUnexpectedCharacter is a character outside the language alphabet.
	ReasonUnexpectedCharacter Reason = iota

	// ReasonExpectedModel means a model block did not start with `model`.
	ReasonExpectedModel
	// ReasonExpectedIdentifier means an identifier slot held something else.
	ReasonExpectedIdentifier
	// ReasonExpectedOpenBrace means `{` was missing after the model name.
	ReasonExpectedOpenBrace
	// ReasonExpectedCloseBrace means the model body was not closed.
	ReasonExpectedCloseBrace
	// ReasonExpectedType means the type slot held punctuation or a keyword.
	ReasonExpectedType
	// ReasonUnknownType means the type slot held an identifier that names no basic type.
	ReasonUnknownType
	// ReasonExpectedOpenParen means `(` was missing after @references.
	ReasonExpectedOpenParen
	// ReasonExpectedComma means `,` was missing between @references arguments.
	ReasonExpectedComma
	// ReasonExpectedCloseParen means `)` was missing after @references arguments.
	ReasonExpectedCloseParen
	// ReasonUnknownAnnotation means an `@` was followed by an unsupported name.
	ReasonUnknownAnnotation
	// ReasonDuplicateReference means a field carries more than one @references.
	ReasonDuplicateReference

	// ReasonUnknownTargetModel means a foreign key names a model that does not exist.
	ReasonUnknownTargetModel
	// ReasonUnknownTargetField means a foreign key names a field missing from its model.
	ReasonUnknownTargetField
	// ReasonTypeMismatch means a foreign key and its target differ in type.
	ReasonTypeMismatch
	// ReasonTargetNotPrimary means a foreign key targets a non-primary field.
	ReasonTargetNotPrimary
	// ReasonMissingPrimaryKey means a model declares no @id field.
	ReasonMissingPrimaryKey
	// ReasonDuplicateModel means two models share a name.
	ReasonDuplicateModel
	// ReasonDuplicateField means two fields of one model share a name.
	ReasonDuplicateField
	// ReasonMultiplePrimaryKeys means a model declares more than one @id field.
	ReasonMultiplePrimaryKeys
	// ReasonNullablePrimaryKey means an @id field is also nullable.
	ReasonNullablePrimaryKey
)

var reasonNames = [...]string{
	ReasonUnexpectedCharacter: "unexpected-character",
	ReasonExpectedModel:       "expected-model",
	ReasonExpectedIdentifier:  "expected-identifier",
	ReasonExpectedOpenBrace:   "expected-open-brace",
	ReasonExpectedCloseBrace:  "expected-close-brace",
	ReasonExpectedType:        "expected-type",
	ReasonUnknownType:         "unknown-type",
	ReasonExpectedOpenParen:   "expected-open-paren",
	ReasonExpectedComma:       "expected-comma",
	ReasonExpectedCloseParen:  "expected-close-paren",
	ReasonUnknownAnnotation:   "unknown-annotation",
	ReasonDuplicateReference:  "duplicate-reference",
	ReasonUnknownTargetModel:  "unknown-target-model",
	ReasonUnknownTargetField:  "unknown-target-field",
	ReasonTypeMismatch:        "type-mismatch",
	ReasonTargetNotPrimary:    "target-not-primary",
	ReasonMissingPrimaryKey:   "missing-primary-key",
	ReasonDuplicateModel:      "duplicate-model",
	ReasonDuplicateField:      "duplicate-field",
	ReasonMultiplePrimaryKeys: "multiple-primary-keys",
	ReasonNullablePrimaryKey:  "nullable-primary-key",
}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "Reason(" + strconv.Itoa(int(r)) + ")"
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Diagnostic captures stage feedback for callers to display.
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Reason  Reason `json:"reason"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// New builds a diagnostic with a formatted message.
func New(stage Stage, reason Reason, line, column int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Stage:   stage,
		Reason:  reason,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

// String renders the diagnostic as "line:column: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// Text renders the message followed by its position, for output that does
// not carry the position separately. Diagnostics without a line are returned
// as the bare message.
func (d Diagnostic) Text() string {
	if d.Line <= 0 {
		return d.Message
	}
	return fmt.Sprintf("%s at line %d, column %d", d.Message, d.Line, d.Column)
}

// Messages returns the Text of each diagnostic in order.
func Messages(diags []Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Text())
	}
	return out
}

// Count returns how many diagnostics carry the given reason.
func Count(diags []Diagnostic, reason Reason) int {
	n := 0
	for _, d := range diags {
		if d.Reason == reason {
			n++
		}
	}
	return n
}
