// Package errors provides structured error types for the Styx parser.
//
// Every parse failure is a StyxError carrying a stable Kind and the UTF-8
// byte offsets of the offending source region. Messages are rendered from a
// catalog of templates so that callers can match on Kind without parsing
// message text.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

// Kind identifies the category of a parse error.
type Kind string

const (
	UnexpectedToken         Kind = "UnexpectedToken"
	UnclosedObject          Kind = "UnclosedObject"
	UnclosedSequence        Kind = "UnclosedSequence"
	InvalidEscapeSequence   Kind = "InvalidEscapeSequence"
	UnterminatedString      Kind = "UnterminatedString"
	UnterminatedHeredoc     Kind = "UnterminatedHeredoc"
	HeredocDelimiterTooLong Kind = "HeredocDelimiterTooLong"
	HeredocIndentTooShallow Kind = "HeredocIndentTooShallow"
	InvalidTagName          Kind = "InvalidTagName"
	DuplicateKey            Kind = "DuplicateKey"
	ReopenPath              Kind = "ReopenPath"
	NestIntoTerminal        Kind = "NestIntoTerminal"
	MixedSeparators         Kind = "MixedSeparators"
	SequenceComma           Kind = "SequenceComma"
	AttributeMissingValue   Kind = "AttributeMissingValue"
	InvalidKey              Kind = "InvalidKey"
	NestingTooDeep          Kind = "NestingTooDeep"
)

// StyxError represents a single fatal parse error.
type StyxError struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Start   int            `json:"start"`          // byte offset, inclusive
	End     int            `json:"end"`            // byte offset, exclusive
	Line    int            `json:"line,omitempty"` // 1-based line (0 if not located)
	Column  int            `json:"column,omitempty"`
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *StyxError) Error() string {
	return e.String()
}

// String returns a single-line representation of the error.
func (e *StyxError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	if e.Line == 0 {
		sb.WriteString(fmt.Sprintf(" (bytes %d..%d)", e.Start, e.End))
	}

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *StyxError) PrettyString() string {
	var sb strings.Builder

	sb.WriteString("Parse error")

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *StyxError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *StyxError) WithFile(file string) *StyxError {
	copy := *e
	copy.File = file
	return &copy
}

// WithSource returns a copy of the error with Line and Column computed from
// the source the error's offsets refer to.
func (e *StyxError) WithSource(source string) *StyxError {
	copy := *e
	copy.Line, copy.Column = Locate(source, e.Start)
	return &copy
}

// Shift returns a copy of the error with its offsets moved by delta bytes.
// Used when an error was produced against a slice of a larger source.
func (e *StyxError) Shift(delta int) *StyxError {
	copy := *e
	copy.Start += delta
	copy.End += delta
	return &copy
}

// Locate converts a byte offset into a 1-based line and column.
// Columns count runes, not bytes. Offsets past the end clamp to the end.
func Locate(source string, offset int) (line, column int) {
	if offset > len(source) {
		offset = len(source)
	}
	if offset < 0 {
		offset = 0
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	column = utf8.RuneCountInString(source[lineStart:offset]) + 1
	return line, column
}

// KindOf returns the Kind of err if it is (or wraps) a StyxError.
func KindOf(err error) (Kind, bool) {
	var se *StyxError
	if stderrors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Is reports whether err is a StyxError of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates (may use {{.placeholders}})
}

// Catalog maps error kinds to their definitions.
var Catalog = map[Kind]ErrorDef{
	UnexpectedToken: {
		Template: "unexpected {{.Token}}",
	},
	UnclosedObject: {
		Template: "unclosed object (missing `}`)",
	},
	UnclosedSequence: {
		Template: "unclosed sequence (missing `)`)",
	},
	InvalidEscapeSequence: {
		Template: "invalid escape sequence: {{.Escape}}",
		Hints:    []string{`valid escapes are \\ \" \n \r \t \0 \uXXXX \u{X...}`},
	},
	UnterminatedString: {
		Template: "unterminated {{.What}}",
	},
	UnterminatedHeredoc: {
		Template: "unterminated heredoc (missing closing `{{.Delimiter}}`)",
	},
	HeredocDelimiterTooLong: {
		Template: "heredoc delimiter `{{.Delimiter}}` is longer than {{.Max}} characters",
	},
	HeredocIndentTooShallow: {
		Template: "heredoc line is indented less than its closing delimiter ({{.Indent}} characters)",
	},
	InvalidTagName: {
		Template: "invalid tag name",
		Hints:    []string{"tag names match [A-Za-z_][A-Za-z0-9_-]*; put a space after the tag to separate a value"},
	},
	DuplicateKey: {
		Template: "duplicate key `{{.Path}}`",
	},
	ReopenPath: {
		Template: "cannot reopen path `{{.Path}}` after a sibling appeared",
		Hints:    []string{"keep all entries under `{{.Path}}` together"},
	},
	NestIntoTerminal: {
		Template: "cannot nest into `{{.Path}}` which has a terminal value",
	},
	MixedSeparators: {
		Template: "mixed separators (use either commas or newlines)",
	},
	SequenceComma: {
		Template: "unexpected `,` in sequence (sequences are whitespace-separated)",
	},
	AttributeMissingValue: {
		Template: "expected a value after `>`",
	},
	InvalidKey: {
		Template: "invalid key: {{.Reason}}",
	},
	NestingTooDeep: {
		Template: "maximum nesting depth ({{.Max}}) exceeded",
	},
}

// New creates a StyxError from the catalog.
func New(kind Kind, start, end int, data map[string]any) *StyxError {
	def, ok := Catalog[kind]
	if !ok {
		return &StyxError{
			Kind:    kind,
			Message: string(kind),
			Start:   start,
			End:     end,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &StyxError{
		Kind:    kind,
		Message: msg,
		Hints:   hints,
		Start:   start,
		End:     end,
		Data:    data,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr
	}

	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return strings.ReplaceAll(buf.String(), "<no value>", "")
}
