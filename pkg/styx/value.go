package styx

import (
	"fmt"
	"strconv"
)

// Span is a range of UTF-8 byte offsets into the source, end exclusive.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d]", s.Start, s.End)
}

// ScalarKind records the lexical form a scalar was written in.
// All forms carry equal-semantics text; the form is kept for schema layers.
type ScalarKind int

const (
	ScalarBare ScalarKind = iota
	ScalarQuoted
	ScalarRaw
	ScalarHeredoc
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarBare:
		return "bare"
	case ScalarQuoted:
		return "quoted"
	case ScalarRaw:
		return "raw"
	case ScalarHeredoc:
		return "heredoc"
	default:
		return fmt.Sprintf("ScalarKind(%d)", int(k))
	}
}

// Separator is the entry delimiter style fixed for an object.
type Separator int

const (
	SeparatorNone Separator = iota // at most one entry, no mode fixed
	SeparatorComma
	SeparatorNewline
)

func (s Separator) String() string {
	switch s {
	case SeparatorNone:
		return "none"
	case SeparatorComma:
		return "comma"
	case SeparatorNewline:
		return "newline"
	default:
		return fmt.Sprintf("Separator(%d)", int(s))
	}
}

// Scalar is an opaque text atom.
type Scalar struct {
	Text string
	Kind ScalarKind
	Lang string // heredoc language hint, e.g. "sql" in <<EOF,sql
	Span Span
}

// Tag is an identifier label attached to a value.
type Tag struct {
	Name string
	Span Span
}

// Sequence is an ordered list of values.
type Sequence struct {
	Items []*Value
	Span  Span
}

// Object is an ordered list of entries.
type Object struct {
	Entries   []*Entry
	Separator Separator
	Span      Span
}

// Get returns the value of the first entry whose key is a scalar with the
// given text, or nil.
func (o *Object) Get(key string) *Value {
	if o == nil {
		return nil
	}
	return lookupEntries(o.Entries, key)
}

// Entry is a key/value pair within an object.
type Entry struct {
	Key   *Value
	Value *Value
	Doc   []string // lines of /// comments directly above the entry
}

// PayloadKind identifies which payload field of a Value is set.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadScalar
	PayloadSequence
	PayloadObject
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadScalar:
		return "scalar"
	case PayloadSequence:
		return "sequence"
	case PayloadObject:
		return "object"
	default:
		return fmt.Sprintf("PayloadKind(%d)", int(k))
	}
}

// Value is an optional tag plus an optional payload. Exactly one of Scalar,
// Sequence and Object is non-nil, selected by PayloadKind; all are nil for
// PayloadNone.
type Value struct {
	Span        Span
	Tag         *Tag
	PayloadKind PayloadKind
	Scalar      *Scalar
	Sequence    *Sequence
	Object      *Object
}

// IsUnit reports whether v has neither tag nor payload.
func (v *Value) IsUnit() bool {
	return v != nil && v.Tag == nil && v.PayloadKind == PayloadNone
}

// Text returns the scalar text of an untagged scalar value.
func (v *Value) Text() (string, bool) {
	if v == nil || v.Tag != nil || v.PayloadKind != PayloadScalar {
		return "", false
	}
	return v.Scalar.Text, true
}

// KeyText returns the canonical text of v used as an object key: scalars
// by text whatever their form, unit as "@", a bare tag as "@name" and a tag
// with a scalar payload as @name "payload", so @a"b" and @ab stay distinct.
func (v *Value) KeyText() string {
	if v.Tag != nil {
		if v.PayloadKind == PayloadScalar {
			return "@" + v.Tag.Name + " " + strconv.Quote(v.Scalar.Text)
		}
		return "@" + v.Tag.Name
	}
	switch v.PayloadKind {
	case PayloadScalar:
		return v.Scalar.Text
	case PayloadNone:
		return "@"
	}
	return ""
}

// Document is a parsed source: the entries of the implicit root object.
type Document struct {
	Entries []*Entry
	Span    Span
}

// Get returns the value of the first root entry with the given key text.
func (d *Document) Get(key string) *Value {
	if d == nil {
		return nil
	}
	return lookupEntries(d.Entries, key)
}

// Lookup walks nested objects following path and returns the value found,
// or nil if any segment is missing or not an object.
func (d *Document) Lookup(path ...string) *Value {
	if d == nil || len(path) == 0 {
		return nil
	}
	v := d.Get(path[0])
	for _, seg := range path[1:] {
		if v == nil || v.PayloadKind != PayloadObject {
			return nil
		}
		v = v.Object.Get(seg)
	}
	return v
}

func lookupEntries(entries []*Entry, key string) *Value {
	for _, e := range entries {
		if text, ok := e.Key.Text(); ok && text == key {
			return e.Value
		}
	}
	return nil
}

func scalarValue(s *Scalar) *Value {
	return &Value{Span: s.Span, PayloadKind: PayloadScalar, Scalar: s}
}

func objectValue(o *Object) *Value {
	return &Value{Span: o.Span, PayloadKind: PayloadObject, Object: o}
}

func sequenceValue(s *Sequence) *Value {
	return &Value{Span: s.Span, PayloadKind: PayloadSequence, Sequence: s}
}
