// Package sexp renders Styx documents and parse errors as s-expressions.
//
// The output lists every node with its kind and byte span, one node per
// line, and is stable enough to diff between parser versions:
//
//	(document [0, 8]
//	  (entry
//	    (scalar [0, 4] bare "name")
//	    (scalar [5, 8] quoted "x")))
package sexp

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/sambeau/styx/pkg/styx"
	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// IndentString is the indentation used for each nesting level.
const IndentString = "  "

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Quote returns s as a double-quoted s-expression string.
func Quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// Printer manages formatting state and output
type Printer struct {
	output strings.Builder
	indent int
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
}

// write appends a string to the output
func (p *Printer) write(s string) {
	p.output.WriteString(s)
}

// startLine begins a new line at the current indentation. The first node
// of the output starts without a newline.
func (p *Printer) startLine() {
	if p.output.Len() > 0 {
		p.output.WriteString("\n")
	}
	p.output.WriteString(strings.Repeat(IndentString, p.indent))
}

// open starts a node that has children.
func (p *Printer) open(head string) {
	p.startLine()
	p.write("(" + head)
	p.indent++
}

// close ends the node most recently opened.
func (p *Printer) close() {
	p.write(")")
	if p.indent > 0 {
		p.indent--
	}
}

// leaf writes a node without children on its own line.
func (p *Printer) leaf(s string) {
	p.startLine()
	p.write(s)
}

// PrintDocument writes the document node and all its entries.
func (p *Printer) PrintDocument(doc *styx.Document) {
	p.open("document " + doc.Span.String())
	for _, e := range doc.Entries {
		p.PrintEntry(e)
	}
	p.close()
}

// PrintEntry writes an entry node: its key then its value.
func (p *Printer) PrintEntry(e *styx.Entry) {
	p.open("entry")
	p.PrintValue(e.Key)
	p.PrintValue(e.Value)
	p.close()
}

// PrintValue writes a value node.
func (p *Printer) PrintValue(v *styx.Value) {
	if v.Tag != nil {
		head := fmt.Sprintf("tag %s %s", v.Span, Quote(v.Tag.Name))
		if v.PayloadKind == styx.PayloadNone {
			p.leaf("(" + head + ")")
			return
		}
		p.open(head)
		p.printPayload(v)
		p.close()
		return
	}
	if v.PayloadKind == styx.PayloadNone {
		p.leaf(fmt.Sprintf("(unit %s)", v.Span))
		return
	}
	p.printPayload(v)
}

func (p *Printer) printPayload(v *styx.Value) {
	switch v.PayloadKind {
	case styx.PayloadScalar:
		s := v.Scalar
		p.leaf(fmt.Sprintf("(scalar %s %s %s)", s.Span, s.Kind, Quote(s.Text)))
	case styx.PayloadSequence:
		seq := v.Sequence
		if len(seq.Items) == 0 {
			p.leaf(fmt.Sprintf("(sequence %s)", seq.Span))
			return
		}
		p.open("sequence " + seq.Span.String())
		for _, item := range seq.Items {
			p.PrintValue(item)
		}
		p.close()
	case styx.PayloadObject:
		obj := v.Object
		head := fmt.Sprintf("object %s %s", obj.Span, obj.Separator)
		if len(obj.Entries) == 0 {
			p.leaf("(" + head + ")")
			return
		}
		p.open(head)
		for _, e := range obj.Entries {
			p.PrintEntry(e)
		}
		p.close()
	}
}

// PrintError writes an error node. Errors that are not parse errors are
// reported with an empty span.
func (p *Printer) PrintError(err error) {
	var se *perrors.StyxError
	if stderrors.As(err, &se) {
		p.leaf(fmt.Sprintf("(error [%d, %d] %s)", se.Start, se.End, Quote(se.Message)))
		return
	}
	p.leaf(fmt.Sprintf("(error [0, 0] %s)", Quote(err.Error())))
}

// Document returns the s-expression form of doc.
func Document(doc *styx.Document) string {
	p := NewPrinter()
	p.PrintDocument(doc)
	return p.String()
}

// Value returns the s-expression form of a single value.
func Value(v *styx.Value) string {
	p := NewPrinter()
	p.PrintValue(v)
	return p.String()
}

// Error returns the s-expression form of a parse error.
func Error(err error) string {
	p := NewPrinter()
	p.PrintError(err)
	return p.String()
}

// Parse parses source and returns either the document or the error as an
// s-expression, along with the parse error.
func Parse(source string) (string, error) {
	doc, err := styx.Parse(source)
	if err != nil {
		return Error(err), err
	}
	return Document(doc), nil
}
