// Package styx parses Styx, a human-authored structured-document format.
//
// A Styx document is the body of an implicit root object: a sequence of
// entries, each a key followed by a value.
//
//	/// The public listener.
//	server {
//	    host localhost
//	    port 8080
//	}
//	tls.cert r#"C:\certs\server.pem"#
//	allow (10.0.0.1 10.0.0.2)
//	link href>/docs rel>help
//	query <<SQL,sql
//	    SELECT * FROM users
//	    SQL
//	error @err{message "not found"}
//
// Values are scalars (bare, quoted, raw or heredoc), sequences, objects,
// tags with an optional payload, or the unit value @. Scalar text is never
// interpreted: 8080 is the text "8080".
//
// Parsing is a single pass that records exact byte spans and stops at the
// first error. Every error is an *errors.StyxError from the
// github.com/sambeau/styx/pkg/styx/errors package.
package styx

import (
	"fmt"
)

// DefaultMaxDepth is the nesting depth used when Options.MaxDepth is zero.
const DefaultMaxDepth = 128

// Options configures a parse.
type Options struct {
	MaxDepth int // maximum value nesting depth; DefaultMaxDepth if zero
}

// Parse parses source and returns the document tree.
func Parse(source string) (*Document, error) {
	return ParseWithOptions(source, Options{})
}

// ParseBytes parses source held in a byte slice.
func ParseBytes(source []byte) (*Document, error) {
	return Parse(string(source))
}

// ParseWithOptions parses source with the given options.
func ParseWithOptions(source string, opts Options) (*Document, error) {
	p := NewParser(source)
	if opts.MaxDepth > 0 {
		p.MaxDepth = opts.MaxDepth
	}
	return p.Parse()
}

// MustParse is like Parse but panics on error. It is intended for fixed
// documents in tests and program initialization.
func MustParse(source string) *Document {
	doc, err := Parse(source)
	if err != nil {
		panic(fmt.Sprintf("styx: %v", err))
	}
	return doc
}

// Validate parses source and returns only the error, if any.
func Validate(source string) error {
	_, err := Parse(source)
	return err
}

// IsValid reports whether source parses without error.
func IsValid(source string) bool {
	return Validate(source) == nil
}
