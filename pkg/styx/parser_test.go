package styx

import (
	"reflect"
	"strings"
	"testing"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// writeDump renders a value compactly: objects as {k=v,...}, sequences as
// (a b), tags as @name<payload>, unit as @.
func writeDump(sb *strings.Builder, v *Value) {
	if v.Tag != nil {
		sb.WriteString("@" + v.Tag.Name)
		if v.PayloadKind == PayloadNone {
			return
		}
		sb.WriteString("<")
		defer sb.WriteString(">")
	}
	switch v.PayloadKind {
	case PayloadNone:
		if v.Tag == nil {
			sb.WriteString("@")
		}
	case PayloadScalar:
		sb.WriteString(v.Scalar.Text)
	case PayloadSequence:
		sb.WriteString("(")
		for i, item := range v.Sequence.Items {
			if i > 0 {
				sb.WriteString(" ")
			}
			writeDump(sb, item)
		}
		sb.WriteString(")")
	case PayloadObject:
		writeEntries(sb, v.Object.Entries)
	}
}

func writeEntries(sb *strings.Builder, entries []*Entry) {
	sb.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(",")
		}
		writeDump(sb, e.Key)
		sb.WriteString("=")
		writeDump(sb, e.Value)
	}
	sb.WriteString("}")
}

func dumpDoc(doc *Document) string {
	var sb strings.Builder
	writeEntries(&sb, doc.Entries)
	return sb.String()
}

func TestParseDocuments(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "{}"},
		{"// only a comment\n", "{}"},
		{"a 1", "{a=1}"},
		{"a 1\nb 2", "{a=1,b=2}"},
		{"a 1, b 2", "{a=1,b=2}"},
		{"a 1,, b 2,", "{a=1,b=2}"},
		{"key", "{key=@}"},
		{"a, b", "{a=@,b=@}"},
		{"x @", "{x=@}"},
		{"@ 1", "{@=1}"},
		{"x @t", "{x=@t}"},
		{`x @t"v"`, "{x=@t<v>}"},
		{"x @t@", "{x=@t}"},
		{"x ()", "{x=()}"},
		{"x (a (b c) {d 1})", "{x=(a (b c) {d=1})}"},
		{`x r#"raw "text""#`, `{x=raw "text"}`},
		{`"quoted key" 1`, "{quoted key=1}"},
		{"a {}", "{a={}}"},
		{"server {host localhost, port 8080}", "{server={host=localhost,port=8080}}"},
		{"a {\n  b 1\n  c 2\n}", "{a={b=1,c=2}}"},
		{"a.b.c 1", "{a={b={c=1}}}"},
		{"a.b 1\na.c 2", "{a={b=1,c=2}}"},
		{"x {a.b 1, a.c 2}", "{x={a={b=1,c=2}}}"},
		{"a {b 1}\na.c 2", "{a={b=1,c=2}}"},
		{`"a.b" 1`, "{a.b=1}"},
		{"@tag (1 2)", "{@tag=(1 2)}"},
		{"x @tag(1 2)", "{x=@tag<(1 2)>}"},
		{`@err{message "x"}`, "{@=@err<{message=x}>}"},
		{"{a 1}", "{@={a=1}}"},
		{"{a 1} trailing", "{@={a=1}}"},
		{"link href>/docs rel>help", "{link={href=/docs,rel=help}}"},
		{"id>1", "{@={id=1}}"},
		{"x a>(1 2) b>{c d} e>@t", "{x={a=(1 2),b={c=d},e=@t}}"},
		{"x a>{\n  b 1\n} c>2", "{x={a={b=1},c=2}}"},
		{"x a>{\n  b 1\n}\nc>2", "{x={a={b=1}},@={c=2}}"},
		{"x <<EOF\n  hi\n  EOF\ny 2", "{x=hi,y=2}"},
		{"user@example.com ok", "{user@example.com=ok}"},
		{"@t\"k\" v", "{@t<k>=v}"},
		{"@a\"b\" 1\n@ab 2", "{@a<b>=1,@ab=2}"},
	}

	for _, tt := range tests {
		doc, err := Parse(tt.input)
		if err != nil {
			t.Errorf("input %q: unexpected error: %v", tt.input, err)
			continue
		}
		if got := dumpDoc(doc); got != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  perrors.Kind
		span  Span
	}{
		{"x {a.b 1, a.b 2}", perrors.DuplicateKey, Span{10, 13}},
		{"x {a.b 1, a 2}", perrors.ReopenPath, Span{10, 11}},
		{"x {a 1, b 2\nc 3}", perrors.MixedSeparators, Span{12, 13}},
		{"x {a 1\nb 2, c 3}", perrors.MixedSeparators, Span{10, 11}},
		{"x (1, 2)", perrors.SequenceComma, Span{4, 5}},
		{"x {a 1", perrors.UnclosedObject, Span{2, 3}},
		{"x (a", perrors.UnclosedSequence, Span{2, 3}},
		{"x {a 1 b 2}", perrors.UnexpectedToken, Span{7, 8}},
		{"a 1 b 2", perrors.UnexpectedToken, Span{4, 5}},
		{"x }", perrors.UnexpectedToken, Span{2, 3}},
		{"x )", perrors.UnexpectedToken, Span{2, 3}},
		{"a 1\na 2", perrors.DuplicateKey, Span{4, 5}},
		{"a 1\n\"a\" 2", perrors.DuplicateKey, Span{4, 7}},
		{"a 1\na.b 2", perrors.NestIntoTerminal, Span{4, 7}},
		{"a.b {}\na.c {}\na.b.x 1", perrors.ReopenPath, Span{14, 19}},
		{"a.x 1\nb 2\na.y 3", perrors.ReopenPath, Span{10, 13}},
		{"a..b 1", perrors.InvalidKey, Span{0, 4}},
		{".a 1", perrors.InvalidKey, Span{0, 2}},
		{"(a b) 1", perrors.InvalidKey, Span{0, 5}},
		{"<<EOF\nx\nEOF\n", perrors.InvalidKey, Span{0, 11}},
		{"x @tag.foo", perrors.InvalidTagName, Span{3, 10}},
		{"x @123", perrors.InvalidTagName, Span{2, 6}},
		{"x a>", perrors.AttributeMissingValue, Span{3, 4}},
		{"x a> b", perrors.AttributeMissingValue, Span{3, 4}},
		{"x {k a>}", perrors.AttributeMissingValue, Span{6, 7}},
		{"x (a>b)", perrors.UnexpectedToken, Span{4, 5}},
		{"x a>1 a>2", perrors.DuplicateKey, Span{6, 7}},
		{`x "bad\q"`, perrors.InvalidEscapeSequence, Span{6, 8}},
		{"{a 1}\n{b 2}", perrors.ReopenPath, Span{6, 6}},
	}

	for _, tt := range tests {
		_, err := Parse(tt.input)
		if err == nil {
			t.Errorf("input %q: expected %s, got no error", tt.input, tt.kind)
			continue
		}
		se, ok := err.(*perrors.StyxError)
		if !ok {
			t.Errorf("input %q: expected *StyxError, got %T", tt.input, err)
			continue
		}
		if se.Kind != tt.kind {
			t.Errorf("input %q: expected %s, got %s (%v)", tt.input, tt.kind, se.Kind, se)
			continue
		}
		if se.Start != tt.span.Start || se.End != tt.span.End {
			t.Errorf("input %q: expected span %v, got [%d, %d]", tt.input, tt.span, se.Start, se.End)
		}
	}
}

func TestParseSeparators(t *testing.T) {
	tests := []struct {
		input    string
		expected Separator
	}{
		{"x {a 1, b 2}", SeparatorComma},
		{"x {a 1,\nb 2}", SeparatorComma},
		{"x {\na 1\nb 2\n}", SeparatorNewline},
		{"x {a 1}", SeparatorNone},
		{"x {,a 1,}", SeparatorNone},
		{"x {}", SeparatorNone},
		{"x a>1 b>2", SeparatorComma},
	}
	for _, tt := range tests {
		doc, err := Parse(tt.input)
		if err != nil {
			t.Errorf("input %q: unexpected error: %v", tt.input, err)
			continue
		}
		v := doc.Get("x")
		if v == nil || v.PayloadKind != PayloadObject {
			t.Errorf("input %q: expected object under x", tt.input)
			continue
		}
		if v.Object.Separator != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, v.Object.Separator)
		}
	}

	doc := MustParse("a.b 1")
	if sep := doc.Get("a").Object.Separator; sep != SeparatorNewline {
		t.Errorf("synthesized object: expected newline mode, got %s", sep)
	}
}

func TestParseSpans(t *testing.T) {
	doc := MustParse("a.b.c 1")
	a := doc.Entries[0]
	if a.Key.Span != (Span{0, 1}) {
		t.Errorf("a key span: got %v", a.Key.Span)
	}
	if a.Value.Span != (Span{0, 7}) {
		t.Errorf("a value span: got %v", a.Value.Span)
	}
	b := a.Value.Object.Entries[0]
	if b.Key.Span != (Span{2, 3}) {
		t.Errorf("b key span: got %v", b.Key.Span)
	}
	c := b.Value.Object.Entries[0]
	if c.Key.Span != (Span{4, 5}) || c.Value.Span != (Span{6, 7}) {
		t.Errorf("c spans: got key %v value %v", c.Key.Span, c.Value.Span)
	}

	doc = MustParse("a.b 1\na.c 22")
	if got := doc.Get("a").Span; got != (Span{0, 12}) {
		t.Errorf("merged synthesized span: expected [0, 12], got %v", got)
	}

	doc = MustParse("x @t{a 1}")
	if got := doc.Get("x").Span; got != (Span{2, 9}) {
		t.Errorf("tag value span: expected [2, 9], got %v", got)
	}

	doc = MustParse("key")
	if got := doc.Get("key").Span; got != (Span{0, 3}) {
		t.Errorf("implicit unit span: expected [0, 3], got %v", got)
	}

	doc = MustParse("{a 1}")
	if got := doc.Entries[0].Key.Span; got != (Span{0, 0}) {
		t.Errorf("implicit unit key span: expected [0, 0], got %v", got)
	}

	doc = MustParse("x {a 1}")
	if got := doc.Get("x").Span; got != (Span{2, 7}) {
		t.Errorf("object span: expected [2, 7], got %v", got)
	}

	doc = MustParse("clé valeur")
	e := doc.Entries[0]
	if e.Key.Span != (Span{0, 4}) || e.Value.Span != (Span{5, 11}) {
		t.Errorf("multi-byte spans: got key %v value %v", e.Key.Span, e.Value.Span)
	}
	if doc.Span != (Span{0, 11}) {
		t.Errorf("document span: got %v", doc.Span)
	}
}

func TestParseScalarKinds(t *testing.T) {
	doc := MustParse("a bare\nb \"quoted\"\nc r\"raw\"\nd <<EOF,sh\necho\nEOF")
	tests := []struct {
		key  string
		kind ScalarKind
		text string
	}{
		{"a", ScalarBare, "bare"},
		{"b", ScalarQuoted, "quoted"},
		{"c", ScalarRaw, "raw"},
		{"d", ScalarHeredoc, "echo"},
	}
	for _, tt := range tests {
		v := doc.Get(tt.key)
		if v == nil || v.PayloadKind != PayloadScalar {
			t.Errorf("%s: expected scalar", tt.key)
			continue
		}
		if v.Scalar.Kind != tt.kind || v.Scalar.Text != tt.text {
			t.Errorf("%s: expected %s %q, got %s %q", tt.key, tt.kind, tt.text, v.Scalar.Kind, v.Scalar.Text)
		}
	}
	if lang := doc.Get("d").Scalar.Lang; lang != "sh" {
		t.Errorf("expected heredoc lang sh, got %q", lang)
	}
}

func TestParseDocComments(t *testing.T) {
	doc := MustParse("/// The host.\n/// Required.\nhost localhost\nport 80")
	if !reflect.DeepEqual(doc.Entries[0].Doc, []string{"The host.", "Required."}) {
		t.Errorf("unexpected doc: %q", doc.Entries[0].Doc)
	}
	if doc.Entries[1].Doc != nil {
		t.Errorf("expected no doc on port, got %q", doc.Entries[1].Doc)
	}

	doc = MustParse("server {\n  /// inner\n  port 80\n}")
	inner := doc.Get("server").Object.Entries[0]
	if !reflect.DeepEqual(inner.Doc, []string{"inner"}) {
		t.Errorf("unexpected inner doc: %q", inner.Doc)
	}

	// doc comments with no entry after them are dropped, not rejected
	for _, input := range []string{"a 1\n/// trailing\n", "x {\n  /// nothing follows\n}", "/// detached\n\nb 1"} {
		doc, err := Parse(input)
		if err != nil {
			t.Errorf("input %q: unexpected error: %v", input, err)
			continue
		}
		for _, e := range doc.Entries {
			if e.Doc != nil {
				t.Errorf("input %q: unexpected doc %q", input, e.Doc)
			}
		}
	}
}

func TestParseTagPayloads(t *testing.T) {
	doc := MustParse("a @t{x 1}\nb @t(1)\nc @t\"s\"\nd @t\ne @tr\"C:\\path\"\nf @tr#\"a\"#")
	tests := []struct {
		key  string
		kind PayloadKind
	}{
		{"a", PayloadObject},
		{"b", PayloadSequence},
		{"c", PayloadScalar},
		{"d", PayloadNone},
		{"e", PayloadScalar},
		{"f", PayloadScalar},
	}
	for _, tt := range tests {
		v := doc.Get(tt.key)
		if v.Tag == nil || v.Tag.Name != "t" {
			t.Errorf("%s: expected tag t", tt.key)
			continue
		}
		if v.PayloadKind != tt.kind {
			t.Errorf("%s: expected payload %s, got %s", tt.key, tt.kind, v.PayloadKind)
		}
		if v.IsUnit() {
			t.Errorf("%s: tagged value is never unit", tt.key)
		}
	}

	for key, text := range map[string]string{"e": `C:\path`, "f": "a"} {
		s := doc.Get(key).Scalar
		if s.Kind != ScalarRaw || s.Text != text {
			t.Errorf("%s: expected raw %q, got %s %q", key, text, s.Kind, s.Text)
		}
	}
}
