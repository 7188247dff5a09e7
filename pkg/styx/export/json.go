// Package export converts Styx documents into JSON and YAML.
//
// Both exporters keep entries in source order. Scalars are always strings;
// nothing is inferred from scalar text.
package export

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sambeau/styx/pkg/styx"
)

// JSON keys used for tagged values.
const (
	TagKey     = "$tag"
	PayloadKey = "$payload"
)

// JSON renders doc as a JSON object. A positive indent pretty-prints with
// that many spaces per level; zero produces compact output.
//
// Unit becomes null, a tagged value becomes {"$tag": name, "$payload": ...}
// (payload omitted for a bare tag) and a unit key becomes "@".
func JSON(doc *styx.Document, indent int) ([]byte, error) {
	w := &jsonWriter{}
	if indent > 0 {
		w.indent = strings.Repeat(" ", indent)
	}
	if err := w.writeEntries(doc.Entries); err != nil {
		return nil, err
	}
	if w.indent != "" {
		w.buf.WriteByte('\n')
	}
	return w.buf.Bytes(), nil
}

// ValueJSON renders a single value.
func ValueJSON(v *styx.Value, indent int) ([]byte, error) {
	w := &jsonWriter{}
	if indent > 0 {
		w.indent = strings.Repeat(" ", indent)
	}
	if err := w.writeValue(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type jsonWriter struct {
	buf    bytes.Buffer
	indent string
	depth  int
}

func (w *jsonWriter) newline() {
	if w.indent == "" {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(w.indent, w.depth))
}

func (w *jsonWriter) writeString(s string) error {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	w.buf.Write(bytes.TrimSuffix(b.Bytes(), []byte("\n")))
	return nil
}

func (w *jsonWriter) writeKey(key string) error {
	if err := w.writeString(key); err != nil {
		return err
	}
	w.buf.WriteByte(':')
	if w.indent != "" {
		w.buf.WriteByte(' ')
	}
	return nil
}

func (w *jsonWriter) writeEntries(entries []*styx.Entry) error {
	if len(entries) == 0 {
		w.buf.WriteString("{}")
		return nil
	}
	w.buf.WriteByte('{')
	w.depth++
	for i, e := range entries {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.newline()
		if err := w.writeKey(e.Key.KeyText()); err != nil {
			return err
		}
		if err := w.writeValue(e.Value); err != nil {
			return err
		}
	}
	w.depth--
	w.newline()
	w.buf.WriteByte('}')
	return nil
}

func (w *jsonWriter) writeValue(v *styx.Value) error {
	if v.Tag != nil {
		w.buf.WriteByte('{')
		w.depth++
		w.newline()
		if err := w.writeKey(TagKey); err != nil {
			return err
		}
		if err := w.writeString(v.Tag.Name); err != nil {
			return err
		}
		if v.PayloadKind != styx.PayloadNone {
			w.buf.WriteByte(',')
			w.newline()
			if err := w.writeKey(PayloadKey); err != nil {
				return err
			}
			if err := w.writePayload(v); err != nil {
				return err
			}
		}
		w.depth--
		w.newline()
		w.buf.WriteByte('}')
		return nil
	}
	return w.writePayload(v)
}

func (w *jsonWriter) writePayload(v *styx.Value) error {
	switch v.PayloadKind {
	case styx.PayloadScalar:
		return w.writeString(v.Scalar.Text)
	case styx.PayloadSequence:
		items := v.Sequence.Items
		if len(items) == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.buf.WriteByte('[')
		w.depth++
		for i, item := range items {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline()
			if err := w.writeValue(item); err != nil {
				return err
			}
		}
		w.depth--
		w.newline()
		w.buf.WriteByte(']')
		return nil
	case styx.PayloadObject:
		return w.writeEntries(v.Object.Entries)
	default:
		w.buf.WriteString("null")
		return nil
	}
}
