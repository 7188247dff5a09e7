package export

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/styx/pkg/styx"
)

// YAML renders doc as a YAML document with the given indent (2 if zero).
//
// Objects become mappings in source order, Styx tags become local tags
// (!name), heredocs use literal block style, quoted and raw scalars are
// double-quoted and unit is null.
func YAML(doc *styx.Document, indent int) ([]byte, error) {
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(Node(doc)); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Node converts doc into a yaml.v3 document node.
func Node(doc *styx.Document) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{entriesNode(doc.Entries)},
	}
}

// ValueNode converts a single value into a yaml.v3 node.
func ValueNode(v *styx.Value) *yaml.Node {
	var n *yaml.Node
	switch v.PayloadKind {
	case styx.PayloadScalar:
		n = scalarNode(v.Scalar)
	case styx.PayloadSequence:
		n = &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.Sequence.Items {
			n.Content = append(n.Content, ValueNode(item))
		}
	case styx.PayloadObject:
		n = entriesNode(v.Object.Entries)
	default:
		if v.Tag != nil {
			n = &yaml.Node{Kind: yaml.ScalarNode, Value: ""}
		} else {
			n = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
	}
	if v.Tag != nil {
		n.Tag = "!" + v.Tag.Name
	}
	return n
}

func entriesNode(entries []*styx.Entry) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key.KeyText()}
		value := ValueNode(e.Value)
		if len(e.Doc) > 0 {
			key.HeadComment = docComment(e.Doc)
		}
		n.Content = append(n.Content, key, value)
	}
	return n
}

func docComment(lines []string) string {
	var buf bytes.Buffer
	for i, line := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString("# ")
		buf.WriteString(line)
	}
	return buf.String()
}

func scalarNode(s *styx.Scalar) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Text}
	switch s.Kind {
	case styx.ScalarHeredoc:
		n.Style = yaml.LiteralStyle
	case styx.ScalarQuoted, styx.ScalarRaw:
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}
