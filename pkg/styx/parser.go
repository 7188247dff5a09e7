package styx

import (
	"strings"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// Parser parses Styx source into a Document. A Parser is single use.
type Parser struct {
	l     *Lexer
	input string

	curToken  Token
	peekToken Token
	peekErr   error
	hasPeek   bool

	depth      int  // current nesting depth
	MaxDepth   int  // maximum nesting depth, DefaultMaxDepth if zero
	inSequence bool // attribute chains are not allowed directly in sequences

	// objects synthesized by dotted keys, with the value wrapping each
	synthesized map[*Object]*Value
}

// NewParser creates a new Styx parser
func NewParser(input string) *Parser {
	return &Parser{
		l:           NewLexer(input),
		input:       input,
		MaxDepth:    DefaultMaxDepth,
		synthesized: make(map[*Object]*Value),
	}
}

// nextToken advances to the next token
func (p *Parser) nextToken() error {
	if p.hasPeek {
		p.hasPeek = false
		if p.peekErr != nil {
			return p.peekErr
		}
		p.curToken = p.peekToken
		return nil
	}
	tok, err := p.l.NextToken()
	if err != nil {
		return err
	}
	p.curToken = tok
	return nil
}

// peek returns the token after the current one without consuming it.
func (p *Parser) peek() (Token, error) {
	if !p.hasPeek {
		p.peekToken, p.peekErr = p.l.NextToken()
		p.hasPeek = true
	}
	return p.peekToken, p.peekErr
}

func (p *Parser) errorAt(kind perrors.Kind, span Span, data map[string]any) error {
	return perrors.New(kind, span.Start, span.End, data)
}

func (p *Parser) unexpected(tok Token) error {
	return p.errorAt(perrors.UnexpectedToken, tok.Span, map[string]any{"Token": tok.describe()})
}

// Parse parses the whole input as the entries of the implicit root object.
func (p *Parser) Parse() (*Document, error) {
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	root := &Object{}
	paths := newPathState()
	sawEntry := false

	for {
		sawComma := false
		for p.curToken.Type == COMMA {
			sawComma = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		if p.curToken.Type == EOF {
			break
		}
		if sawEntry && !sawComma && !p.curToken.NewlineBefore {
			return nil, p.unexpected(p.curToken)
		}
		if err := p.parseEntry(root, paths); err != nil {
			return nil, err
		}
		sawEntry = true
	}

	return &Document{
		Entries: root.Entries,
		Span:    Span{0, len(p.input)},
	}, nil
}

// parseValue parses any Styx value
func (p *Parser) parseValue() (*Value, error) {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > p.MaxDepth {
		return nil, p.errorAt(perrors.NestingTooDeep, p.curToken.Span, map[string]any{"Max": p.MaxDepth})
	}

	switch p.curToken.Type {
	case AT:
		return p.parseUnit()
	case TAG:
		return p.parseTagValue()
	case LBRACE:
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		return objectValue(obj), nil
	case LPAREN:
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		return sequenceValue(seq), nil
	case SCALAR:
		next, err := p.peek()
		if err == nil && next.Type == GT && !next.WhitespaceBefore {
			if p.inSequence {
				return nil, p.errorAt(perrors.UnexpectedToken, next.Span, map[string]any{
					"Token": "`>` (attribute chains are not allowed in sequences)",
				})
			}
			return p.parseAttributeChain()
		}
		return p.parseScalar()
	case QUOTED, RAW, HEREDOC:
		return p.parseScalar()
	default:
		return nil, p.unexpected(p.curToken)
	}
}

func (p *Parser) parseScalar() (*Value, error) {
	tok := p.curToken
	kind := ScalarBare
	switch tok.Type {
	case QUOTED:
		kind = ScalarQuoted
	case RAW:
		kind = ScalarRaw
	case HEREDOC:
		kind = ScalarHeredoc
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return scalarValue(&Scalar{Text: tok.Text, Kind: kind, Lang: tok.Lang, Span: tok.Span}), nil
}

// parseUnit parses a bare @. Anything glued to it other than a closing or
// opening delimiter would read as a malformed tag name.
func (p *Parser) parseUnit() (*Value, error) {
	at := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.checkAfterAt(at.Span); err != nil {
		return nil, err
	}
	return &Value{Span: at.Span}, nil
}

func (p *Parser) checkAfterAt(start Span) error {
	if p.curToken.WhitespaceBefore {
		return nil
	}
	switch p.curToken.Type {
	case EOF, RBRACE, RPAREN, COMMA, LBRACE, LPAREN:
		return nil
	}
	return p.errorAt(perrors.InvalidTagName, Span{start.Start, p.curToken.Span.End}, nil)
}

// parseTagValue parses @name and an adjacent payload, if any.
func (p *Parser) parseTagValue() (*Value, error) {
	tagTok := p.curToken
	v := &Value{
		Tag:  &Tag{Name: tagTok.Text, Span: tagTok.Span},
		Span: tagTok.Span,
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.WhitespaceBefore {
		return v, nil
	}

	switch p.curToken.Type {
	case LBRACE:
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		v.PayloadKind, v.Object = PayloadObject, obj
		v.Span.End = obj.Span.End
	case LPAREN:
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		v.PayloadKind, v.Sequence = PayloadSequence, seq
		v.Span.End = seq.Span.End
	case QUOTED, RAW, HEREDOC:
		payload, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		v.PayloadKind, v.Scalar = PayloadScalar, payload.Scalar
		v.Span.End = payload.Span.End
	case AT:
		at := p.curToken
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.checkAfterAt(tagTok.Span); err != nil {
			return nil, err
		}
		v.Span.End = at.Span.End
	case SCALAR, TAG:
		return nil, p.errorAt(perrors.InvalidTagName, Span{tagTok.Span.Start + 1, p.curToken.Span.End}, nil)
	}
	return v, nil
}

// parseObject parses {...}. The first separator between entries fixes the
// object's separator mode.
func (p *Parser) parseObject() (*Object, error) {
	open := p.curToken.Span
	obj := &Object{Span: open}
	paths := newPathState()

	saved := p.inSequence
	p.inSequence = false
	defer func() { p.inSequence = saved }()

	if err := p.nextToken(); err != nil {
		return nil, err
	}

	sawEntry := false
	for {
		sawComma := false
		var comma Token
		for p.curToken.Type == COMMA {
			if !sawComma {
				comma = p.curToken
			}
			sawComma = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}

		switch p.curToken.Type {
		case EOF:
			return nil, p.errorAt(perrors.UnclosedObject, open, nil)
		case RBRACE:
			obj.Span.End = p.curToken.Span.End
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return obj, nil
		}

		if sawEntry {
			var sep Separator
			var at Span
			switch {
			case sawComma:
				sep, at = SeparatorComma, comma.Span
			case p.curToken.NewlineBefore:
				sep, at = SeparatorNewline, p.curToken.Span
			default:
				return nil, p.unexpected(p.curToken)
			}
			if obj.Separator == SeparatorNone {
				obj.Separator = sep
			} else if obj.Separator != sep {
				return nil, p.errorAt(perrors.MixedSeparators, at, nil)
			}
		}

		if err := p.parseEntry(obj, paths); err != nil {
			return nil, err
		}
		sawEntry = true
	}
}

// parseSequence parses (...). Items are separated by whitespace only.
func (p *Parser) parseSequence() (*Sequence, error) {
	open := p.curToken.Span
	seq := &Sequence{Span: open}

	saved := p.inSequence
	p.inSequence = true
	defer func() { p.inSequence = saved }()

	if err := p.nextToken(); err != nil {
		return nil, err
	}

	for {
		switch p.curToken.Type {
		case EOF:
			return nil, p.errorAt(perrors.UnclosedSequence, open, nil)
		case RPAREN:
			seq.Span.End = p.curToken.Span.End
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return seq, nil
		case COMMA:
			return nil, p.errorAt(perrors.SequenceComma, p.curToken.Span, nil)
		}

		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		seq.Items = append(seq.Items, item)
	}
}

// parseAttributeChain parses key>value pairs on one line into an object in
// comma mode. The current token is the first key.
func (p *Parser) parseAttributeChain() (*Value, error) {
	obj := &Object{Separator: SeparatorComma, Span: p.curToken.Span}
	paths := newPathState()

	for {
		keyTok := p.curToken
		if err := p.nextToken(); err != nil { // key
			return nil, err
		}
		gt := p.curToken
		if err := p.nextToken(); err != nil { // >
			return nil, err
		}

		if p.curToken.WhitespaceBefore {
			return nil, p.errorAt(perrors.AttributeMissingValue, gt.Span, nil)
		}
		switch p.curToken.Type {
		case EOF, RBRACE, RPAREN, COMMA:
			return nil, p.errorAt(perrors.AttributeMissingValue, gt.Span, nil)
		}

		var val *Value
		var err error
		if p.curToken.Type == SCALAR {
			// a>b>c does not nest: b is a plain scalar
			val, err = p.parseScalar()
		} else {
			val, err = p.parseValue()
		}
		if err != nil {
			return nil, err
		}

		if err := paths.checkAndUpdate([]string{keyTok.Text}, keyTok.Span, kindOf(val)); err != nil {
			return nil, err
		}
		key := scalarValue(&Scalar{Text: keyTok.Text, Kind: ScalarBare, Span: keyTok.Span})
		obj.Entries = append(obj.Entries, &Entry{Key: key, Value: val, Doc: keyTok.Doc})
		obj.Span.End = val.Span.End

		if p.curToken.Type != SCALAR || p.curToken.NewlineBefore {
			break
		}
		next, err := p.peek()
		if err != nil || next.Type != GT || next.WhitespaceBefore {
			break
		}
	}

	return objectValue(obj), nil
}

// keySegment is one segment of a (possibly dotted) key.
type keySegment struct {
	text string
	span Span
}

// parseEntry parses one key and its value and inserts the entry into obj.
func (p *Parser) parseEntry(obj *Object, paths *pathState) error {
	doc := p.curToken.Doc

	key, err := p.parseValue()
	if err != nil {
		return err
	}

	if key.PayloadKind == PayloadObject {
		// An object in key position is the value of an implicit unit key.
		value := key
		unitKey := &Value{Span: Span{value.Span.Start, value.Span.Start}}
		if !p.endsValue() {
			if _, err := p.parseValue(); err != nil {
				return err
			}
		}
		if err := paths.checkAndUpdate([]string{"@"}, unitKey.Span, pathObject); err != nil {
			return err
		}
		return p.insertEntry(obj, []keySegment{{text: "@", span: unitKey.Span}}, []*Value{unitKey}, value, doc)
	}

	segments, keys, err := p.keySegments(key)
	if err != nil {
		return err
	}

	var value *Value
	if p.endsValue() {
		value = &Value{Span: key.Span}
	} else {
		value, err = p.parseValue()
		if err != nil {
			return err
		}
	}

	path := make([]string, len(segments))
	for i, s := range segments {
		path[i] = s.text
	}
	if err := paths.checkAndUpdate(path, key.Span, kindOf(value)); err != nil {
		return err
	}
	return p.insertEntry(obj, segments, keys, value, doc)
}

// endsValue reports whether the current token cannot start a value that
// belongs to the preceding key.
func (p *Parser) endsValue() bool {
	switch p.curToken.Type {
	case EOF, RBRACE, COMMA:
		return true
	}
	return p.curToken.NewlineBefore
}

// keySegments validates a key and splits dotted bare keys into segments,
// returning each segment with the key value that represents it.
func (p *Parser) keySegments(key *Value) ([]keySegment, []*Value, error) {
	if key.PayloadKind == PayloadSequence {
		return nil, nil, p.errorAt(perrors.InvalidKey, key.Span, map[string]any{
			"Reason": "a sequence cannot be a key",
		})
	}
	if key.PayloadKind == PayloadScalar && key.Scalar.Kind == ScalarHeredoc {
		return nil, nil, p.errorAt(perrors.InvalidKey, key.Span, map[string]any{
			"Reason": "a heredoc cannot be a key",
		})
	}

	if key.Tag != nil || key.PayloadKind != PayloadScalar || key.Scalar.Kind != ScalarBare ||
		!strings.Contains(key.Scalar.Text, ".") {
		return []keySegment{{text: key.KeyText(), span: key.Span}}, []*Value{key}, nil
	}

	text := key.Scalar.Text
	start := key.Span.Start
	parts := strings.Split(text, ".")
	segments := make([]keySegment, 0, len(parts))
	keys := make([]*Value, 0, len(parts))
	offset := 0
	for _, part := range parts {
		span := Span{start + offset, start + offset + len(part)}
		if part == "" {
			return nil, nil, p.errorAt(perrors.InvalidKey, key.Span, map[string]any{
				"Reason": "empty segment in dotted key `" + text + "`",
			})
		}
		segments = append(segments, keySegment{text: part, span: span})
		keys = append(keys, scalarValue(&Scalar{Text: part, Kind: ScalarBare, Span: span}))
		offset += len(part) + 1
	}
	return segments, keys, nil
}

// insertEntry places value under the key path in obj, merging into objects
// that already exist in the same scope and synthesizing the rest.
func (p *Parser) insertEntry(obj *Object, segments []keySegment, keys []*Value, value *Value, doc []string) error {
	target := obj
	last := len(segments) - 1

	for i := 0; i < last; i++ {
		seg := segments[i]
		if existing := findEntry(target, seg.text); existing != nil {
			if existing.Value.PayloadKind != PayloadObject {
				return p.errorAt(perrors.NestIntoTerminal, keySpan(segments), map[string]any{
					"Path": joinSegments(segments[:i+1]),
				})
			}
			target = existing.Value.Object
			p.extend(target, value.Span.End)
			continue
		}

		child := &Object{
			Separator: SeparatorNewline,
			Span:      Span{seg.span.Start, value.Span.End},
		}
		wrapper := objectValue(child)
		p.synthesized[child] = wrapper
		target.Entries = append(target.Entries, &Entry{Key: keys[i], Value: wrapper})
		target = child
	}

	if findEntry(target, segments[last].text) != nil {
		return p.errorAt(perrors.DuplicateKey, keySpan(segments), map[string]any{
			"Path": joinSegments(segments),
		})
	}
	target.Entries = append(target.Entries, &Entry{Key: keys[last], Value: value, Doc: doc})
	return nil
}

// extend grows a synthesized object (and its wrapping value) to end.
func (p *Parser) extend(obj *Object, end int) {
	wrapper, ok := p.synthesized[obj]
	if !ok {
		return
	}
	if end > obj.Span.End {
		obj.Span.End = end
		wrapper.Span.End = end
	}
}

func findEntry(obj *Object, text string) *Entry {
	for _, e := range obj.Entries {
		if e.Key.KeyText() == text {
			return e
		}
	}
	return nil
}

func keySpan(segments []keySegment) Span {
	return Span{segments[0].span.Start, segments[len(segments)-1].span.End}
}

func joinSegments(segments []keySegment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.text
	}
	return strings.Join(parts, ".")
}

func kindOf(v *Value) pathKind {
	if v.PayloadKind == PayloadObject {
		return pathObject
	}
	return pathTerminal
}
