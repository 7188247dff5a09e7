package styx

import (
	"fmt"
	"strings"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// TokenType represents different types of Styx tokens
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Scalars
	SCALAR  // hello, 42, https://example.com
	QUOTED  // "hello\nworld"
	RAW     // r#"C:\path"#
	HEREDOC // <<EOF ... EOF

	// Tags
	AT  // @ (unit)
	TAG // @name

	// Delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	COMMA  // ,
	GT     // >
)

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case SCALAR:
		return "SCALAR"
	case QUOTED:
		return "QUOTED"
	case RAW:
		return "RAW"
	case HEREDOC:
		return "HEREDOC"
	case AT:
		return "AT"
	case TAG:
		return "TAG"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case COMMA:
		return "COMMA"
	case GT:
		return "GT"
	default:
		return fmt.Sprintf("TokenType(%d)", t)
	}
}

// IsScalar reports whether the token type is one of the four scalar forms.
func (t TokenType) IsScalar() bool {
	return t == SCALAR || t == QUOTED || t == RAW || t == HEREDOC
}

// Token is a single lexical unit. Text holds the decoded content for scalars
// and the bare name (without @) for tags.
type Token struct {
	Type TokenType
	Text string
	Lang string // heredoc language hint
	Span Span

	WhitespaceBefore bool     // any whitespace, newline or comment precedes the token
	NewlineBefore    bool     // a newline precedes the token
	Doc              []string // /// comment lines directly above the token
}

func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case SCALAR:
		return fmt.Sprintf("scalar `%s`", t.Text)
	case QUOTED, RAW:
		return "quoted scalar"
	case HEREDOC:
		return "heredoc"
	case AT:
		return "`@`"
	case TAG:
		return fmt.Sprintf("tag `@%s`", t.Text)
	case LBRACE:
		return "`{`"
	case RBRACE:
		return "`}`"
	case LPAREN:
		return "`(`"
	case RPAREN:
		return "`)`"
	case COMMA:
		return "`,`"
	case GT:
		return "`>`"
	default:
		return t.Type.String()
	}
}

// Lexer tokenizes Styx source. It works on bytes: every structural character
// is ASCII, so multi-byte UTF-8 sequences pass through scalars untouched and
// spans are byte offsets.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

// NewLexer creates a new Styx lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
}

// seek moves the lexer so that pos is the current character.
func (l *Lexer) seek(pos int) {
	l.readPosition = pos
	l.readChar()
}

func (l *Lexer) peekChar() byte {
	return l.peekAhead(1)
}

func (l *Lexer) peekAhead(n int) byte {
	i := l.position + n
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// NextToken returns the next token. Lexical errors are *errors.StyxError
// values with offsets into the lexer's input.
func (l *Lexer) NextToken() (Token, error) {
	tok := l.skipTrivia()
	start := l.position

	if l.atEOF() {
		tok.Type = EOF
		tok.Span = Span{start, start}
		return tok, nil
	}

	switch l.ch {
	case '{':
		return l.single(tok, LBRACE), nil
	case '}':
		return l.single(tok, RBRACE), nil
	case '(':
		return l.single(tok, LPAREN), nil
	case ')':
		return l.single(tok, RPAREN), nil
	case ',':
		return l.single(tok, COMMA), nil
	case '>':
		return l.single(tok, GT), nil
	case '@':
		l.readChar()
		if l.atEOF() || !isTagStart(l.ch) {
			tok.Type = AT
			tok.Text = "@"
			tok.Span = Span{start, l.position}
			return tok, nil
		}
		l.readChar()
		// r" or r# after the first name character opens a raw payload
		for !l.atEOF() && isTagChar(l.ch) {
			if l.ch == 'r' && (l.peekChar() == '"' || l.peekChar() == '#') {
				break
			}
			l.readChar()
		}
		tok.Type = TAG
		tok.Text = l.input[start+1 : l.position]
		tok.Span = Span{start, l.position}
		return tok, nil
	case '"':
		return l.readQuoted(tok)
	case 'r':
		if hashes, ok := rawOpenerHashes(l.input, start); ok {
			return l.readRaw(tok, hashes)
		}
	case '<':
		if l.peekChar() == '<' && isUpper(l.peekAhead(2)) {
			return l.readHeredoc(tok)
		}
	}

	return l.readBare(tok), nil
}

func (l *Lexer) single(tok Token, t TokenType) Token {
	tok.Type = t
	tok.Text = string(l.ch)
	tok.Span = Span{l.position, l.position + 1}
	l.readChar()
	return tok
}

// skipTrivia consumes whitespace and comments and returns a token
// pre-filled with the trivia flags and any pending doc comment.
func (l *Lexer) skipTrivia() Token {
	var tok Token
	newlinesSinceDoc := 0

	for !l.atEOF() {
		switch l.ch {
		case ' ', '\t', '\r':
			tok.WhitespaceBefore = true
			l.readChar()
		case '\n':
			tok.WhitespaceBefore = true
			tok.NewlineBefore = true
			newlinesSinceDoc++
			if newlinesSinceDoc >= 2 {
				tok.Doc = nil
			}
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return tok
			}
			tok.WhitespaceBefore = true
			start := l.position
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
			line := l.input[start:l.position]
			if strings.HasPrefix(line, "///") {
				text := strings.TrimSuffix(line[3:], "\r")
				text = strings.TrimPrefix(text, " ")
				tok.Doc = append(tok.Doc, text)
				newlinesSinceDoc = 0
			}
		default:
			return tok
		}
	}
	return tok
}

func (l *Lexer) readBare(tok Token) Token {
	start := l.position
	for !l.atEOF() && !isBareTerminator(l.ch) {
		l.readChar()
	}
	tok.Type = SCALAR
	tok.Text = l.input[start:l.position]
	tok.Span = Span{start, l.position}
	return tok
}

func (l *Lexer) readQuoted(tok Token) (Token, error) {
	start := l.position
	l.readChar() // opening quote
	bodyStart := l.position

	for {
		if l.atEOF() || l.ch == '\n' || l.ch == '\r' {
			return tok, perrors.New(perrors.UnterminatedString, start, l.position, map[string]any{
				"What": "string",
			})
		}
		switch l.ch {
		case '"':
			body := l.input[bodyStart:l.position]
			l.readChar()
			text, err := Unescape(body)
			if err != nil {
				if se, ok := err.(*perrors.StyxError); ok {
					return tok, se.Shift(bodyStart)
				}
				return tok, err
			}
			tok.Type = QUOTED
			tok.Text = text
			tok.Span = Span{start, l.position}
			return tok, nil
		case '\\':
			l.readChar()
			if !l.atEOF() && l.ch != '\n' && l.ch != '\r' {
				l.readChar()
			}
		default:
			l.readChar()
		}
	}
}

func (l *Lexer) readRaw(tok Token, hashes int) (Token, error) {
	start := l.position
	bodyStart := start + 1 + hashes + 1 // r, hashes, quote
	bodyEnd, end, ok := matchRawClose(l.input, bodyStart, hashes)
	if !ok {
		l.seek(len(l.input))
		return tok, perrors.New(perrors.UnterminatedString, start, len(l.input), map[string]any{
			"What": "raw string",
		})
	}
	l.seek(end)
	tok.Type = RAW
	tok.Text = l.input[bodyStart:bodyEnd]
	tok.Span = Span{start, end}
	return tok, nil
}

func (l *Lexer) readHeredoc(tok Token) (Token, error) {
	start := l.position
	src := l.input

	i := start + 2
	for i < len(src) && isDelimChar(src[i]) {
		i++
	}
	delim := src[start+2 : i]
	if len(delim) > MaxHeredocDelimiter {
		l.seek(i)
		return tok, perrors.New(perrors.HeredocDelimiterTooLong, start, i, map[string]any{
			"Delimiter": delim,
			"Max":       MaxHeredocDelimiter,
		})
	}

	if i < len(src) && src[i] == ',' {
		j := i + 1
		if j >= len(src) || !isLower(src[j]) {
			l.seek(i)
			return tok, perrors.New(perrors.UnexpectedToken, i, i+1, map[string]any{
				"Token": "`,` after heredoc delimiter (expected a language hint)",
			})
		}
		for j < len(src) && isLangChar(src[j]) {
			j++
		}
		tok.Lang = src[i+1 : j]
		i = j
	}

	switch {
	case i >= len(src):
		l.seek(i)
		return tok, perrors.New(perrors.UnterminatedHeredoc, i, i, map[string]any{
			"Delimiter": delim,
		})
	case src[i] == '\n':
		i++
	case src[i] == '\r' && i+1 < len(src) && src[i+1] == '\n':
		i += 2
	default:
		l.seek(i)
		return tok, perrors.New(perrors.UnexpectedToken, i, i+1, map[string]any{
			"Token": fmt.Sprintf("%q after heredoc delimiter", src[i]),
		})
	}

	contentStart := i
	lineStart := contentStart
	for lineStart < len(src) {
		lineEnd := len(src)
		if nl := strings.IndexByte(src[lineStart:], '\n'); nl >= 0 {
			lineEnd = lineStart + nl
		}
		line := src[lineStart:lineEnd]

		if strings.TrimRight(strings.TrimLeft(line, " \t"), " \t\r") == delim {
			indent := leadingIndent(line)

			contentEnd := contentStart
			if lineStart > contentStart {
				contentEnd = lineStart - 1 // drop the newline before the closer
				if contentEnd > contentStart && src[contentEnd-1] == '\r' {
					contentEnd--
				}
			}
			raw := src[contentStart:contentEnd]

			if s, e, found := shallowHeredocLine(raw, indent); found {
				l.seek(lineStart)
				return tok, perrors.New(perrors.HeredocIndentTooShallow, contentStart+s, contentStart+e, map[string]any{
					"Indent": indent,
				})
			}

			end := lineStart + indent + len(delim)
			l.seek(end)
			tok.Type = HEREDOC
			tok.Text = DedentHeredoc(raw, indent)
			tok.Span = Span{start, end}
			return tok, nil
		}

		if lineEnd == len(src) {
			break
		}
		lineStart = lineEnd + 1
	}

	l.seek(len(src))
	return tok, perrors.New(perrors.UnterminatedHeredoc, contentStart, len(src), map[string]any{
		"Delimiter": delim,
	})
}

func isBareTerminator(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '{', '}', '(', ')', ',', '"', '>':
		return true
	}
	return false
}

func isTagStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isTagChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '-'
}

func isDelimChar(ch byte) bool {
	return isUpper(ch) || isDigit(ch) || ch == '_'
}

func isLangChar(ch byte) bool {
	return isLower(ch) || isDigit(ch) || ch == '_' || ch == '.' || ch == '-'
}

func isLetter(ch byte) bool {
	return isUpper(ch) || isLower(ch)
}

func isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func isLower(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
