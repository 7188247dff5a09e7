package styx

import (
	"strconv"
	"strings"
	"unicode/utf8"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// MaxHeredocDelimiter is the longest allowed heredoc delimiter.
const MaxHeredocDelimiter = 16

// Unescape decodes the body of a quoted scalar (the text between the quotes).
// Recognized escapes are \\ \" \n \r \t \0 \uXXXX and \u{X...}; anything else
// is an InvalidEscapeSequence error whose offsets are relative to text.
func Unescape(text string) (string, error) {
	if strings.IndexByte(text, '\\') < 0 {
		return text, nil
	}

	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]
		if c != '\\' {
			sb.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(text) {
			return "", invalidEscape(text, i, len(text))
		}
		switch text[i+1] {
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '0':
			sb.WriteByte(0)
		case 'u':
			r, n, ok := decodeUnicodeEscape(text[i+2:])
			if !ok {
				return "", invalidEscape(text, i, i+2+n)
			}
			sb.WriteRune(r)
			i += 2 + n
			continue
		default:
			_, size := utf8.DecodeRuneInString(text[i+1:])
			return "", invalidEscape(text, i, i+1+size)
		}
		i += 2
	}

	return sb.String(), nil
}

func invalidEscape(text string, start, end int) error {
	return perrors.New(perrors.InvalidEscapeSequence, start, end, map[string]any{
		"Escape": text[start:end],
	})
}

// decodeUnicodeEscape decodes what follows `\u`: either exactly four hex
// digits or 1-6 hex digits in braces. It returns the rune, the number of
// bytes examined and whether the escape was well formed.
func decodeUnicodeEscape(s string) (rune, int, bool) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			n := 1
			for n < len(s) && n <= 7 && isHexDigit(s[n]) {
				n++
			}
			return 0, n, false
		}
		digits := s[1:end]
		if len(digits) == 0 || len(digits) > 6 || !allHex(digits) {
			return 0, end + 1, false
		}
		r, ok := hexRune(digits)
		return r, end + 1, ok
	}

	n := 0
	for n < len(s) && n < 4 && isHexDigit(s[n]) {
		n++
	}
	if n < 4 {
		return 0, n, false
	}
	r, ok := hexRune(s[:4])
	return r, 4, ok
}

func hexRune(digits string) (rune, bool) {
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, false
	}
	r := rune(v)
	return r, utf8.ValidRune(r)
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// DedentHeredoc strips up to indentLen leading spaces or tabs from every line
// of content.
func DedentHeredoc(content string, indentLen int) string {
	if indentLen <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		stripped := 0
		for stripped < indentLen && stripped < len(line) && isIndentChar(line[stripped]) {
			stripped++
		}
		lines[i] = line[stripped:]
	}
	return strings.Join(lines, "\n")
}

// shallowHeredocLine returns the byte range (relative to content) of the
// first non-blank line indented less than indentLen.
func shallowHeredocLine(content string, indentLen int) (start, end int, found bool) {
	if indentLen <= 0 {
		return 0, 0, false
	}
	offset := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" && leadingIndent(line) < indentLen {
			return offset, offset + len(line), true
		}
		offset += len(line) + 1
	}
	return 0, 0, false
}

func leadingIndent(line string) int {
	n := 0
	for n < len(line) && isIndentChar(line[n]) {
		n++
	}
	return n
}

func isIndentChar(ch byte) bool {
	return ch == ' ' || ch == '\t'
}

// matchRawClose finds the closing `"` followed by exactly hashes `#` marks,
// searching from offset from. It returns the offset of the closing quote
// (the end of the body) and the offset just past the closing run.
func matchRawClose(src string, from, hashes int) (bodyEnd, end int, ok bool) {
	closing := `"` + strings.Repeat("#", hashes)
	idx := strings.Index(src[from:], closing)
	if idx < 0 {
		return 0, 0, false
	}
	bodyEnd = from + idx
	return bodyEnd, bodyEnd + len(closing), true
}

// rawOpenerHashes reports whether src[at:] opens a raw scalar (r, #*, ")
// and if so how many hash marks it uses.
func rawOpenerHashes(src string, at int) (int, bool) {
	if at >= len(src) || src[at] != 'r' {
		return 0, false
	}
	i := at + 1
	for i < len(src) && src[i] == '#' {
		i++
	}
	if i < len(src) && src[i] == '"' {
		return i - at - 1, true
	}
	return 0, false
}
