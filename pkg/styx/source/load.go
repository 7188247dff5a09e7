// Package source loads Styx documents from files.
//
// It turns raw file bytes into the UTF-8 text the parser expects (stripping
// byte order marks, decoding UTF-16 and transparently decompressing gzip or
// zstd files), parses them and attaches file, line and column information
// to any parse error. A Watcher re-parses a file whenever it changes.
package source

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sambeau/styx/pkg/styx"
	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// MaxDecompressedSize bounds the size of a decompressed document.
const MaxDecompressedSize = 64 << 20

// ErrInvalidUTF8 is returned when a document without a UTF-16 byte order
// mark is not valid UTF-8.
var ErrInvalidUTF8 = stderrors.New("source is not valid UTF-8")

// ErrTooLarge is returned when a compressed document expands past
// MaxDecompressedSize.
var ErrTooLarge = stderrors.New("decompressed source is too large")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Options configures loading.
type Options struct {
	MaxDepth int // passed to the parser; styx.DefaultMaxDepth if zero
}

// File is a loaded document.
type File struct {
	Path     string
	Source   string         // decoded UTF-8 text
	Document *styx.Document // nil if the source failed to parse
	Digest   [32]byte       // BLAKE2b-256 of the raw file bytes
}

// Decode converts raw file bytes into UTF-8 source text. Compressed input
// is recognized by its magic number; name is only used in error messages.
func Decode(data []byte, name string) (string, error) {
	data, err := decompress(data)
	if err != nil {
		return "", fmt.Errorf("decompressing %s: %w", name, err)
	}

	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return "", fmt.Errorf("decoding %s: %w", name, ErrInvalidUTF8)
	}

	// BOMOverride strips a UTF-8 BOM and decodes UTF-16 when a UTF-16 BOM
	// is present; other input passes through the UTF-8 decoder unchanged.
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return string(out), nil
}

func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readLimited(r)
	case bytes.HasPrefix(data, zstdMagic):
		d, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
		if err != nil {
			return nil, err
		}
		defer d.Close()
		out, err := d.DecodeAll(data, nil)
		if err != nil {
			return nil, err
		}
		if len(out) > MaxDecompressedSize {
			return nil, ErrTooLarge
		}
		return out, nil
	default:
		return data, nil
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xfe, 0xff}) || bytes.HasPrefix(data, []byte{0xff, 0xfe})
}

// Load reads, decodes and parses the file at path.
//
// I/O and decoding failures return a nil File and a wrapped error. A parse
// failure returns the File (with a nil Document) together with a
// *errors.StyxError that carries the file path, line and column.
func Load(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return LoadBytes(path, data, opts)
}

// LoadBytes is Load for data that has already been read.
func LoadBytes(path string, data []byte, opts Options) (*File, error) {
	src, err := Decode(data, path)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:   path,
		Source: src,
		Digest: blake2b.Sum256(data),
	}

	doc, err := styx.ParseWithOptions(src, styx.Options{MaxDepth: opts.MaxDepth})
	if err != nil {
		return f, Locate(err, path, src)
	}
	f.Document = doc
	return f, nil
}

// ParseFile loads path with default options and returns its document.
func ParseFile(path string) (*styx.Document, error) {
	f, err := Load(path, Options{})
	if err != nil {
		return nil, err
	}
	return f.Document, nil
}

// Locate attaches the file name and line/column position to a parse error.
// Other errors are returned unchanged.
func Locate(err error, path, src string) error {
	var se *perrors.StyxError
	if !stderrors.As(err, &se) {
		return err
	}
	return se.WithSource(src).WithFile(path)
}

// IsSyntaxError reports whether err is a parse error rather than an I/O or
// decoding failure.
func IsSyntaxError(err error) bool {
	_, ok := perrors.KindOf(err)
	return ok
}
