package styx

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"",
		"a 1",
		"server {host localhost, port 8080}",
		"a.b.c 1",
		"x @tag(1 2)",
		"  script <<EOF\n    hi\n    EOF",
	}
	for _, input := range valid {
		if err := Validate(input); err != nil {
			t.Errorf("Validate(%q): unexpected error: %v", input, err)
		}
		if !IsValid(input) {
			t.Errorf("IsValid(%q) = false", input)
		}
	}

	invalid := []string{
		"x {a 1",
		"(1, 2)",
		"a 1\na 2",
		`"unterminated`,
	}
	for _, input := range invalid {
		if IsValid(input) {
			t.Errorf("IsValid(%q) = true", input)
		}
	}
}

func TestHeredocDedentDocument(t *testing.T) {
	doc := MustParse("  script <<EOF\n    hi\n    EOF")
	v := doc.Get("script")
	if v == nil {
		t.Fatal("expected script entry")
	}
	if text, _ := v.Text(); text != "hi" {
		t.Errorf("expected %q, got %q", "hi", text)
	}
}

func TestParseBytes(t *testing.T) {
	doc, err := ParseBytes([]byte("name styx"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text, ok := doc.Get("name").Text(); !ok || text != "styx" {
		t.Errorf("expected styx, got %q", text)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	MustParse("x {")
}

func TestLookup(t *testing.T) {
	doc := MustParse("server {\n  tls.cert /etc/cert.pem\n  port 443\n}\nname web")
	tests := []struct {
		path     []string
		expected string
		found    bool
	}{
		{[]string{"server", "tls", "cert"}, "/etc/cert.pem", true},
		{[]string{"server", "port"}, "443", true},
		{[]string{"name"}, "web", true},
		{[]string{"name", "x"}, "", false},
		{[]string{"missing"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		v := doc.Lookup(tt.path...)
		if (v != nil) != tt.found {
			t.Errorf("Lookup(%v): found=%v, expected %v", tt.path, v != nil, tt.found)
			continue
		}
		if v == nil {
			continue
		}
		if text, _ := v.Text(); text != tt.expected {
			t.Errorf("Lookup(%v): expected %q, got %q", tt.path, tt.expected, text)
		}
	}
}

func TestNestingDepth(t *testing.T) {
	deep := "x " + strings.Repeat("(", 200) + strings.Repeat(")", 200)
	_, err := Parse(deep)
	if !perrors.Is(err, perrors.NestingTooDeep) {
		t.Fatalf("expected NestingTooDeep, got %v", err)
	}

	shallow := "x " + strings.Repeat("(", 100) + strings.Repeat(")", 100)
	if err := Validate(shallow); err != nil {
		t.Fatalf("unexpected error at depth 100: %v", err)
	}

	if _, err := ParseWithOptions("x {y {z 1}}", Options{MaxDepth: 3}); err != nil {
		t.Errorf("MaxDepth 3: unexpected error: %v", err)
	}
	_, err = ParseWithOptions("x {y {z 1}}", Options{MaxDepth: 2})
	if !perrors.Is(err, perrors.NestingTooDeep) {
		t.Errorf("MaxDepth 2: expected NestingTooDeep, got %v", err)
	}
}

func TestEntriesInSourceOrder(t *testing.T) {
	doc := MustParse("z 1\na 2\nm 3\nb.c 4")
	var keys []string
	for _, e := range doc.Entries {
		text, _ := e.Key.Text()
		keys = append(keys, text)
	}
	if got := strings.Join(keys, ","); got != "z,a,m,b" {
		t.Errorf("expected z,a,m,b, got %s", got)
	}
}

func TestConcurrentParses(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			src := fmt.Sprintf("id %d\nitems (%d %d)\nnested.value v%d", n, n, n+1, n)
			doc, err := Parse(src)
			if err != nil {
				errs <- err
				return
			}
			if text, _ := doc.Get("id").Text(); text != fmt.Sprint(n) {
				errs <- fmt.Errorf("parse %d: got id %q", n, text)
				return
			}
			if text, _ := doc.Lookup("nested", "value").Text(); text != fmt.Sprintf("v%d", n) {
				errs <- fmt.Errorf("parse %d: got nested.value %q", n, text)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestErrorLocation(t *testing.T) {
	src := "a 1\nb {\n  c 1\n  d 2, e 3\n}"
	_, err := Parse(src)
	se, ok := err.(*perrors.StyxError)
	if !ok {
		t.Fatalf("expected *StyxError, got %T (%v)", err, err)
	}
	if se.Kind != perrors.MixedSeparators {
		t.Fatalf("expected MixedSeparators, got %s", se.Kind)
	}
	located := se.WithSource(src)
	if located.Line != 4 || located.Column != 6 {
		t.Errorf("expected line 4 column 6, got line %d column %d", located.Line, located.Column)
	}
}
