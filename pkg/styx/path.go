package styx

import (
	"strconv"
	"strings"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

// pathKind records what a key path was assigned.
type pathKind int

const (
	pathObject   pathKind = iota // an object, may receive more children
	pathTerminal                 // any other value
)

type assignedPath struct {
	kind pathKind
	span Span
}

// pathState tracks the key paths assigned within one object scope so that
// dotted keys can be checked for duplicates, reopened siblings and nesting
// under terminal values. Each object scope (the root, every {...} and every
// attribute chain) owns its own pathState.
type pathState struct {
	current  []string
	closed   map[string]bool
	assigned map[string]assignedPath
}

func newPathState() *pathState {
	return &pathState{
		closed:   make(map[string]bool),
		assigned: make(map[string]assignedPath),
	}
}

// pathKey joins quoted segments, so the single quoted key "a.b" and the
// dotted path a.b never share a key.
func pathKey(segments []string) string {
	quoted := make([]string, len(segments))
	for i, s := range segments {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, ".")
}

// checkAndUpdate validates assigning path (with the given kind) at span and
// records it as the current path.
func (ps *pathState) checkAndUpdate(path []string, span Span, kind pathKind) error {
	display := strings.Join(path, ".")
	key := pathKey(path)

	if prev, ok := ps.assigned[key]; ok {
		if prev.kind == pathTerminal {
			return perrors.New(perrors.DuplicateKey, span.Start, span.End, map[string]any{"Path": display})
		}
		return perrors.New(perrors.ReopenPath, span.Start, span.End, map[string]any{"Path": display})
	}

	for i := 1; i < len(path); i++ {
		prefix := path[:i]
		prefixKey := pathKey(prefix)
		if ps.closed[prefixKey] {
			return perrors.New(perrors.ReopenPath, span.Start, span.End, map[string]any{
				"Path": strings.Join(prefix, "."),
			})
		}
		if prev, ok := ps.assigned[prefixKey]; ok && prev.kind == pathTerminal {
			return perrors.New(perrors.NestIntoTerminal, span.Start, span.End, map[string]any{
				"Path": strings.Join(prefix, "."),
			})
		}
	}

	shared := commonPrefixLen(ps.current, path)
	for i := shared + 1; i <= len(ps.current); i++ {
		ps.closed[pathKey(ps.current[:i])] = true
	}

	for i := 1; i < len(path); i++ {
		prefixKey := pathKey(path[:i])
		if _, ok := ps.assigned[prefixKey]; !ok {
			ps.assigned[prefixKey] = assignedPath{kind: pathObject, span: span}
		}
	}

	ps.assigned[key] = assignedPath{kind: kind, span: span}
	ps.current = append(ps.current[:0:0], path...)
	return nil
}

func commonPrefixLen(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
