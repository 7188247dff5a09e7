package styx

import (
	"testing"

	perrors "github.com/sambeau/styx/pkg/styx/errors"
)

type pathStep struct {
	path []string
	kind pathKind
}

func TestPathStateSequences(t *testing.T) {
	tests := []struct {
		name  string
		steps []pathStep
		fail  perrors.Kind // expected error on the last step, "" for none
	}{
		{
			name: "siblings",
			steps: []pathStep{
				{[]string{"a"}, pathTerminal},
				{[]string{"b"}, pathTerminal},
			},
		},
		{
			name: "duplicate terminal",
			steps: []pathStep{
				{[]string{"a"}, pathTerminal},
				{[]string{"a"}, pathTerminal},
			},
			fail: perrors.DuplicateKey,
		},
		{
			name: "dotted siblings share a prefix",
			steps: []pathStep{
				{[]string{"a", "b"}, pathTerminal},
				{[]string{"a", "c"}, pathTerminal},
			},
		},
		{
			name: "dotted duplicate",
			steps: []pathStep{
				{[]string{"a", "b"}, pathTerminal},
				{[]string{"a", "b"}, pathTerminal},
			},
			fail: perrors.DuplicateKey,
		},
		{
			name: "prefix reassigned",
			steps: []pathStep{
				{[]string{"a", "b"}, pathTerminal},
				{[]string{"a"}, pathTerminal},
			},
			fail: perrors.ReopenPath,
		},
		{
			name: "nest into terminal",
			steps: []pathStep{
				{[]string{"a"}, pathTerminal},
				{[]string{"a", "b"}, pathTerminal},
			},
			fail: perrors.NestIntoTerminal,
		},
		{
			name: "reopen closed sibling",
			steps: []pathStep{
				{[]string{"foo", "bar"}, pathObject},
				{[]string{"foo", "baz"}, pathObject},
				{[]string{"foo", "bar", "x"}, pathTerminal},
			},
			fail: perrors.ReopenPath,
		},
		{
			name: "reopen after leaving prefix",
			steps: []pathStep{
				{[]string{"a", "x"}, pathTerminal},
				{[]string{"b"}, pathTerminal},
				{[]string{"a", "y"}, pathTerminal},
			},
			fail: perrors.ReopenPath,
		},
		{
			name: "object assigned twice",
			steps: []pathStep{
				{[]string{"a"}, pathObject},
				{[]string{"a"}, pathObject},
			},
			fail: perrors.ReopenPath,
		},
		{
			name: "nest into object",
			steps: []pathStep{
				{[]string{"a"}, pathObject},
				{[]string{"a", "b"}, pathTerminal},
			},
		},
		{
			name: "quoted segment does not collide with dotted path",
			steps: []pathStep{
				{[]string{"a.b"}, pathTerminal},
				{[]string{"a", "b"}, pathTerminal},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newPathState()
			for i, step := range tt.steps {
				err := ps.checkAndUpdate(step.path, Span{i, i + 1}, step.kind)
				last := i == len(tt.steps)-1
				if !last || tt.fail == "" {
					if err != nil {
						t.Fatalf("step %d (%v): unexpected error: %v", i, step.path, err)
					}
					continue
				}
				if !perrors.Is(err, tt.fail) {
					t.Fatalf("step %d (%v): expected %s, got %v", i, step.path, tt.fail, err)
				}
				se := err.(*perrors.StyxError)
				if se.Start != i || se.End != i+1 {
					t.Errorf("expected error span [%d, %d], got [%d, %d]", i, i+1, se.Start, se.End)
				}
			}
		})
	}
}

func TestPathKey(t *testing.T) {
	if pathKey([]string{"a.b"}) == pathKey([]string{"a", "b"}) {
		t.Error("quoted and dotted paths must differ")
	}
	if got := pathKey([]string{"a", "b"}); got != `"a"."b"` {
		t.Errorf("unexpected path key %s", got)
	}
}
