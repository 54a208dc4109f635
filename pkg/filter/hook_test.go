package filter

import (
	"context"
	"testing"
)

func noop() Hook {
	return HookFunc(func(context.Context, string, Params) (Outcome, error) { return Continue, nil })
}

func TestHookSpecResolve(t *testing.T) {
	keyed := Keyed(map[string]Hook{
		"*":        noop(),
		"page/:id": noop(),
		"page":     noop(),
	})

	tests := []struct {
		name  string
		spec  HookSpec
		route string
		want  []string
	}{
		{"none", None(), "page/:id", nil},
		{"single", Single(noop()), "anything", []string{""}},
		{"keyed exact and wildcard", keyed, "page/:id", []string{"*", "page/:id"}},
		{"keyed wildcard only", keyed, "foo/:id", []string{"*"}},
		{"no prefix matching", Keyed(map[string]Hook{"page": noop()}), "page/:id", nil},
		{"wildcard route fires once", keyed, "*", []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.spec.Resolve(tt.route)
			if len(got) != len(tt.want) {
				t.Fatalf("Resolve(%q) returned %d hooks, want %d", tt.route, len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Key != tt.want[i] {
					t.Errorf("hook %d key = %q, want %q", i, r.Key, tt.want[i])
				}
			}
		})
	}
}

func TestHookSpecShape(t *testing.T) {
	if !None().IsZero() {
		t.Error("None should be zero")
	}
	if !Single(nil).IsZero() {
		t.Error("Single(nil) should be zero")
	}
	if Single(noop()).IsKeyed() {
		t.Error("Single should not be keyed")
	}

	src := map[string]Hook{"b": noop(), "a": noop(), "nil": nil}
	spec := Keyed(src)
	src["c"] = noop()

	keys := spec.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
}

func TestOutcomeOnlyAbortAborts(t *testing.T) {
	var zero Outcome
	if zero.IsAbort() || zero.IsPending() {
		t.Error("zero Outcome must continue")
	}
	if zero.String() != "continue" {
		t.Errorf("zero String() = %q", zero.String())
	}
	if !Abort.IsAbort() {
		t.Error("Abort must abort")
	}
	if Pending(nil).IsPending() {
		t.Error("Pending(nil) must continue")
	}
}

func TestParams(t *testing.T) {
	p := Params{Value("2"), Missing()}

	if v, ok := p.Get(0); !ok || v != "2" {
		t.Errorf("Get(0) = %q, %v", v, ok)
	}
	if _, ok := p.Get(1); ok {
		t.Error("Get(1) should report missing")
	}
	if _, ok := p.Get(5); ok {
		t.Error("Get(5) should report missing")
	}
	if got := p.String(); got != "2," {
		t.Errorf("String() = %q, want %q", got, "2,")
	}
	if got := StringParams("2", "edit").String(); got != "2,edit" {
		t.Errorf("String() = %q, want %q", got, "2,edit")
	}
	if p.Equal(StringParams("2", "")) {
		t.Error("missing and empty params must differ")
	}
}
