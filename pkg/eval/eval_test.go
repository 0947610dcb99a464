package eval_test

import (
	"testing"

	"github.com/preon-go/preon/pkg/eval"
	"github.com/preon-go/preon/pkg/parser"
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// scalarContext is a reference.Context exposing a flat set of named scalar
// attributes, enough to parse and evaluate the expressions under test.
type scalarContext struct {
	name  string
	attrs map[string]types.StaticType
}

func (c *scalarContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	t, ok := c.attrs[name]
	if !ok {
		return nil, "", errNoSuchAttr(name)
	}
	return &scalarContext{name: name}, t, nil
}

func (c *scalarContext) Item() (reference.Context, types.StaticType, error) {
	return nil, "", errNotIndexable(c.name)
}

func (c *scalarContext) Outer() (reference.Context, error) {
	return nil, errNoOuter{}
}

func (c *scalarContext) Name() string { return c.name }

type errNoOuter struct{}

func (errNoOuter) Error() string { return "no enclosing scope" }

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func errNoSuchAttr(name string) error  { return simpleErr("no such attribute " + name) }
func errNotIndexable(name string) error { return simpleErr(name + " is not indexable") }

func evalExpr(t *testing.T, ev *eval.Evaluator, src string, ctx reference.Context, res resolver.Resolver) interface{} {
	t.Helper()
	expr, err := parser.Parse(src, ctx)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	v, err := ev.Eval(expr, res)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func TestArithmetic(t *testing.T) {
	ev := eval.New()
	ctx := &scalarContext{name: "root"}
	res := resolver.NewRoot()

	tests := []struct {
		name string
		expr string
		want int64
	}{
		{"add", "1 + 2", 3},
		{"precedence", "2 + 3 * 4", 14},
		{"parens", "(2 + 3) * 4", 20},
		{"sub", "10 - 4", 6},
		{"div", "7 / 2", 3},
		{"mod", "7 % 2", 1},
		{"pow", "2 ^ 8", 256},
		{"negative pow exponent truncates to zero", "2 ^ -1", 0},
		{"unary minus", "-5 + 10", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalExpr(t, ev, tt.expr, ctx, res)
			if got != tt.want {
				t.Errorf("%q = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestDivisionAndModuloByZero(t *testing.T) {
	ev := eval.New()
	ctx := &scalarContext{name: "root"}
	res := resolver.NewRoot()

	for _, src := range []string{"1 / 0", "1 % 0"} {
		expr, err := parser.Parse(src, ctx)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		if _, err := ev.Eval(expr, res); err == nil {
			t.Errorf("%q: expected an error, got none", src)
		}
	}
}

func TestComparisonAndLogical(t *testing.T) {
	ev := eval.New()
	ctx := &scalarContext{name: "root"}
	res := resolver.NewRoot()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"equal", "3 == 3", true},
		{"not equal", "3 != 4", true},
		{"less", "3 < 4", true},
		{"greater-equal false", "3 >= 4", false},
		{"and short-circuits false", "false and (1 / 0 == 0)", false},
		{"or short-circuits true", "true or (1 / 0 == 0)", true},
		{"not", "not false", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalExpr(t, ev, tt.expr, ctx, res)
			if got != tt.want {
				t.Errorf("%q = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestReferenceEvaluatesAgainstResolver(t *testing.T) {
	ev := eval.New()
	ctx := &scalarContext{name: "root", attrs: map[string]types.StaticType{"n": types.Integer}}
	res := resolver.NewRoot().Bind("n", int64(5))

	got := evalExpr(t, ev, "n + 1", ctx, res)
	if got != int64(6) {
		t.Errorf("n + 1 = %v, want 6", got)
	}
}

func TestStringComparisonIsBytewise(t *testing.T) {
	ev := eval.New()
	ctx := &scalarContext{name: "root"}
	res := resolver.NewRoot()

	got := evalExpr(t, ev, `"abc" < "abd"`, ctx, res)
	if got != true {
		t.Errorf(`"abc" < "abd" = %v, want true`, got)
	}
}
