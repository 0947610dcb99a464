package fuzz

import (
	"testing"

	"github.com/preon-go/preon/pkg/parser"
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// fuzzContext is a small reference.Context offering a handful of named
// attributes so a reference-bearing snippet (`n`, `header.length`) has
// somewhere to resolve without pulling in the factory pipeline.
type fuzzContext struct {
	name string
}

func (c *fuzzContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	switch name {
	case "n", "length", "count":
		return &fuzzContext{name: name}, types.Integer, nil
	case "flag", "ok":
		return &fuzzContext{name: name}, types.Boolean, nil
	case "header":
		return &fuzzContext{name: name}, types.ReferenceType, nil
	default:
		return nil, "", fuzzErr("no such attribute " + name)
	}
}

func (c *fuzzContext) Item() (reference.Context, types.StaticType, error) {
	return &fuzzContext{name: c.name}, types.Integer, nil
}

func (c *fuzzContext) Outer() (reference.Context, error) {
	return nil, fuzzErr("no enclosing scope")
}

func (c *fuzzContext) Name() string { return c.name }

type fuzzErr string

func (e fuzzErr) Error() string { return string(e) }

// FuzzParser feeds arbitrary EL source text through the parser, as the
// teacher's tests/fuzz/fuzz_parser_test.go does for its own expression
// language: the parser must never panic, only return a *types.Error (or a
// successfully parsed Expression) for any input.
func FuzzParser(f *testing.F) {
	seeds := []string{
		"n",
		"header.length",
		"n * 8",
		"n + 1 == header.length",
		"flag and not ok",
		"(n",
		"",
		"n ==",
		"\"unterminated",
		"n[0]",
		"outer.n",
		"1 / 0",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	ctx := &fuzzContext{name: "root"}
	f.Fuzz(func(t *testing.T, input string) {
		_, _ = parser.Parse(input, ctx)
	})
}
