package reference_test

import (
	"fmt"
	"testing"

	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// leafCtx is a minimal reference.Context fixture: a flat record with one
// Integer attribute ("length"), one indexable attribute ("items", whose
// items are themselves leafCtx-shaped), and an optional outer scope.
type leafCtx struct {
	name  string
	outer reference.Context
}

func (c *leafCtx) Attribute(name string) (reference.Context, types.StaticType, error) {
	switch name {
	case "length":
		return &leafCtx{name: "length"}, types.Integer, nil
	case "items":
		return &leafCtx{name: "items"}, types.Integer, nil
	case "header":
		return &leafCtx{name: "header", outer: c}, types.ReferenceType, nil
	default:
		return nil, "", fmt.Errorf("no such attribute %q", name)
	}
}

func (c *leafCtx) Item() (reference.Context, types.StaticType, error) {
	if c.name != "items" {
		return nil, "", fmt.Errorf("%s is not indexable", c.name)
	}
	return &leafCtx{name: "items[]"}, types.Integer, nil
}

func (c *leafCtx) Outer() (reference.Context, error) {
	if c.outer == nil {
		return nil, fmt.Errorf("%s has no enclosing scope", c.name)
	}
	return c.outer, nil
}

func (c *leafCtx) Name() string { return c.name }

func TestBuilderSelectAttributeEvaluatesAgainstResolver(t *testing.T) {
	root := &leafCtx{name: "root"}
	ref, err := reference.NewBuilder(root).SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res := resolver.NewRoot().Bind("length", int64(42))
	v, err := ref.Evaluate(res, dummyEval)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.(int64) != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestBuilderSelectAttributeUnresolvedErrors(t *testing.T) {
	root := &leafCtx{name: "root"}
	_, err := reference.NewBuilder(root).SelectAttribute("nope").Build()
	if err == nil {
		t.Fatal("expected an error selecting an unknown attribute")
	}
	pe, ok := err.(*types.Error)
	if !ok || pe.Code != types.ErrUnresolvedReference {
		t.Fatalf("got %v, want *types.Error{Code: ErrUnresolvedReference}", err)
	}
}

func TestBuilderSelectItemRequiresIntegerIndex(t *testing.T) {
	root := &leafCtx{name: "root"}
	strIdx := types.NewLiteralString("x", -1)
	_, err := reference.NewBuilder(root).SelectAttribute("items").SelectItem(strIdx).Build()
	if err == nil {
		t.Fatal("expected an error indexing with a non-Integer expression")
	}
	pe, ok := err.(*types.Error)
	if !ok || pe.Code != types.ErrTypeMismatch {
		t.Fatalf("got %v, want *types.Error{Code: ErrTypeMismatch}", err)
	}
}

func TestBuilderOuterNavigatesEnclosingScope(t *testing.T) {
	root := &leafCtx{name: "root"}
	headerCtx, _, err := root.Attribute("header")
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}

	ref, err := reference.NewBuilder(headerCtx).Outer().SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	outerRes := resolver.NewRoot().Bind("length", int64(7))
	innerRes := resolver.NewChildOf(outerRes)
	v, err := ref.Evaluate(innerRes, dummyEval)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.(int64) != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestReferenceEqualComparesSegmentShapeOnly(t *testing.T) {
	root := &leafCtx{name: "root"}
	a, err := reference.NewBuilder(root).SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build a: %v", err)
	}
	b, err := reference.NewBuilder(root).SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build b: %v", err)
	}
	c, err := reference.NewBuilder(root).SelectAttribute("items").Build()
	if err != nil {
		t.Fatalf("Build c: %v", err)
	}

	if !a.Equal(b) {
		t.Fatal("two References built from the same path must compare equal")
	}
	if a.Equal(c) {
		t.Fatal("References over different attribute names must not compare equal")
	}
}

func TestReferenceDocumentRendersDottedPath(t *testing.T) {
	root := &leafCtx{name: "root"}
	ref, err := reference.NewBuilder(root).SelectAttribute("header").SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := ref.Document(), "header.length"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRescopePrependsOuterPath(t *testing.T) {
	root := &leafCtx{name: "root"}
	headerCtx, _, err := root.Attribute("header")
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	inner, err := reference.NewBuilder(headerCtx).SelectAttribute("length").Build()
	if err != nil {
		t.Fatalf("Build inner: %v", err)
	}

	rescoped, err := reference.Rescope(inner, root, []string{"header"})
	if err != nil {
		t.Fatalf("Rescope: %v", err)
	}
	if got, want := rescoped.Document(), "header.length"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func dummyEval(n *types.Node, r resolver.Resolver) (interface{}, error) {
	return n.IntValue, nil
}
