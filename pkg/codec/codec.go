// Package codec implements the codec primitives and combinators of
// spec.md §4.4-§4.7: the leaf codecs that translate a single scalar field
// to and from bits, and the combinators (list, choice) that compose them
// into a tree mirroring a Go type's shape. The object combinator,
// ObjectCodec, lives in pkg/binding.
//
// Every Codec is built once by the factory pipeline (pkg/factory) and is
// immutable and reentrant afterwards (spec.md §5): none of the types in
// this package retain per-operation state, so a single Codec value may
// back concurrent decode/encode calls against independent buffers.
package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// Builder is the decode-only collaborator of spec.md §6: given the Go type
// a codec is about to populate and the resolver in scope, it produces a
// blank instance for an ObjectCodec to fill in field by field. The default
// Builder (DefaultBuilder) defers to a Constructor.
type Builder interface {
	Construct(t reflect.Type, res resolver.Resolver) (reflect.Value, error)
}

// Constructor is the collaborator of spec.md §6 that produces a blank
// value for a type lacking a natural zero-arg construction path (e.g. an
// interface field populated by a choice codec). Most Go struct types need
// no Constructor at all: reflect.New already gives Codecs a usable blank
// value, which is what DefaultBuilder does when no Constructor is set.
type Constructor interface {
	Construct(t reflect.Type) (reflect.Value, error)
}

// DefaultBuilder consults the user-supplied Fallback Constructor first when
// one is set, and constructs with reflect.New when Fallback is nil or
// returns an error (spec.md §6 "For types without a zero-arg constructor, a
// user-supplied factory is consulted").
type DefaultBuilder struct {
	Fallback Constructor
}

// Construct implements Builder.
func (d DefaultBuilder) Construct(t reflect.Type, _ resolver.Resolver) (reflect.Value, error) {
	if d.Fallback != nil {
		if v, err := d.Fallback.Construct(t); err == nil {
			return v, nil
		}
	}
	return reflect.New(t).Elem(), nil
}

// Codec is the bidirectional translator contract of spec.md §3: decode
// reads a value of Go type Type() from buf, encode writes value back onto
// ch, and Size/SizeExpr expose the field's bit width, constant-folded where
// possible.
type Codec interface {
	// Decode reads and returns a value of Type() from buf, threading res so
	// the codec's own EL-driven modifiers (e.g. a ByteArrayCodec's length)
	// can see already-decoded sibling values.
	Decode(buf *bitio.BitBuffer, res resolver.Resolver, builder Builder) (reflect.Value, error)
	// Encode writes value onto ch.
	Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error
	// Size evaluates the codec's declared size expression against res and
	// returns the number of bits a decode/encode will consume (spec.md §3
	// "size(resolver) -> Expression[Integer]" invariant: for a parameterless
	// size this is independent of res).
	Size(res resolver.Resolver) (int64, error)
	// SizeExpr returns the codec's declared, possibly parameterised size
	// expression on its own, for documentation (spec.md §9 supplemented
	// feature: Codec.getSize() as a standalone accessor).
	SizeExpr() *types.Expression
	// Type returns the Go type this codec decodes to and encodes from.
	Type() reflect.Type
}

// evaluator is the subset of *eval.Evaluator a codec needs. Declaring it
// here (rather than importing pkg/eval) keeps codec decoupled from the
// concrete evaluator implementation, matching the late-binding shape of
// pkg/types.NodeEvaluator.
type evaluator interface {
	EvalInt(n *types.Node, r resolver.Resolver) (int64, error)
	EvalBool(n *types.Node, r resolver.Resolver) (bool, error)
	Eval(expr *types.Expression, r resolver.Resolver) (interface{}, error)
}

// constExpr wraps a literal bit count in a parameterless *types.Expression,
// used by primitive codecs whose width is a compile-time constant rather
// than something parsed from EL source.
func constExpr(n int64) *types.Expression {
	return types.NewExpression(types.NewLiteralInt(n, -1), "")
}
