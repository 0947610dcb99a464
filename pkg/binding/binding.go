// Package binding implements the binding layer (spec.md §3 "Binding",
// §4.5 "Object codec & bindings"): gluing one field of an enclosing
// object to a codec plus the EL-driven modifiers that decide whether, and
// where, it is read — and feeding the decoded value back into the
// Resolver so later bindings' expressions can see it.
package binding

import (
	"reflect"

	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// evaluator is the subset of *eval.Evaluator the binding layer needs.
type evaluator interface {
	EvalBool(n *types.Node, r resolver.Resolver) (bool, error)
	EvalInt(n *types.Node, r resolver.Resolver) (int64, error)
	Eval(expr *types.Expression, r resolver.Resolver) (interface{}, error)
}

// Binding attaches one field of an enclosing object to a Codec plus
// EL-driven modifiers: if (presence guard), offset (absolute position
// override), length-hint (forwarded to list/byte-array codecs for
// documentation), and init (the value a skipped field takes).
type Binding struct {
	FieldName  string // the struct field this binding populates
	ExposeName string // the name the decoded value enters the Resolver under (spec.md §3); usually equal to FieldName

	Codec codec.Codec

	IfGuard    *types.Expression // nil: always present
	Offset     *types.Expression // nil: no absolute-position override
	LengthHint *types.Expression // nil: codec's own length expression, if any
	Init       *types.Expression // nil: field keeps its Go zero value when skipped

	ev evaluator
}

// New builds a Binding. ev is the evaluator used to run IfGuard/Offset/Init.
func New(fieldName string, c codec.Codec, ev evaluator) *Binding {
	return &Binding{FieldName: fieldName, ExposeName: fieldName, Codec: c, ev: ev}
}

// Present reports whether the field's guard evaluates true against res (or
// there is no guard at all), i.e. whether Decode/Encode should touch the
// field at all (spec.md §4.5 step 3a).
func (b *Binding) Present(res resolver.Resolver) (bool, error) {
	if b.IfGuard == nil {
		return true, nil
	}
	return b.ev.EvalBool(b.IfGuard.AST(), res)
}

// DefaultValue returns the value a skipped field takes: Init evaluated
// against res if set, else the Go zero value of the codec's type (spec.md
// §8 property 5 "Guard commutativity with default").
func (b *Binding) DefaultValue(res resolver.Resolver) (reflect.Value, error) {
	if b.Init == nil {
		return reflect.Zero(b.Codec.Type()), nil
	}
	v, err := b.ev.Eval(b.Init, res)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v).Convert(b.Codec.Type()), nil
}

// AbsoluteOffset evaluates Offset against res, reporting ok=false when this
// binding carries no offset override.
func (b *Binding) AbsoluteOffset(res resolver.Resolver) (pos int64, ok bool, err error) {
	if b.Offset == nil {
		return 0, false, nil
	}
	pos, err = b.ev.EvalInt(b.Offset.AST(), res)
	return pos, true, err
}

// Size evaluates the binding's contribution to its enclosing object's
// total size: 0 bits if the guard is false, the codec's size otherwise
// (spec.md §4.5 "size... a conditional binding contributes
// if(g, childSize, 0)").
func (b *Binding) Size(res resolver.Resolver) (int64, error) {
	present, err := b.Present(res)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, nil
	}
	return b.Codec.Size(res)
}
