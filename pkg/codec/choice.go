package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// choiceOption pairs a guard with the codec to dispatch to when it is the
// first to evaluate true (spec.md §4.7).
type choiceOption struct {
	guard *types.Expression
	codec Codec
}

// ChoiceCodec discriminates between variant types via guards evaluated in
// order against the resolver; guards typically inspect a prefix field
// already decoded in the enclosing object (spec.md §4.7). Its static type
// is goType, the least upper bound of its branches — in practice an
// interface type every branch's Go type implements.
type ChoiceCodec struct {
	options []choiceOption
	def     Codec // nil if there is no default branch
	goType  reflect.Type
	ev      evaluator
}

// NewChoice builds a ChoiceCodec. def may be nil, in which case an
// unmatched guard raises DecodingError (spec.md §4.7 "otherwise default or
// DecodingError").
func NewChoice(goType reflect.Type, def Codec, ev evaluator) *ChoiceCodec {
	return &ChoiceCodec{goType: goType, def: def, ev: ev}
}

// AddOption appends a (guard, codec) branch in dispatch priority order.
func (c *ChoiceCodec) AddOption(guard *types.Expression, branch Codec) {
	c.options = append(c.options, choiceOption{guard: guard, codec: branch})
}

func (c *ChoiceCodec) dispatch(res resolver.Resolver) (Codec, error) {
	for _, opt := range c.options {
		ok, err := c.ev.EvalBool(opt.guard.AST(), res)
		if err != nil {
			return nil, err
		}
		if ok {
			return opt.codec, nil
		}
	}
	if c.def != nil {
		return c.def, nil
	}
	return nil, types.NewRuntimeError(types.ErrNoMatchingChoice, "no choice guard matched and no default is configured", -1, "")
}

// Decode implements codec.Codec.
func (c *ChoiceCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, b Builder) (reflect.Value, error) {
	branch, err := c.dispatch(res)
	if err != nil {
		if e, ok := err.(*types.Error); ok {
			e.BitPosition = buf.Position()
		}
		return reflect.Value{}, err
	}
	v, err := branch.Decode(buf, res, b)
	if err != nil {
		return reflect.Value{}, err
	}
	if c.goType.Kind() == reflect.Interface {
		out := reflect.New(c.goType).Elem()
		out.Set(v)
		return out, nil
	}
	return v, nil
}

// Encode implements codec.Codec. Dispatch is by guard, exactly as in
// Decode — the resolver is backed by the enclosing object being encoded,
// so the same prefix field a decode guard inspects is equally available
// here (spec.md §4.5 "Encode is symmetric").
func (c *ChoiceCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	branch, err := c.dispatch(res)
	if err != nil {
		return err
	}
	v := value
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return branch.Encode(v, ch, res)
}

// Size implements codec.Codec: the branch is resolved the same way as in
// Decode/Encode, so the size is exact, not an upper bound.
func (c *ChoiceCodec) Size(res resolver.Resolver) (int64, error) {
	branch, err := c.dispatch(res)
	if err != nil {
		return 0, err
	}
	return branch.Size(res)
}

// SizeExpr implements codec.Codec. A choice's size generally depends on
// which branch a runtime guard selects, which isn't expressible as a
// single EL expression, so this returns nil unless every branch (and any
// default) shares one constant size.
func (c *ChoiceCodec) SizeExpr() *types.Expression {
	var common *types.Expression
	var commonBits int64
	check := func(e *types.Expression) bool {
		if e == nil || !e.IsParameterless() {
			return false
		}
		n, err := c.ev.EvalInt(e.AST(), resolver.NewRoot())
		if err != nil {
			return false
		}
		if common == nil {
			common, commonBits = e, n
			return true
		}
		return n == commonBits
	}
	for _, opt := range c.options {
		if !check(opt.codec.SizeExpr()) {
			return nil
		}
	}
	if c.def != nil && !check(c.def.SizeExpr()) {
		return nil
	}
	return common
}

// Type implements codec.Codec.
func (c *ChoiceCodec) Type() reflect.Type { return c.goType }
