package codec

import (
	"fmt"
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// EnumCodec decodes an integer through an underlying codec and maps it to
// one of a declared set of enumerator values, raising DecodingError on an
// unmapped value unless a default is configured (spec.md §4.4 "EnumCodec").
type EnumCodec struct {
	underlying Codec
	goType     reflect.Type
	forward    map[int64]reflect.Value // raw int -> enumerator value
	backward   map[interface{}]int64   // enumerator value -> raw int
	hasDefault bool
	def        reflect.Value
}

// NewEnum builds an EnumCodec. mapping pairs each raw underlying value with
// the Go value (of goType) it decodes to; def, if non-nil, is returned
// instead of a DecodingError when decode encounters an unmapped raw value.
func NewEnum(underlying Codec, goType reflect.Type, mapping map[int64]reflect.Value, def *reflect.Value) *EnumCodec {
	c := &EnumCodec{
		underlying: underlying,
		goType:     goType,
		forward:    mapping,
		backward:   make(map[interface{}]int64, len(mapping)),
	}
	for raw, v := range mapping {
		c.backward[v.Interface()] = raw
	}
	if def != nil {
		c.hasDefault = true
		c.def = *def
	}
	return c
}

// Decode implements codec.Codec.
func (c *EnumCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, b Builder) (reflect.Value, error) {
	raw, err := c.underlying.Decode(buf, res, b)
	if err != nil {
		return reflect.Value{}, err
	}
	key := raw.Convert(reflect.TypeOf(int64(0))).Int()
	if v, ok := c.forward[key]; ok {
		return v, nil
	}
	if c.hasDefault {
		return c.def, nil
	}
	return reflect.Value{}, types.NewRuntimeError(types.ErrEnumOutOfRange,
		fmt.Sprintf("enum value %d has no mapped enumerator", key), buf.Position(), "")
}

// Encode implements codec.Codec.
func (c *EnumCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	raw, ok := c.backward[value.Interface()]
	if !ok {
		return types.NewRuntimeError(types.ErrValueOutOfRange, "value is not a declared enumerator", ch.Written(), "")
	}
	return c.underlying.Encode(reflect.ValueOf(raw).Convert(c.underlying.Type()), ch, res)
}

// Size implements codec.Codec.
func (c *EnumCodec) Size(res resolver.Resolver) (int64, error) { return c.underlying.Size(res) }

// SizeExpr implements codec.Codec.
func (c *EnumCodec) SizeExpr() *types.Expression { return c.underlying.SizeExpr() }

// Type implements codec.Codec.
func (c *EnumCodec) Type() reflect.Type { return c.goType }
