package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

var boolType = reflect.TypeOf(false)

// BooleanCodec decodes a single bit: 0 => false, 1 => true (spec.md §4.4).
type BooleanCodec struct{}

// NewBoolean builds a BooleanCodec.
func NewBoolean() *BooleanCodec { return &BooleanCodec{} }

// Decode implements codec.Codec.
func (c *BooleanCodec) Decode(buf *bitio.BitBuffer, _ resolver.Resolver, _ Builder) (reflect.Value, error) {
	v, err := buf.ReadBits(1)
	if err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
	}
	return reflect.ValueOf(v != 0), nil
}

// Encode implements codec.Codec.
func (c *BooleanCodec) Encode(value reflect.Value, ch *bitio.BitChannel, _ resolver.Resolver) error {
	v := uint64(0)
	if value.Bool() {
		v = 1
	}
	if err := ch.WriteBits(v, 1); err != nil {
		return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
	}
	return nil
}

// Size implements codec.Codec.
func (c *BooleanCodec) Size(_ resolver.Resolver) (int64, error) { return 1, nil }

// SizeExpr implements codec.Codec.
func (c *BooleanCodec) SizeExpr() *types.Expression { return constExpr(1) }

// Type implements codec.Codec.
func (c *BooleanCodec) Type() reflect.Type { return boolType }
