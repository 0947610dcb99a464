package codec

import (
	"math"
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

var (
	float32Type = reflect.TypeOf(float32(0))
	float64Type = reflect.TypeOf(float64(0))
)

// FloatCodec decodes an IEEE-754 32- or 64-bit float, big- or
// little-endian (spec.md §4.4 "FloatCodec(32|64)").
type FloatCodec struct {
	bits   int // 32 or 64
	endian bitio.ByteOrder
}

// NewFloat builds a FloatCodec. bits must be 32 or 64.
func NewFloat(bits int, endian bitio.ByteOrder) *FloatCodec {
	return &FloatCodec{bits: bits, endian: endian}
}

// Decode implements codec.Codec.
func (c *FloatCodec) Decode(buf *bitio.BitBuffer, _ resolver.Resolver, _ Builder) (reflect.Value, error) {
	raw, err := buf.ReadUintEndian(c.bits, c.endian)
	if err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
	}
	if c.bits == 32 {
		return reflect.ValueOf(math.Float32frombits(uint32(raw))), nil
	}
	return reflect.ValueOf(math.Float64frombits(raw)), nil
}

// Encode implements codec.Codec.
func (c *FloatCodec) Encode(value reflect.Value, ch *bitio.BitChannel, _ resolver.Resolver) error {
	var raw uint64
	if c.bits == 32 {
		raw = uint64(math.Float32bits(float32(value.Float())))
	} else {
		raw = math.Float64bits(value.Float())
	}
	if err := ch.WriteUintEndian(raw, c.bits, c.endian); err != nil {
		return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
	}
	return nil
}

// Size implements codec.Codec.
func (c *FloatCodec) Size(_ resolver.Resolver) (int64, error) { return int64(c.bits), nil }

// SizeExpr implements codec.Codec.
func (c *FloatCodec) SizeExpr() *types.Expression { return constExpr(int64(c.bits)) }

// Type implements codec.Codec.
func (c *FloatCodec) Type() reflect.Type {
	if c.bits == 32 {
		return float32Type
	}
	return float64Type
}
