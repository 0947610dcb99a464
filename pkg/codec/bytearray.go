package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

var byteSliceType = reflect.TypeOf([]byte(nil))

// ByteArrayCodec decodes a byte slice whose length is given by an EL
// Integer expression evaluated against the resolver (spec.md §4.4
// "ByteArrayCodec(lengthExpr)"); its size is lengthExpr*8 bits.
type ByteArrayCodec struct {
	lengthExpr *types.Expression
	ev         evaluator
}

// NewByteArray builds a ByteArrayCodec.
func NewByteArray(lengthExpr *types.Expression, ev evaluator) *ByteArrayCodec {
	return &ByteArrayCodec{lengthExpr: lengthExpr, ev: ev}
}

func (c *ByteArrayCodec) length(res resolver.Resolver) (int64, error) {
	n, err := c.ev.EvalInt(c.lengthExpr.AST(), res)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, types.NewRuntimeError(types.ErrValueOutOfRange, "byte array length must be non-negative", -1, "")
	}
	return n, nil
}

// Decode implements codec.Codec.
func (c *ByteArrayCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, _ Builder) (reflect.Value, error) {
	n, err := c.length(res)
	if err != nil {
		return reflect.Value{}, err
	}
	data, err := buf.ReadByteSlice(int(n))
	if err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
	}
	return reflect.ValueOf(data), nil
}

// Encode implements codec.Codec.
func (c *ByteArrayCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	n, err := c.length(res)
	if err != nil {
		return err
	}
	data := value.Bytes()
	if int64(len(data)) != n {
		return types.NewRuntimeError(types.ErrValueOutOfRange, "byte array length does not match declared length", ch.Written(), "")
	}
	if err := ch.WriteByteSlice(data); err != nil {
		return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
	}
	return nil
}

// Size implements codec.Codec.
func (c *ByteArrayCodec) Size(res resolver.Resolver) (int64, error) {
	n, err := c.length(res)
	return n * 8, err
}

// SizeExpr implements codec.Codec. The returned expression computes
// lengthExpr*8; it is only parameterless if lengthExpr itself is.
func (c *ByteArrayCodec) SizeExpr() *types.Expression {
	node := types.NewBinary("*", c.lengthExpr.AST(), types.NewLiteralInt(8, -1), types.Integer, -1)
	return types.NewExpression(node, c.lengthExpr.Source()+" * 8")
}

// Type implements codec.Codec.
func (c *ByteArrayCodec) Type() reflect.Type { return byteSliceType }
