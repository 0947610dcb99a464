package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// SliceCodec bounds an inner codec to a logical sub-region of the buffer
// exactly sizeExpr bits long (spec.md §2/§4.1 "slice(startBit, lengthBits)
// returns a logical sub-buffer whose position is independent of the
// parent"). It is what an offset or length-bounded field decorates onto a
// composite codec when the declared extent may legitimately differ from
// however many bits the inner codec actually consumes — e.g. a padded or
// forward-compatible record.
type SliceCodec struct {
	inner    Codec
	sizeExpr *types.Expression
	ev       evaluator
}

// NewSlice builds a SliceCodec bounding inner to exactly sizeExpr bits.
func NewSlice(inner Codec, sizeExpr *types.Expression, ev evaluator) *SliceCodec {
	return &SliceCodec{inner: inner, sizeExpr: sizeExpr, ev: ev}
}

// Decode implements codec.Codec.
func (c *SliceCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, b Builder) (reflect.Value, error) {
	n, err := c.ev.EvalInt(c.sizeExpr.AST(), res)
	if err != nil {
		return reflect.Value{}, err
	}
	sub, err := buf.Slice(buf.Position(), n)
	if err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrInvalidSeek, err, buf.Position())
	}
	v, err := c.inner.Decode(sub, res, b)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := buf.Skip(n); err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrInvalidSeek, err, buf.Position())
	}
	return v, nil
}

// Encode implements codec.Codec: inner is encoded into a scratch channel so
// its natural extent can be validated against sizeExpr before any bits
// reach ch.
func (c *SliceCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	n, err := c.ev.EvalInt(c.sizeExpr.AST(), res)
	if err != nil {
		return err
	}
	scratch := bitio.NewBitChannel(bitio.BigEndian)
	if err := c.inner.Encode(value, scratch, res); err != nil {
		return err
	}
	if scratch.Written() != n {
		return types.NewRuntimeError(types.ErrOffsetMismatch, "encoded value does not fill its declared slice extent", ch.Written(), "")
	}
	if err := ch.WriteRaw(scratch.Bytes(), n); err != nil {
		return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
	}
	return nil
}

// Size implements codec.Codec.
func (c *SliceCodec) Size(res resolver.Resolver) (int64, error) {
	return c.ev.EvalInt(c.sizeExpr.AST(), res)
}

// SizeExpr implements codec.Codec.
func (c *SliceCodec) SizeExpr() *types.Expression { return c.sizeExpr }

// Type implements codec.Codec.
func (c *SliceCodec) Type() reflect.Type { return c.inner.Type() }
