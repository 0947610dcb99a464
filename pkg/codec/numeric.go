package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// NumericCodec translates a fixed- or EL-driven-width integer field
// (spec.md §4.4 "NumericCodec(width, signed, endianness)"). Width is an
// Integer expression rather than a bare int so a field's bit width can
// itself depend on a sibling (`bits: Expression`, spec.md §6), though the
// common case — a literal width — is just a parameterless expression that
// folds to a constant at build time.
type NumericCodec struct {
	goType    reflect.Type
	widthExpr *types.Expression
	signed    bool
	endian    bitio.ByteOrder
	ev        evaluator
}

// NewNumeric builds a NumericCodec decoding into goType (an integer kind:
// int8..int64 or uint8..uint64).
func NewNumeric(goType reflect.Type, widthExpr *types.Expression, signed bool, endian bitio.ByteOrder, ev evaluator) *NumericCodec {
	return &NumericCodec{goType: goType, widthExpr: widthExpr, signed: signed, endian: endian, ev: ev}
}

func (c *NumericCodec) width(res resolver.Resolver) (int, error) {
	w, err := c.ev.EvalInt(c.widthExpr.AST(), res)
	if err != nil {
		return 0, err
	}
	if w < 1 || w > 64 {
		return 0, types.NewRuntimeError(types.ErrWidthOutOfRange, "numeric width must be in [1, 64]", -1, "")
	}
	return int(w), nil
}

// Decode implements codec.Codec.
func (c *NumericCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, _ Builder) (reflect.Value, error) {
	n, err := c.width(res)
	if err != nil {
		return reflect.Value{}, err
	}
	if c.signed {
		v, err := buf.ReadIntEndian(n, c.endian)
		if err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
		}
		return reflect.ValueOf(v).Convert(c.goType), nil
	}
	v, err := buf.ReadUintEndian(n, c.endian)
	if err != nil {
		return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
	}
	return reflect.ValueOf(v).Convert(c.goType), nil
}

// Encode implements codec.Codec.
func (c *NumericCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	n, err := c.width(res)
	if err != nil {
		return err
	}
	if c.signed {
		v := value.Convert(reflect.TypeOf(int64(0))).Int()
		if !fitsSigned(v, n) {
			return types.NewRuntimeError(types.ErrValueOutOfRange, "value does not fit in declared width", ch.Written(), "")
		}
		if err := ch.WriteIntEndian(v, n, c.endian); err != nil {
			return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
		}
		return nil
	}
	v := value.Convert(reflect.TypeOf(uint64(0))).Uint()
	if !fitsUnsigned(v, n) {
		return types.NewRuntimeError(types.ErrValueOutOfRange, "value does not fit in declared width", ch.Written(), "")
	}
	if err := ch.WriteUintEndian(v, n, c.endian); err != nil {
		return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
	}
	return nil
}

// Size implements codec.Codec.
func (c *NumericCodec) Size(res resolver.Resolver) (int64, error) {
	n, err := c.width(res)
	return int64(n), err
}

// SizeExpr implements codec.Codec.
func (c *NumericCodec) SizeExpr() *types.Expression { return c.widthExpr }

// Type implements codec.Codec.
func (c *NumericCodec) Type() reflect.Type { return c.goType }

func fitsSigned(v int64, n int) bool {
	if n >= 64 {
		return true
	}
	min := int64(-1) << uint(n-1)
	max := (int64(1) << uint(n-1)) - 1
	return v >= min && v <= max
}

func fitsUnsigned(v uint64, n int) bool {
	if n >= 64 {
		return true
	}
	max := (uint64(1) << uint(n)) - 1
	return v <= max
}
