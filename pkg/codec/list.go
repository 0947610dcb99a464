package codec

import (
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// ListDiscipline selects how a ListCodec determines how many elements to
// decode (spec.md §4.6 "Three length disciplines").
type ListDiscipline int

const (
	// ListByCount decodes exactly countExpr elements.
	ListByCount ListDiscipline = iota
	// ListByByteExtent decodes elements from a bounded byte region until
	// that region is exhausted; elementCodec must be self-delimiting or
	// fixed-size.
	ListByByteExtent
	// ListByTerminator decodes elements until one equals the declared
	// sentinel.
	ListByTerminator
)

// ListCodec decodes a Go slice, one of three length disciplines selected
// by metadata (spec.md §4.6).
type ListCodec struct {
	elem       Codec
	sliceType  reflect.Type
	discipline ListDiscipline

	countExpr      *types.Expression // ListByCount
	byteExtentExpr *types.Expression // ListByByteExtent

	sentinel        reflect.Value // ListByTerminator
	includeSentinel bool

	ev evaluator
}

// NewListByCount builds a ListCodec that decodes exactly countExpr elements.
func NewListByCount(elem Codec, countExpr *types.Expression, ev evaluator) *ListCodec {
	return &ListCodec{
		elem:       elem,
		sliceType:  reflect.SliceOf(elem.Type()),
		discipline: ListByCount,
		countExpr:  countExpr,
		ev:         ev,
	}
}

// NewListByByteExtent builds a ListCodec that decodes elements out of a
// region exactly byteExtentExpr bytes long.
func NewListByByteExtent(elem Codec, byteExtentExpr *types.Expression, ev evaluator) *ListCodec {
	return &ListCodec{
		elem:           elem,
		sliceType:      reflect.SliceOf(elem.Type()),
		discipline:     ListByByteExtent,
		byteExtentExpr: byteExtentExpr,
		ev:             ev,
	}
}

// NewListByTerminator builds a ListCodec that decodes elements until one
// equals sentinel. includeSentinel controls whether that terminating
// element is itself kept in the decoded slice.
func NewListByTerminator(elem Codec, sentinel reflect.Value, includeSentinel bool, ev evaluator) *ListCodec {
	return &ListCodec{
		elem:            elem,
		sliceType:       reflect.SliceOf(elem.Type()),
		discipline:      ListByTerminator,
		sentinel:        sentinel,
		includeSentinel: includeSentinel,
		ev:              ev,
	}
}

// Decode implements codec.Codec.
func (c *ListCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, b Builder) (reflect.Value, error) {
	switch c.discipline {
	case ListByCount:
		n, err := c.ev.EvalInt(c.countExpr.AST(), res)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(c.sliceType, 0, int(n))
		for i := int64(0); i < n; i++ {
			v, err := c.elem.Decode(buf, res, b)
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, v)
		}
		return out, nil

	case ListByByteExtent:
		nBytes, err := c.ev.EvalInt(c.byteExtentExpr.AST(), res)
		if err != nil {
			return reflect.Value{}, err
		}
		sub, err := buf.Slice(buf.Position(), nBytes*8)
		if err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrInvalidSeek, err, buf.Position())
		}
		out := reflect.MakeSlice(c.sliceType, 0, 0)
		for sub.Remaining() > 0 {
			v, err := c.elem.Decode(sub, res, b)
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, v)
		}
		if err := buf.Skip(nBytes * 8); err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrInvalidSeek, err, buf.Position())
		}
		return out, nil

	default: // ListByTerminator
		out := reflect.MakeSlice(c.sliceType, 0, 0)
		for {
			if buf.Remaining() <= 0 {
				return reflect.Value{}, types.NewRuntimeError(types.ErrTerminatorMissing,
					"list terminator not found before buffer end", buf.Position(), "")
			}
			v, err := c.elem.Decode(buf, res, b)
			if err != nil {
				return reflect.Value{}, err
			}
			if reflect.DeepEqual(v.Interface(), c.sentinel.Interface()) {
				if c.includeSentinel {
					out = reflect.Append(out, v)
				}
				return out, nil
			}
			out = reflect.Append(out, v)
		}
	}
}

// Encode implements codec.Codec.
func (c *ListCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	switch c.discipline {
	case ListByCount:
		n, err := c.ev.EvalInt(c.countExpr.AST(), res)
		if err != nil {
			return err
		}
		if int64(value.Len()) != n {
			return types.NewRuntimeError(types.ErrValueOutOfRange, "slice length does not match declared count", ch.Written(), "")
		}
		for i := 0; i < value.Len(); i++ {
			if err := c.elem.Encode(value.Index(i), ch, res); err != nil {
				return err
			}
		}
		return nil

	case ListByByteExtent:
		nBytes, err := c.ev.EvalInt(c.byteExtentExpr.AST(), res)
		if err != nil {
			return err
		}
		before := ch.Written()
		for i := 0; i < value.Len(); i++ {
			if err := c.elem.Encode(value.Index(i), ch, res); err != nil {
				return err
			}
		}
		if ch.Written()-before != nBytes*8 {
			return types.NewRuntimeError(types.ErrOffsetMismatch, "encoded list does not fill the declared byte extent", ch.Written(), "")
		}
		return nil

	default: // ListByTerminator
		for i := 0; i < value.Len(); i++ {
			if err := c.elem.Encode(value.Index(i), ch, res); err != nil {
				return err
			}
		}
		if !c.includeSentinel {
			return c.elem.Encode(c.sentinel, ch, res)
		}
		return nil
	}
}

// Size implements codec.Codec. ListByCount returns the evaluated count
// times the element codec's Size against res; ListByByteExtent returns the
// evaluated byte extent times 8. A terminator-delimited list is
// data-dependent and returns an error here, matching StringCodec's
// terminated-form behaviour.
func (c *ListCodec) Size(res resolver.Resolver) (int64, error) {
	switch c.discipline {
	case ListByCount:
		n, err := c.ev.EvalInt(c.countExpr.AST(), res)
		if err != nil {
			return 0, err
		}
		elemSize, err := c.elem.Size(res)
		if err != nil {
			return 0, err
		}
		return n * elemSize, nil
	case ListByByteExtent:
		n, err := c.ev.EvalInt(c.byteExtentExpr.AST(), res)
		return n * 8, err
	default:
		return 0, types.NewError(types.ErrIncompatibleMeta, "terminator-delimited list has no statically computable size", -1)
	}
}

// SizeExpr implements codec.Codec.
func (c *ListCodec) SizeExpr() *types.Expression {
	switch c.discipline {
	case ListByCount:
		elemSize := c.elem.SizeExpr()
		if elemSize == nil {
			return nil
		}
		node := types.NewBinary("*", c.countExpr.AST(), elemSize.AST(), types.Integer, -1)
		return types.NewExpression(node, c.countExpr.Source()+" * "+elemSize.Source())
	case ListByByteExtent:
		node := types.NewBinary("*", c.byteExtentExpr.AST(), types.NewLiteralInt(8, -1), types.Integer, -1)
		return types.NewExpression(node, c.byteExtentExpr.Source()+" * 8")
	default:
		return nil
	}
}

// Type implements codec.Codec.
func (c *ListCodec) Type() reflect.Type { return c.sliceType }
