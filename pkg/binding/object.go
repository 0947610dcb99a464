package binding

import (
	"fmt"
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// ObjectCodec decodes and encodes a Go struct as an ordered sequence of
// Bindings (spec.md §4.5). It is the root combinator every other codec
// ultimately nests inside: a type declaration with binding metadata
// compiles to a tree rooted in exactly one ObjectCodec.
type ObjectCodec struct {
	structType reflect.Type
	bindings   []*Binding
	ev         evaluator
}

// NewObject builds an ObjectCodec over structType's bindings, in
// declaration order.
func NewObject(structType reflect.Type, bindings []*Binding, ev evaluator) *ObjectCodec {
	return &ObjectCodec{structType: structType, bindings: bindings, ev: ev}
}

// Bindings returns the codec's bindings, in declaration order, for
// introspection by the factory's documentation support.
func (c *ObjectCodec) Bindings() []*Binding { return c.bindings }

// Decode implements codec.Codec following spec.md §4.5's four-step
// algorithm.
func (c *ObjectCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, builder codec.Builder) (reflect.Value, error) {
	instance, err := builder.Construct(c.structType, res)
	if err != nil {
		return reflect.Value{}, types.NewRuntimeError(types.ErrNoSuchField, err.Error(), buf.Position(), "").WithCause(err)
	}
	if instance.Kind() == reflect.Pointer {
		instance = instance.Elem()
	}

	frame := resolver.NewChildOf(res)

	for _, b := range c.bindings {
		present, err := b.Present(frame)
		if err != nil {
			return reflect.Value{}, annotate(err, buf.Position(), b.ExposeName)
		}

		if !present {
			def, err := b.DefaultValue(frame)
			if err != nil {
				return reflect.Value{}, annotate(err, buf.Position(), b.ExposeName)
			}
			// With no Init the field takes the zero value of its own Go type,
			// which for a pointer field is nil rather than a zero pointee.
			if f := instance.FieldByName(b.FieldName); b.Init == nil && f.IsValid() {
				def = reflect.Zero(f.Type())
			}
			if err := setField(instance, b.FieldName, def); err != nil {
				return reflect.Value{}, types.NewRuntimeError(types.ErrNoSuchField, err.Error(), buf.Position(), b.ExposeName)
			}
			frame = frame.Bind(b.ExposeName, def.Interface())
			continue
		}

		offsetPos, hasOffset, err := b.AbsoluteOffset(frame)
		if err != nil {
			return reflect.Value{}, annotate(err, buf.Position(), b.ExposeName)
		}

		target := buf
		var restore int64 = -1
		if hasOffset {
			restore = buf.Position()
			if err := buf.Seek(offsetPos); err != nil {
				return reflect.Value{}, types.NewRuntimeError(types.ErrInvalidSeek, err.Error(), restore, b.ExposeName)
			}
		}

		v, err := b.Codec.Decode(target, frame, builder)
		if err != nil {
			return reflect.Value{}, annotate(err, buf.Position(), b.ExposeName)
		}

		if restore >= 0 {
			if err := buf.Seek(restore); err != nil {
				return reflect.Value{}, types.NewRuntimeError(types.ErrInvalidSeek, err.Error(), restore, b.ExposeName)
			}
		}

		if err := setField(instance, b.FieldName, v); err != nil {
			return reflect.Value{}, types.NewRuntimeError(types.ErrNoSuchField, err.Error(), buf.Position(), b.ExposeName)
		}
		frame = frame.Bind(b.ExposeName, v.Interface())
	}

	return instance, nil
}

// fragment is one binding's encoded bits, placed at an absolute bit
// position within the object's own span (spec.md §4.5 "Encode is
// symmetric"; see Encode's doc comment for the offset/natural-cursor
// bookkeeping this supports).
type fragment struct {
	startBit int64
	data     []byte
	nBits    int64
}

// Encode implements codec.Codec. Bindings with no offset override advance
// a running "natural" cursor exactly as decode's sequential reads would;
// an offset override places its bits at the declared absolute position
// without disturbing that cursor, mirroring decode's seek-then-restore
// (spec.md §4.5 step 3b) — so a binding after an offset field resumes
// from the position it would have held had the offset field never
// existed. The object is therefore assembled into a scratch byte buffer
// first, then spliced into ch in one shot, since ch itself is a
// sequential, append-only writer and cannot be seeked backward.
func (c *ObjectCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	for value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	frame := NewStructResolver(value, res)

	var fragments []fragment
	var naturalCursor int64

	for _, b := range c.bindings {
		present, err := b.Present(frame)
		if err != nil {
			return annotate(err, ch.Written(), b.ExposeName)
		}
		if !present {
			continue
		}

		fieldVal, err := fieldByName(value, b.FieldName)
		if err != nil {
			return types.NewRuntimeError(types.ErrNoSuchField, err.Error(), ch.Written(), b.ExposeName)
		}

		scratch := bitio.NewBitChannel(bitio.BigEndian)
		if err := b.Codec.Encode(fieldVal, scratch, frame); err != nil {
			return annotate(err, ch.Written(), b.ExposeName)
		}
		nBits := scratch.Written()

		offsetPos, hasOffset, err := b.AbsoluteOffset(frame)
		if err != nil {
			return annotate(err, ch.Written(), b.ExposeName)
		}

		start := naturalCursor
		if hasOffset {
			start = offsetPos
		} else {
			naturalCursor += nBits
		}
		fragments = append(fragments, fragment{startBit: start, data: scratch.Bytes(), nBits: nBits})
	}

	totalBits := naturalCursor
	for _, f := range fragments {
		if f.startBit+f.nBits > totalBits {
			totalBits = f.startBit + f.nBits
		}
	}

	dst := make([]byte, (totalBits+7)/8)
	for _, f := range fragments {
		writeBitsAt(dst, f.startBit, f.data, f.nBits)
	}

	if err := ch.WriteRaw(dst, totalBits); err != nil {
		return types.NewRuntimeError(types.ErrBitOverflow, err.Error(), ch.Written(), "").WithCause(err)
	}
	return nil
}

// Size implements codec.Codec: the EL-sum of children's sizes, each
// guarded by its own `if` (spec.md §4.5 "a conditional binding contributes
// if(g, childSize, 0)").
func (c *ObjectCodec) Size(res resolver.Resolver) (int64, error) {
	var total int64
	for _, b := range c.bindings {
		n, err := b.Size(res)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// SizeExpr implements codec.Codec. It folds to a literal only when every
// binding is unconditional and every child size is itself parameterless;
// otherwise there is no single build-time expression to return, so this
// reports nil (the caller falls back to runtime Size()).
func (c *ObjectCodec) SizeExpr() *types.Expression {
	var total int64
	for _, b := range c.bindings {
		if b.IfGuard != nil {
			return nil
		}
		e := b.Codec.SizeExpr()
		if e == nil || !e.IsParameterless() {
			return nil
		}
		n, err := b.ev.EvalInt(e.AST(), resolver.NewRoot())
		if err != nil {
			return nil
		}
		total += n
	}
	return constExprFromTotal(total)
}

// Type implements codec.Codec.
func (c *ObjectCodec) Type() reflect.Type { return c.structType }

func constExprFromTotal(n int64) *types.Expression {
	return types.NewExpression(types.NewLiteralInt(n, -1), "")
}

// annotate attaches a field path and (if missing) a bit position to err,
// so a DecodingError/EncodingError bubbling up through nested ObjectCodecs
// carries the innermost failing field's path (spec.md §7 "runtime errors
// must report the buffer bit-position and the originating field path").
func annotate(err error, bitPos int64, field string) error {
	pe, ok := err.(*types.Error)
	if !ok {
		return err
	}
	if pe.FieldPath == "" {
		pe.FieldPath = field
	} else {
		pe.FieldPath = field + "." + pe.FieldPath
	}
	if pe.BitPosition < 0 {
		pe.BitPosition = bitPos
	}
	return pe
}

func setField(instance reflect.Value, name string, v reflect.Value) error {
	f := instance.FieldByName(name)
	if !f.IsValid() {
		return fmt.Errorf("no field %q on %s", name, instance.Type())
	}
	if !f.CanSet() {
		return fmt.Errorf("field %q on %s is not settable", name, instance.Type())
	}
	f.Set(v.Convert(f.Type()))
	return nil
}

func fieldByName(value reflect.Value, name string) (reflect.Value, error) {
	f := value.FieldByName(name)
	if !f.IsValid() {
		return reflect.Value{}, fmt.Errorf("no field %q on %s", name, value.Type())
	}
	return f, nil
}

// writeBitsAt ORs the top nBits (MSB-first) of src into dst, starting at
// absolute bit offset startBit. dst must already be large enough to hold
// startBit+nBits bits.
func writeBitsAt(dst []byte, startBit int64, src []byte, nBits int64) {
	for i := int64(0); i < nBits; i++ {
		srcByte := src[i/8]
		bit := (srcByte >> uint(7-(i%8))) & 1
		if bit == 0 {
			continue
		}
		dPos := startBit + i
		dst[dPos/8] |= 1 << uint(7-(dPos%8))
	}
}
