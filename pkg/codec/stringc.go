package codec

import (
	"bytes"
	"reflect"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

var stringType = reflect.TypeOf("")

// Termination selects how a StringCodec locates the end of a string's
// byte extent (spec.md §4.4 "termination policies: {none, zero-byte,
// length-prefixed}").
type Termination int

const (
	// TermNone reads exactly lengthExpr bytes; no terminator is scanned.
	TermNone Termination = iota
	// TermZeroByte reads until a 0x00 byte (not included in the decoded
	// string), bounded by lengthExpr if set, by the buffer's end otherwise.
	TermZeroByte
	// TermLengthPrefixed reads a one-byte length prefix, then that many
	// bytes; lengthExpr is ignored in this mode.
	TermLengthPrefixed
)

// charsets maps the names spec.md §6's `charset: name` option accepts to a
// golang.org/x/text/encoding.Encoding used to transcode the wire bytes to
// and from UTF-8. A nil entry (and any unrecognised name) means "already
// UTF-8", the zero-cost identity transform.
var charsets = map[string]encoding.Encoding{
	"":           nil,
	"utf-8":      nil,
	"utf8":       nil,
	"ascii":      nil,
	"latin1":     charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
	"utf-16be":   unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16le":   unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
}

// StringCodec decodes fixed-length or terminated strings, optionally
// transcoding from a named charset (spec.md §4.4 "StringCodec(lengthExpr,
// charset, termination)").
type StringCodec struct {
	lengthExpr *types.Expression // nil when termination makes it inapplicable
	charset    string
	term       Termination
	ev         evaluator
}

// NewString builds a StringCodec.
func NewString(lengthExpr *types.Expression, charset string, term Termination, ev evaluator) *StringCodec {
	return &StringCodec{lengthExpr: lengthExpr, charset: charset, term: term, ev: ev}
}

func (c *StringCodec) enc() encoding.Encoding { return charsets[c.charset] }

func (c *StringCodec) decodeBytes(raw []byte) (string, error) {
	enc := c.enc()
	if enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", types.NewRuntimeError(types.ErrValueOutOfRange, "invalid "+c.charset+" byte sequence", -1, "").WithCause(err)
	}
	return string(out), nil
}

func (c *StringCodec) encodeBytes(s string) ([]byte, error) {
	enc := c.enc()
	if enc == nil {
		return []byte(s), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, types.NewRuntimeError(types.ErrValueOutOfRange, "string is not representable in "+c.charset, -1, "").WithCause(err)
	}
	return out, nil
}

// Decode implements codec.Codec.
func (c *StringCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, _ Builder) (reflect.Value, error) {
	switch c.term {
	case TermLengthPrefixed:
		n, err := buf.ReadBits(8)
		if err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
		}
		raw, err := buf.ReadByteSlice(int(n))
		if err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
		}
		s, err := c.decodeBytes(raw)
		return reflect.ValueOf(s), err

	case TermZeroByte:
		max := buf.Remaining() / 8
		if c.lengthExpr != nil {
			n, err := c.ev.EvalInt(c.lengthExpr.AST(), res)
			if err != nil {
				return reflect.Value{}, err
			}
			max = n
		}
		var out []byte
		for int64(len(out)) < max {
			b, err := buf.ReadBits(8)
			if err != nil {
				return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
			}
			if b == 0 {
				s, err := c.decodeBytes(out)
				return reflect.ValueOf(s), err
			}
			out = append(out, byte(b))
		}
		return reflect.Value{}, types.NewRuntimeError(types.ErrTerminatorMissing, "null terminator not found within declared extent", buf.Position(), "")

	default: // TermNone
		n, err := c.ev.EvalInt(c.lengthExpr.AST(), res)
		if err != nil {
			return reflect.Value{}, err
		}
		raw, err := buf.ReadByteSlice(int(n))
		if err != nil {
			return reflect.Value{}, wrapBufferErr(types.ErrBufferUnderflow, err, buf.Position())
		}
		s, err := c.decodeBytes(raw)
		return reflect.ValueOf(s), err
	}
}

// Encode implements codec.Codec.
func (c *StringCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	raw, err := c.encodeBytes(value.String())
	if err != nil {
		return err
	}

	switch c.term {
	case TermLengthPrefixed:
		if len(raw) > 0xff {
			return types.NewRuntimeError(types.ErrValueOutOfRange, "string too long for a one-byte length prefix", ch.Written(), "")
		}
		if err := ch.WriteBits(uint64(len(raw)), 8); err != nil {
			return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
		}
		if err := ch.WriteByteSlice(raw); err != nil {
			return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
		}
		return nil

	case TermZeroByte:
		if bytes.IndexByte(raw, 0) >= 0 {
			return types.NewRuntimeError(types.ErrValueOutOfRange, "string contains an embedded zero byte", ch.Written(), "")
		}
		if err := ch.WriteByteSlice(raw); err != nil {
			return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
		}
		return ch.WriteBits(0, 8)

	default: // TermNone
		n, err := c.ev.EvalInt(c.lengthExpr.AST(), res)
		if err != nil {
			return err
		}
		if int64(len(raw)) != n {
			return types.NewRuntimeError(types.ErrValueOutOfRange, "encoded string length does not match declared length", ch.Written(), "")
		}
		if err := ch.WriteByteSlice(raw); err != nil {
			return wrapBufferErr(types.ErrBitOverflow, err, ch.Written())
		}
		return nil
	}
}

// Size implements codec.Codec. Terminated forms have no parameterless
// size; this returns an error when called before the relevant bytes are
// known, matching the combinators' use of Size only for by-count/fixed
// fields.
func (c *StringCodec) Size(res resolver.Resolver) (int64, error) {
	switch c.term {
	case TermNone:
		n, err := c.ev.EvalInt(c.lengthExpr.AST(), res)
		return n * 8, err
	default:
		return 0, types.NewError(types.ErrIncompatibleMeta, "terminated StringCodec has no statically computable size", -1)
	}
}

// SizeExpr implements codec.Codec.
func (c *StringCodec) SizeExpr() *types.Expression {
	if c.term != TermNone {
		return nil
	}
	node := types.NewBinary("*", c.lengthExpr.AST(), types.NewLiteralInt(8, -1), types.Integer, -1)
	return types.NewExpression(node, c.lengthExpr.Source()+" * 8")
}

// Type implements codec.Codec.
func (c *StringCodec) Type() reflect.Type { return stringType }
