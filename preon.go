// Package preon implements the Preon binary-format framework: a
// declarative codec built by reflecting over a Go struct's field layout
// plus a small metadata source, capable of decoding and encoding that
// struct's binary representation without either its fields' widths or its
// framing being hard-coded into hand-written parsing code.
//
// # Quick start
//
//	type Header struct {
//	    Length uint16 `preon:"bits=16"`
//	    Flag   uint8  `preon:"bits=1"`
//	    Body   []byte `preon:"length=Length"`
//	}
//
//	src := directive.New(nil)
//	h := &Header{}
//	if err := preon.Decode(data, h, src); err != nil {
//	    log.Fatal(err)
//	}
//
// For repeated decode/encode of the same type, compile once with Create
// and reuse the returned Codec — it is immutable and safe for concurrent
// use once built (spec.md §5).
//
// # More information
//
// For detailed documentation, see:
//   - Expression language: github.com/preon-go/preon/pkg/eval, pkg/parser
//   - Codec primitives and combinators: github.com/preon-go/preon/pkg/codec
//   - Binding layer: github.com/preon-go/preon/pkg/binding
//   - Codec factory pipeline: github.com/preon-go/preon/pkg/factory
//   - Struct-tag metadata source: github.com/preon-go/preon/pkg/metadata/directive
package preon

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/preon-go/preon/pkg/binding"
	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/factory"
	"github.com/preon-go/preon/pkg/metadata"
	"github.com/preon-go/preon/pkg/resolver"
)

// Version returns the current version of this module.
func Version() string {
	return "v0.1.0-dev"
}

// Options configures Create, Decode, and Encode.
type Options struct {
	logger        *slog.Logger
	byteOrder     bitio.ByteOrder
	factoryOpts   []factory.FactoryOption
	builder       codec.Builder
}

// Option configures an Options value built up by Create/Decode/Encode.
type Option func(*Options)

// WithLogger sets the logger decode/encode failures are reported to at
// Debug level, alongside the field path and bit position (spec.md's
// ambient stack: errors are still returned, never swallowed).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithByteOrder selects the buffer's byte order for multi-byte fields that
// do not declare their own; the default is big-endian.
func WithByteOrder(order bitio.ByteOrder) Option {
	return func(o *Options) { o.byteOrder = order }
}

// WithFactoryOptions forwards options to the underlying codec factory
// (factory.WithMaxDepth, factory.WithCaching, factory.WithSubFactories,
// and so on).
func WithFactoryOptions(opts ...factory.FactoryOption) Option {
	return func(o *Options) { o.factoryOpts = append(o.factoryOpts, opts...) }
}

// WithBuilder overrides the decode-only Builder collaborator (spec.md §6);
// the default constructs every type with reflect.New.
func WithBuilder(b codec.Builder) Option {
	return func(o *Options) { o.builder = b }
}

func newOptions(opts []Option) *Options {
	o := &Options{logger: slog.Default(), byteOrder: bitio.BigEndian}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create compiles v's type (a struct, or pointer to one) into a reusable
// Codec, consulting source for its field metadata. Compile once and reuse
// the result across many Decode/Encode calls — a compiled Codec is
// immutable and safe for concurrent use (spec.md §5).
func Create(v interface{}, source metadata.Source, opts ...Option) (codec.Codec, error) {
	o := newOptions(opts)
	f := factory.New(append([]factory.FactoryOption{factory.WithLogger(o.logger)}, o.factoryOpts...)...)
	return f.Create(reflect.TypeOf(v), source)
}

// Decode reads data into v (a pointer to the struct to populate), compiling
// v's type against source on every call. For repeated decoding of the same
// type, compile once with Create and call DecodeWith instead.
func Decode(data []byte, v interface{}, source metadata.Source, opts ...Option) error {
	c, err := Create(v, source, opts...)
	if err != nil {
		return err
	}
	return DecodeWith(c, data, v, opts...)
}

// DecodeWith decodes data using an already-compiled Codec (from Create),
// populating v in place.
func DecodeWith(c codec.Codec, data []byte, v interface{}, opts ...Option) error {
	o := newOptions(opts)
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("preon: Decode target must be a non-nil pointer, got %s", target.Type())
	}

	buf := bitio.NewBitBuffer(data, o.byteOrder)
	builder := o.builder
	if builder == nil {
		builder = codec.DefaultBuilder{}
	}

	decoded, err := c.Decode(buf, resolver.NewRoot(), builder)
	if err != nil {
		o.logger.Debug("preon: decode failed", "error", err)
		return err
	}
	target.Elem().Set(decoded.Convert(target.Elem().Type()))
	return nil
}

// Encode compiles v's type against source and writes its binary
// representation. For repeated encoding of the same type, compile once
// with Create and call EncodeWith instead.
func Encode(v interface{}, source metadata.Source, opts ...Option) ([]byte, error) {
	c, err := Create(v, source, opts...)
	if err != nil {
		return nil, err
	}
	return EncodeWith(c, v, opts...)
}

// EncodeWith encodes v using an already-compiled Codec (from Create).
func EncodeWith(c codec.Codec, v interface{}, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	ch := bitio.NewBitChannel(o.byteOrder)
	if err := c.Encode(reflect.ValueOf(v), ch, resolver.NewRoot()); err != nil {
		o.logger.Debug("preon: encode failed", "error", err)
		return nil, err
	}
	return ch.Bytes(), nil
}

// Document renders a compiled Codec's field layout as prose: one line per
// binding, naming its field, its size expression, and (if present) its
// presence guard and offset override (spec.md §9 supplemented feature,
// mirroring the original Java implementation's Codecs.document).
func Document(c codec.Codec) string {
	obj, ok := factory.Unwrap(c).(*binding.ObjectCodec)
	if !ok {
		return documentLeaf(c)
	}

	var out string
	out += obj.Type().String() + ":\n"
	for _, b := range obj.Bindings() {
		out += "  " + b.ExposeName + ": " + documentLeaf(b.Codec)
		if b.IfGuard != nil {
			out += " if " + b.IfGuard.Document()
		}
		if b.Offset != nil {
			out += " at offset " + b.Offset.Document()
		}
		out += "\n"
	}
	return out
}

func documentLeaf(c codec.Codec) string {
	if inner, ok := factory.Unwrap(c).(*binding.ObjectCodec); ok {
		return inner.Type().String()
	}
	expr := c.SizeExpr()
	if expr == nil {
		return fmt.Sprintf("%s (data-dependent size)", c.Type())
	}
	return fmt.Sprintf("%s (%s bits)", c.Type(), expr.Document())
}
