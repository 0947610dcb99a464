// Package factory implements the codec factory pipeline of spec.md §4.8:
// given a Go struct type and a metadata.Source, it walks the type's field
// layout by reflection and compiles a tree of pkg/codec/pkg/binding values
// that can decode and encode it.
//
// # Architecture
//
// Compiling one type runs through three collaborators:
//   - SubFactory: "can you build a codec for this field" — the factory asks
//     each registered sub-factory in turn, first acceptor wins (spec.md §6
//     "sub-factories consulted in priority order").
//   - CodecDecorator / BindingDecorator: wrap a freshly built codec or
//     binding (e.g. to add instrumentation) before it is nested into its
//     parent.
//   - A per-Create build Session tracks recursion depth and an in-progress
//     registry keyed by reflect.Type, so a type that (transitively, through
//     a pointer or slice field) refers back to itself compiles to a
//     self-referential tree instead of looping forever.
//
// # Example
//
//	f := factory.New(factory.WithMaxDepth(32))
//	c, err := f.Create(reflect.TypeOf(Packet{}), directiveSource)
package factory

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/preon-go/preon/pkg/binding"
	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/cache"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/eval"
	"github.com/preon-go/preon/pkg/metadata"
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// evaluator is the subset of *eval.Evaluator the factory and the codecs it
// builds need.
type evaluator interface {
	EvalInt(n *types.Node, r resolver.Resolver) (int64, error)
	EvalBool(n *types.Node, r resolver.Resolver) (bool, error)
	Eval(expr *types.Expression, r resolver.Resolver) (interface{}, error)
}

// SubFactory builds a Codec for one field's Go type, consulted by the
// factory in registration order; the first whose Accepts returns true
// builds the field (spec.md §6). Struct-kind fields never reach a
// SubFactory: the factory recurses into them directly so the in-progress
// registry can see every struct it is compiling.
type SubFactory interface {
	Accepts(t reflect.Type, fd metadata.FieldDescriptor) bool
	Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error)
}

// CodecDecorator wraps a freshly built field codec before it is attached to
// its Binding.
type CodecDecorator func(codec.Codec, metadata.FieldDescriptor) codec.Codec

// BindingDecorator wraps a freshly built Binding before it is appended to
// its enclosing ObjectCodec.
type BindingDecorator func(*binding.Binding, metadata.FieldDescriptor) *binding.Binding

// cacheAware is implemented by a metadata.Source that wants to reuse the
// factory's expression cache for compiling repeated EL source text (e.g.
// pkg/metadata/directive, which re-parses the same `bits: n*8`-shaped tag
// text across many fields and types).
type cacheAware interface {
	UseCache(*cache.Cache)
}

// Factory compiles Go struct types into codec.Codec trees. The zero value
// is not usable; construct one with New.
type Factory struct {
	ev                evaluator
	builder           codec.Builder
	logger            *slog.Logger
	defaultEndian     bitio.ByteOrder
	maxDepth          int
	exprCache         *cache.Cache
	subFactories      []SubFactory
	codecDecorators   []CodecDecorator
	bindingDecorators []BindingDecorator
}

// FactoryOption configures a Factory built by New.
type FactoryOption func(*Factory)

// New builds a Factory with the built-in sub-factories for every primitive
// and combinator codec in pkg/codec, in big-endian/64-field-depth defaults,
// then applies opts.
func New(opts ...FactoryOption) *Factory {
	f := &Factory{
		ev:            eval.New(),
		builder:       codec.DefaultBuilder{},
		logger:        slog.Default(),
		defaultEndian: bitio.BigEndian,
		maxDepth:      64,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// WithLogger sets the logger the factory reports compiled-type diagnostics
// to. The default is slog.Default().
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// WithMaxDepth bounds struct recursion depth, guarding against a metadata
// source that describes an unbounded type graph (spec.md §6 "Non-goals"
// excludes schema validation, but a compile-time depth guard is cheap
// insurance the factory still owns).
func WithMaxDepth(n int) FactoryOption {
	return func(f *Factory) { f.maxDepth = n }
}

// WithCache installs an existing expression cache, shared across Factory
// instances or Create calls, for any metadata.Source that implements
// cacheAware.
func WithCache(c *cache.Cache) FactoryOption {
	return func(f *Factory) { f.exprCache = c }
}

// WithCaching is a convenience over WithCache that allocates a new
// capacity-bound cache.
func WithCaching(capacity int) FactoryOption {
	return func(f *Factory) { f.exprCache = cache.New(capacity) }
}

// WithDefaultEndian sets the byte order multi-byte numeric/float fields use
// when their field descriptor does not declare one explicitly. The
// built-in default is bitio.BigEndian.
func WithDefaultEndian(e bitio.ByteOrder) FactoryOption {
	return func(f *Factory) { f.defaultEndian = e }
}

// WithBuilder overrides the default decode-only Builder collaborator
// (spec.md §6) a caller gets back from Builder() when it does not supply
// its own to Decode; the factory default constructs every type with
// reflect.New.
func WithBuilder(b codec.Builder) FactoryOption {
	return func(f *Factory) { f.builder = b }
}

// Builder returns the Factory's default Builder, for a caller that wants
// Decode's zero-construction behaviour without building its own.
func (f *Factory) Builder() codec.Builder { return f.builder }

// WithSubFactories registers additional SubFactory implementations, tried
// before the built-ins in the order given.
func WithSubFactories(sf ...SubFactory) FactoryOption {
	return func(f *Factory) { f.subFactories = append(f.subFactories, sf...) }
}

// WithDecorators registers CodecDecorators and BindingDecorators applied,
// in order, to every field the factory compiles.
func WithDecorators(codecDecs []CodecDecorator, bindingDecs []BindingDecorator) FactoryOption {
	return func(f *Factory) {
		f.codecDecorators = append(f.codecDecorators, codecDecs...)
		f.bindingDecorators = append(f.bindingDecorators, bindingDecs...)
	}
}

// builtinSubFactories is the fixed dispatch order for every codec kind
// pkg/codec exposes. Choice and enum are checked before the plain numeric
// sub-factory since a choice field's Go type may itself be integer-kinded
// and an enum's underlying Kind always is.
var builtinSubFactories = []SubFactory{
	choiceSubFactory{},
	enumSubFactory{},
	booleanSubFactory{},
	floatSubFactory{},
	byteArraySubFactory{},
	stringSubFactory{},
	listSubFactory{},
	numericSubFactory{},
}

// Create compiles t (which must be a struct, or a pointer to one) into a
// codec.Codec using source to describe each composite type's fields.
func (f *Factory) Create(t reflect.Type, source metadata.Source) (codec.Codec, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("codec factory: root type must be a struct, got %s", t)
	}
	if f.exprCache != nil {
		if ca, ok := source.(cacheAware); ok {
			ca.UseCache(f.exprCache)
		}
	}
	s := &Session{factory: f, source: source, registry: make(map[reflect.Type]*lazyCodec)}
	c, err := s.BuildStruct(t, nil)
	if err != nil {
		return nil, err
	}
	return Unwrap(c), nil
}

// Session is the per-Create build state threaded through recursive struct
// and field compilation. It is not safe for concurrent use: a Factory is
// reentrant across independent Create calls (spec.md §5), but a single
// Create call walks the type graph depth-first on one goroutine.
type Session struct {
	factory  *Factory
	source   metadata.Source
	registry map[reflect.Type]*lazyCodec
	ctx      reference.Context
	depth    int
}

// Context returns the reference.Context of the struct currently being
// compiled, for a SubFactory that needs to recurse into a nested type (a
// list element, a choice branch) via BuildField.
func (s *Session) Context() reference.Context { return s.ctx }

// Evaluator returns the factory's evaluator, for a SubFactory building an
// EL-driven codec.
func (s *Session) Evaluator() evaluator { return s.factory.ev }

// DefaultEndian returns the factory's configured default byte order.
func (s *Session) DefaultEndian() bitio.ByteOrder { return s.factory.defaultEndian }

// BuildStruct compiles t's fields into an ObjectCodec, consulting source
// for t's field descriptors. A struct already in progress on this Session
// (a cycle through a pointer or slice field) returns the same lazyCodec
// placeholder every other reference to t received; it resolves once the
// original build completes, per spec.md §6 "forward references".
func (s *Session) BuildStruct(t reflect.Type, outerCtx reference.Context) (codec.Codec, error) {
	if lc, ok := s.registry[t]; ok {
		return lc, nil
	}
	if s.depth >= s.factory.maxDepth {
		return nil, fmt.Errorf("codec factory: max recursion depth %d exceeded building %s", s.factory.maxDepth, t)
	}

	lc := &lazyCodec{typ: t}
	s.registry[t] = lc
	s.depth++
	defer func() { s.depth-- }()

	ctx := newStructContext(t, outerCtx)
	prevCtx := s.ctx
	s.ctx = ctx
	defer func() { s.ctx = prevCtx }()

	fields, err := s.source.Fields(t, ctx)
	if err != nil {
		return nil, fmt.Errorf("codec factory: %s: %w", t, err)
	}

	bindings := make([]*binding.Binding, 0, len(fields))
	for _, fd := range fields {
		goField, ok := t.FieldByName(fd.Name)
		if !ok {
			return nil, fmt.Errorf("codec factory: %s has no field %q described by metadata", t, fd.Name)
		}

		fieldCodec, err := s.BuildField(goField.Type, fd, ctx)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		if fd.Meta.Extent != nil {
			fieldCodec = codec.NewSlice(fieldCodec, fd.Meta.Extent, s.factory.ev)
		}
		for _, dec := range s.factory.codecDecorators {
			fieldCodec = dec(fieldCodec, fd)
		}

		b := binding.New(fd.Name, fieldCodec, s.factory.ev)
		b.IfGuard = fd.Meta.If
		b.Offset = fd.Meta.Offset
		b.LengthHint = fd.Meta.Length
		b.Init = fd.Meta.Init
		for _, dec := range s.factory.bindingDecorators {
			b = dec(b, fd)
		}
		bindings = append(bindings, b)
	}

	obj := binding.NewObject(t, bindings, s.factory.ev)
	lc.resolved = obj
	s.factory.logger.Debug("codec factory compiled type", "type", t.String(), "fields", len(bindings))
	return lc, nil
}

// BuildField compiles the codec for one field: t's own type if it is a
// struct (recursing via BuildStruct so cycles are tracked), otherwise the
// first accepting SubFactory's result — user-registered ones before the
// built-ins.
func (s *Session) BuildField(t reflect.Type, fd metadata.FieldDescriptor, ctx reference.Context) (codec.Codec, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return s.BuildStruct(t, ctx)
	}
	for _, sf := range s.factory.subFactories {
		if sf.Accepts(t, fd) {
			return sf.Build(s, t, fd)
		}
	}
	for _, sf := range builtinSubFactories {
		if sf.Accepts(t, fd) {
			return sf.Build(s, t, fd)
		}
	}
	return nil, fmt.Errorf("codec factory: no sub-factory accepts field %q of type %s", fd.Name, t)
}

// lazyCodec stands in for a codec.Codec still being compiled, so a cyclic
// type graph can reference itself before its own build finishes. It
// forwards every call to the real codec once BuildStruct sets resolved.
type lazyCodec struct {
	typ      reflect.Type
	resolved codec.Codec
}

func (l *lazyCodec) Decode(buf *bitio.BitBuffer, res resolver.Resolver, b codec.Builder) (reflect.Value, error) {
	if l.resolved == nil {
		return reflect.Value{}, fmt.Errorf("codec factory: %s used before its codec finished building", l.typ)
	}
	return l.resolved.Decode(buf, res, b)
}

func (l *lazyCodec) Encode(value reflect.Value, ch *bitio.BitChannel, res resolver.Resolver) error {
	if l.resolved == nil {
		return fmt.Errorf("codec factory: %s used before its codec finished building", l.typ)
	}
	return l.resolved.Encode(value, ch, res)
}

func (l *lazyCodec) Size(res resolver.Resolver) (int64, error) {
	if l.resolved == nil {
		return 0, fmt.Errorf("codec factory: %s used before its codec finished building", l.typ)
	}
	return l.resolved.Size(res)
}

func (l *lazyCodec) SizeExpr() *types.Expression {
	if l.resolved == nil {
		return nil
	}
	return l.resolved.SizeExpr()
}

func (l *lazyCodec) Type() reflect.Type { return l.typ }

// Unwrap strips any lazyCodec wrapper from c, returning the concrete codec
// a fully-built tree resolved to. Used by documentation support that needs
// to type-assert down to *binding.ObjectCodec.
func Unwrap(c codec.Codec) codec.Codec {
	for {
		lc, ok := c.(*lazyCodec)
		if !ok || lc.resolved == nil {
			return c
		}
		c = lc.resolved
	}
}

// constIntExpr wraps a literal bit count in a parameterless *types.Expression,
// used by sub-factories whose width/size is implied by the Go type rather
// than parsed from EL source.
func constIntExpr(n int64) *types.Expression {
	return types.NewExpression(types.NewLiteralInt(n, -1), "")
}
