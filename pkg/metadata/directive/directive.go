// Package directive implements a metadata.Source that reads binding
// metadata from Go struct tags, the replacement spec.md §1 names for the
// Java-annotation-scanner it deliberately leaves out of scope: "any
// metadata source that yields the field descriptors defined in §3".
//
// A tagged field looks like:
//
//	type Header struct {
//	    Length uint16 `preon:"bits=16"`
//	    Flag   uint8  `preon:"bits=1"`
//	    Body   []byte `preon:"length=Length"`
//	}
//
// The tag's value is a comma-separated list of key[=value] entries; value
// is either a literal (a type name, a charset name, a termination mode) or
// EL source text parsed against the field's enclosing struct context. A
// field with no preon tag at all is not part of the wire format and is
// skipped — Fields only describes tagged fields, mirroring how a
// hand-built metadata.Source would only enumerate the fields it knows
// about.
package directive

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/cache"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/metadata"
	"github.com/preon-go/preon/pkg/parser"
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// entry is one key[=value] directive, e.g. `bits=8` or the bare flag
// `includeterm`.
type entry struct {
	Key   string `parser:"@Ident"`
	Value string `parser:"('=' @Value)?"`
}

// directive is the full parsed content of one struct tag.
type directiveAST struct {
	Entries []*entry `parser:"@@ (',' @@)*"`
}

// directiveLexer tokenizes "key=value,key,key=value" text. It switches into
// the Value state right after '=' so a value containing EL operators (e.g.
// `a==b`, `n*8`) is captured whole rather than re-tokenized as identifiers;
// EL itself never contains a comma (pkg/parser's grammar has no call-
// argument-list syntax), so "everything up to the next comma" is always
// exactly one value.
var directiveLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "whitespace", Pattern: `\s+`},
		{Name: "Comma", Pattern: `,`},
		{Name: "Eq", Pattern: `=`, Action: lexer.Push("Value")},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	},
	"Value": {
		{Name: "Value", Pattern: `[^,]+`, Action: lexer.Pop()},
	},
})

var directiveParser = participle.MustBuild[directiveAST](
	participle.Lexer(directiveLexer),
	participle.Elide("whitespace"),
)

// Source reads metadata.Bag values from a struct tag (by default "preon").
// Choice and default branches name their Go types by string, resolved
// through a caller-supplied registry — reflection alone cannot turn
// "PacketV2" back into a reflect.Type.
type Source struct {
	tagKey string
	types  map[string]reflect.Type
	cache  *cache.Cache
}

// Option configures a Source built by New.
type Option func(*Source)

// WithTagKey overrides the struct tag key; the default is "preon".
func WithTagKey(key string) Option {
	return func(s *Source) { s.tagKey = key }
}

// New builds a Source. types maps every name a `choices:`/`default:` entry
// may reference to the concrete struct type it selects.
func New(types map[string]reflect.Type, opts ...Option) *Source {
	s := &Source{tagKey: "preon", types: types}
	for _, o := range opts {
		o(s)
	}
	return s
}

// UseCache installs an expression cache for compiling repeated EL source
// text; the codec factory wires this in automatically when it is itself
// configured with factory.WithCache/WithCaching.
func (s *Source) UseCache(c *cache.Cache) { s.cache = c }

// Fields implements metadata.Source.
func (s *Source) Fields(t reflect.Type, ctx reference.Context) ([]metadata.FieldDescriptor, error) {
	var out []metadata.FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup(s.tagKey)
		if !ok {
			continue
		}
		fd := metadata.FieldDescriptor{Name: f.Name, Type: f.Type}
		if err := s.parseTag(tag, ctx, &fd.Meta); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out = append(out, fd)
	}
	return out, nil
}

func (s *Source) parseTag(tag string, ctx reference.Context, bag *metadata.Bag) error {
	ast, err := directiveParser.ParseString("", tag)
	if err != nil {
		return fmt.Errorf("invalid directive tag %q: %w", tag, err)
	}

	for _, e := range ast.Entries {
		if err := s.applyEntry(e, ctx, bag); err != nil {
			return fmt.Errorf("%s: %w", e.Key, err)
		}
	}
	return nil
}

func (s *Source) applyEntry(e *entry, ctx reference.Context, bag *metadata.Bag) error {
	switch strings.ToLower(e.Key) {
	case "bits":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Bits = expr

	case "endian":
		bag.EndianSet = true
		switch strings.ToLower(e.Value) {
		case "big", "":
			bag.Endian = uint8(bitio.BigEndian)
		case "little":
			bag.Endian = uint8(bitio.LittleEndian)
		default:
			return fmt.Errorf("unknown endian %q", e.Value)
		}

	case "if":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.If = expr

	case "length":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Length = expr

	case "lengthbytes":
		bag.LengthIsBytes = true

	case "offset":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Offset = expr

	case "extent":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Extent = expr

	case "choices":
		opts, err := s.parseChoices(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Choices = opts

	case "default":
		t, ok := s.types[e.Value]
		if !ok {
			return fmt.Errorf("unregistered type name %q", e.Value)
		}
		bag.Default = t

	case "terminator":
		n, err := strconv.ParseUint(e.Value, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid terminator byte %q: %w", e.Value, err)
		}
		bag.Terminator = []byte{byte(n)}
		bag.TerminatorSet = true

	case "includeterm":
		bag.IncludeTerminator = true

	case "charset":
		bag.Charset = e.Value

	case "term":
		bag.StringTermSet = true
		switch strings.ToLower(e.Value) {
		case "none":
			bag.StringTerm = int(codec.TermNone)
		case "zero":
			bag.StringTerm = int(codec.TermZeroByte)
		case "lenprefixed":
			bag.StringTerm = int(codec.TermLengthPrefixed)
		default:
			return fmt.Errorf("unknown string termination %q", e.Value)
		}

	case "init":
		expr, err := s.compileEL(e.Value, ctx)
		if err != nil {
			return err
		}
		bag.Init = expr

	default:
		return fmt.Errorf("unknown directive key %q", e.Key)
	}
	return nil
}

// parseChoices reads "guard1:Type1;guard2:Type2" into ChoiceOptions.
func (s *Source) parseChoices(value string, ctx reference.Context) ([]metadata.ChoiceOption, error) {
	var opts []metadata.ChoiceOption
	for _, branch := range strings.Split(value, ";") {
		guardSrc, typeName, ok := strings.Cut(branch, ":")
		if !ok {
			return nil, fmt.Errorf("malformed choice branch %q, want guard:TypeName", branch)
		}
		t, ok := s.types[typeName]
		if !ok {
			return nil, fmt.Errorf("unregistered type name %q", typeName)
		}
		guard, err := s.compileEL(guardSrc, ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metadata.ChoiceOption{Guard: guard, Type: t})
	}
	return opts, nil
}

func (s *Source) compileEL(text string, ctx reference.Context) (*types.Expression, error) {
	if s.cache == nil {
		return parser.Parse(text, ctx)
	}
	return s.cache.GetOrCompile(ctx, text, func() (*types.Expression, error) {
		return parser.Parse(text, ctx)
	})
}
