package preon_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/preon-go/preon"
	"github.com/preon-go/preon/pkg/metadata/directive"
	"github.com/preon-go/preon/pkg/parser"
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// Scenario A (spec.md §8): a length-prefixed byte payload round-trips
// through decode and encode unchanged.

type lengthPrefixedPacket struct {
	N       uint8  `preon:"bits=8"`
	Payload []byte `preon:"length=N"`
}

func TestConformanceLengthPrefixedPayload(t *testing.T) {
	src := directive.New(nil)
	input := []byte{0x03, 0x41, 0x42, 0x43}

	var p lengthPrefixedPacket
	if err := preon.Decode(input, &p, src); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.N != 3 {
		t.Fatalf("N = %d, want 3", p.N)
	}
	if !bytes.Equal(p.Payload, []byte{0x41, 0x42, 0x43}) {
		t.Fatalf("Payload = %v, want [0x41 0x42 0x43]", p.Payload)
	}

	out, err := preon.Encode(&p, src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("round-trip = % x, want % x", out, input)
	}
}

// Scenario B (spec.md §8): a guarded field is present only when its `if`
// expression evaluates true, and takes its Go zero value otherwise.

type guardedField struct {
	Flag uint8  `preon:"bits=8"`
	X    uint16 `preon:"bits=16,if=Flag==1"`
}

func TestConformanceGuardedField(t *testing.T) {
	src := directive.New(nil)

	t.Run("present", func(t *testing.T) {
		var g guardedField
		input := []byte{0x01, 0x00, 0x2A}
		if err := preon.Decode(input, &g, src); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if g.Flag != 1 || g.X != 42 {
			t.Fatalf("got Flag=%d X=%d, want Flag=1 X=42", g.Flag, g.X)
		}
		out, err := preon.Encode(&g, src)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(out, input) {
			t.Fatalf("round-trip = % x, want % x", out, input)
		}
	})

	t.Run("absent defaults to zero", func(t *testing.T) {
		var g guardedField
		input := []byte{0x00}
		if err := preon.Decode(input, &g, src); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if g.Flag != 0 || g.X != 0 {
			t.Fatalf("got Flag=%d X=%d, want both 0", g.Flag, g.X)
		}
		out, err := preon.Encode(&g, src)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(out, input) {
			t.Fatalf("round-trip = % x, want % x", out, input)
		}
	})
}

// Scenario C (spec.md §8): a discriminated union with no default branch
// raises a DecodingError naming the field that failed to dispatch when no
// guard matches.

type unionBody interface{ isUnionBody() }

type unionVariantA struct {
	Value uint8 `preon:"bits=8"`
}

func (unionVariantA) isUnionBody() {}

type unionVariantB struct {
	Value uint16 `preon:"bits=16"`
}

func (unionVariantB) isUnionBody() {}

type discriminatedUnion struct {
	Tag  uint8     `preon:"bits=8"`
	Body unionBody `preon:"choices=Tag==65:VariantA;Tag==66:VariantB"`
}

func TestConformanceDiscriminatedUnion(t *testing.T) {
	src := directive.New(map[string]reflect.Type{
		"VariantA": reflect.TypeOf(unionVariantA{}),
		"VariantB": reflect.TypeOf(unionVariantB{}),
	})

	t.Run("matching guard", func(t *testing.T) {
		var u discriminatedUnion
		if err := preon.Decode([]byte{0x41, 0x07}, &u, src); err != nil {
			t.Fatalf("decode: %v", err)
		}
		va, ok := u.Body.(unionVariantA)
		if !ok || va.Value != 7 {
			t.Fatalf("got Body=%#v, want unionVariantA{Value: 7}", u.Body)
		}
	})

	t.Run("unmatched guard with no default", func(t *testing.T) {
		var u discriminatedUnion
		err := preon.Decode([]byte{0x99}, &u, src)
		if err == nil {
			t.Fatal("expected a decoding error, got nil")
		}
		var pe *types.Error
		if !errors.As(err, &pe) {
			t.Fatalf("expected *types.Error, got %T: %v", err, err)
		}
		if pe.Code != types.ErrNoMatchingChoice {
			t.Fatalf("Code = %s, want %s", pe.Code, types.ErrNoMatchingChoice)
		}
		if pe.FieldPath != "Body" {
			t.Fatalf("FieldPath = %q, want %q", pe.FieldPath, "Body")
		}
	})
}

// Scenario D (spec.md §8): an absolute `@offset` override reads/writes a
// field at the declared bit position regardless of the widths of the
// fields preceding it, leaving the skipped span zero-filled on encode.

type offsetRecord struct {
	A uint8  `preon:"bits=8"`
	B uint8  `preon:"bits=8"`
	Y uint16 `preon:"bits=16,offset=32"`
}

func TestConformanceAbsoluteOffset(t *testing.T) {
	src := directive.New(nil)
	input := []byte{0x11, 0x22, 0x00, 0x00, 0x33, 0x44}

	var r offsetRecord
	if err := preon.Decode(input, &r, src); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.A != 0x11 || r.B != 0x22 || r.Y != 0x3344 {
		t.Fatalf("got A=%#x B=%#x Y=%#x, want A=0x11 B=0x22 Y=0x3344", r.A, r.B, r.Y)
	}

	out, err := preon.Encode(&r, src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("round-trip = % x, want % x (bytes 2-3 must be zero-padded)", out, input)
	}
}

// Scenario E (spec.md §8): sub-byte integer widths are read and written
// MSB-first, packing tightly within the byte.

type subByteFields struct {
	A uint8 `preon:"bits=3"`
	B uint8 `preon:"bits=5"`
}

func TestConformanceSubByteFieldsAreMSBFirst(t *testing.T) {
	src := directive.New(nil)
	input := []byte{0xAB} // 1010_1011

	var f subByteFields
	if err := preon.Decode(input, &f, src); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.A != 5 || f.B != 11 {
		t.Fatalf("got A=%d B=%d, want A=5 B=11", f.A, f.B)
	}

	out, err := preon.Encode(&f, src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("round-trip = % x, want % x", out, input)
	}
}

// Scenario F (spec.md §8): an expression's Document rendering is stable
// prose text that names every literal and reference it contains,
// independent of evaluating it against any particular Resolver.

// leafContext is a minimal reference.Context exposing a single Integer
// attribute "n", standing in for the struct context a codec factory would
// normally derive by reflection.
type leafContext struct {
	name  string
	attrs map[string]types.StaticType
}

func (c *leafContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	t, ok := c.attrs[name]
	if !ok {
		return nil, "", errors.New("no such attribute " + name)
	}
	return &leafContext{name: name}, t, nil
}

func (c *leafContext) Item() (reference.Context, types.StaticType, error) {
	return nil, "", errors.New(c.name + " is not indexable")
}

func (c *leafContext) Outer() (reference.Context, error) {
	return nil, errors.New("no enclosing scope")
}

func (c *leafContext) Name() string { return c.name }

func TestConformanceExpressionDocumentRendering(t *testing.T) {
	ctx := &leafContext{name: "root", attrs: map[string]types.StaticType{"n": types.Integer}}
	expr, err := parser.Parse("(n + 1) * 8", ctx)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	doc := expr.Document()
	for _, want := range []string{"n", "1", "8"} {
		if !bytes.Contains([]byte(doc), []byte(want)) {
			t.Errorf("Document() = %q, want it to contain %q", doc, want)
		}
	}
}
