package factory_test

import (
	"reflect"
	"testing"

	"github.com/preon-go/preon"
	"github.com/preon-go/preon/pkg/factory"
	"github.com/preon-go/preon/pkg/metadata/directive"
)

type innerBody struct {
	A uint8 `preon:"bits=8"`
	B uint8 `preon:"bits=8"`
}

// reservedRecord exercises the extent= directive end to end: Body is
// declared to occupy exactly 16 bits (its own natural width), while Tail
// reserves 24 bits for a single byte, leaving 16 bits of padding a future
// format revision could use.
type reservedRecord struct {
	Body innerBody `preon:"extent=16"`
	Tail uint8     `preon:"bits=8,extent=24"`
	Next uint8     `preon:"bits=8"`
}

func TestFactoryWiresExtentIntoSliceCodec(t *testing.T) {
	src := directive.New(nil)
	data := []byte{0x01, 0x02, 0x09, 0xff, 0xff, 0x77}

	var rec reservedRecord
	if err := preon.Decode(data, &rec, src); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Body.A != 1 || rec.Body.B != 2 {
		t.Fatalf("Body = %+v, want {A:1 B:2}", rec.Body)
	}
	if rec.Tail != 9 {
		t.Fatalf("Tail = %d, want 9", rec.Tail)
	}
	if rec.Next != 0x77 {
		t.Fatalf("Next = %#x, want 0x77 (read after the 24-bit reserved region, not the 8-bit Tail)", rec.Next)
	}
}

func TestFactoryExtentMismatchFailsOnEncode(t *testing.T) {
	src := directive.New(nil)
	rec := reservedRecord{Body: innerBody{A: 1, B: 2}, Tail: 9, Next: 0x77}

	_, err := preon.Encode(&rec, src)
	if err == nil {
		t.Fatal("expected an error encoding Tail: its 8-bit NumericCodec cannot fill the declared 24-bit extent")
	}
}

func TestFactoryExtentExactFillEncodesSuccessfully(t *testing.T) {
	src := directive.New(nil)
	type exactRecord struct {
		Body innerBody `preon:"extent=16"`
	}
	rec := exactRecord{Body: innerBody{A: 0x0a, B: 0x0b}}

	data, err := preon.Encode(&rec, src)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x0a, 0x0b}
	if !reflect.DeepEqual(data, want) {
		t.Fatalf("got % x, want % x", data, want)
	}
}

type linked struct {
	Value uint8 `preon:"bits=8"`
	// Next refers back to linked's own type; it is guarded off (`if=false`)
	// so nothing ever decodes through it at runtime, but the factory must
	// still compile a codec for it at build time without looping forever.
	Next *linked `preon:"if=false"`
}

func TestFactoryBuildStructHandlesForwardReferenceCycle(t *testing.T) {
	f := factory.New()
	src := directive.New(nil)
	c, err := f.Create(reflect.TypeOf(linked{}), src)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var out linked
	if err := preon.DecodeWith(c, []byte{0x2a}, &out); err != nil {
		t.Fatalf("DecodeWith: %v", err)
	}
	if out.Value != 0x2a {
		t.Fatalf("Value = %#x, want 0x2a", out.Value)
	}
	if out.Next != nil {
		t.Fatal("Next must stay nil: its guard is always false")
	}
}
