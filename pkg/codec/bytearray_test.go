package codec_test

import (
	"reflect"
	"testing"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/eval"
	"github.com/preon-go/preon/pkg/resolver"
)

func TestByteArrayCodecRoundTrip(t *testing.T) {
	ev := eval.New()
	c := codec.NewByteArray(literalExpr(3), ev)

	ch := bitio.NewBitChannel(bitio.BigEndian)
	want := []byte{0x01, 0x02, 0x03}
	if err := c.Encode(reflect.ValueOf(want), ch, resolver.NewRoot()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	buf := bitio.NewBitBuffer(ch.Bytes(), bitio.BigEndian)
	v, err := c.Decode(buf, resolver.NewRoot(), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := v.Interface().([]byte); !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestByteArrayCodecLengthMismatchOnEncode(t *testing.T) {
	ev := eval.New()
	c := codec.NewByteArray(literalExpr(4), ev)
	ch := bitio.NewBitChannel(bitio.BigEndian)
	err := c.Encode(reflect.ValueOf([]byte{1, 2}), ch, resolver.NewRoot())
	if err == nil {
		t.Fatal("expected an error encoding a slice shorter than its declared length")
	}
}

func TestByteArrayCodecSizeExprIsLengthTimesEight(t *testing.T) {
	ev := eval.New()
	c := codec.NewByteArray(literalExpr(5), ev)
	n, err := c.Size(resolver.NewRoot())
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 40 {
		t.Fatalf("Size = %d, want 40", n)
	}
	se := c.SizeExpr()
	if se == nil {
		t.Fatal("SizeExpr returned nil")
	}
	got, err := ev.EvalInt(se.AST(), resolver.NewRoot())
	if err != nil || got != 40 {
		t.Fatalf("SizeExpr evaluates to %d, err %v; want 40", got, err)
	}
}
