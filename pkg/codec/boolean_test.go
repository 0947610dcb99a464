package codec_test

import (
	"reflect"
	"testing"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/resolver"
)

func TestBooleanCodecRoundTrip(t *testing.T) {
	c := codec.NewBoolean()
	for _, want := range []bool{true, false} {
		ch := bitio.NewBitChannel(bitio.BigEndian)
		if err := c.Encode(reflect.ValueOf(want), ch, resolver.NewRoot()); err != nil {
			t.Fatalf("Encode(%v): %v", want, err)
		}
		buf := bitio.NewBitBuffer(ch.Bytes(), bitio.BigEndian)
		v, err := c.Decode(buf, resolver.NewRoot(), nil)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got := v.Bool(); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBooleanCodecSizeIsOneBit(t *testing.T) {
	c := codec.NewBoolean()
	n, err := c.Size(resolver.NewRoot())
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 1 {
		t.Fatalf("Size = %d, want 1", n)
	}
}
