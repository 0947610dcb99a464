package bitio_test

import (
	"bytes"
	"testing"

	"github.com/preon-go/preon/pkg/bitio"
)

func TestReadBitsMSBFirst(t *testing.T) {
	buf := bitio.NewBitBuffer([]byte{0xAB}, bitio.BigEndian) // 1010_1011
	a, err := buf.ReadBits(3)
	if err != nil {
		t.Fatalf("ReadBits(3): %v", err)
	}
	if a != 0x5 {
		t.Fatalf("first 3 bits = %#x, want 0x5", a)
	}
	b, err := buf.ReadBits(5)
	if err != nil {
		t.Fatalf("ReadBits(5): %v", err)
	}
	if b != 0xB {
		t.Fatalf("last 5 bits = %#x, want 0xb", b)
	}
}

func TestReadSignedSignExtends(t *testing.T) {
	// 0b101 as a 3-bit two's-complement value is -3.
	buf := bitio.NewBitBuffer([]byte{0b1010_0000}, bitio.BigEndian)
	v, err := buf.ReadSigned(3)
	if err != nil {
		t.Fatalf("ReadSigned: %v", err)
	}
	if v != -3 {
		t.Fatalf("ReadSigned(3) = %d, want -3", v)
	}
}

func TestSeekAndSlice(t *testing.T) {
	buf := bitio.NewBitBuffer([]byte{0x11, 0x22, 0x33}, bitio.BigEndian)
	if err := buf.Seek(8); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	v, err := buf.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	if v != 0x22 {
		t.Fatalf("byte at bit 8 = %#x, want 0x22", v)
	}

	sub, err := buf.Slice(8, 16)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if sub.Len() != 16 {
		t.Fatalf("sliced buffer Len() = %d, want 16", sub.Len())
	}
	sv, err := sub.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits on slice: %v", err)
	}
	if sv != 0x22 {
		t.Fatalf("sliced buffer first byte = %#x, want 0x22", sv)
	}
}

func TestReadBitsUnderflow(t *testing.T) {
	buf := bitio.NewBitBuffer([]byte{0x00}, bitio.BigEndian)
	if _, err := buf.ReadBits(9); err == nil {
		t.Fatal("expected an underflow error reading 9 bits from 1 byte")
	}
}

func TestEndianSwapRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		order bitio.ByteOrder
	}{
		{"big endian", bitio.BigEndian},
		{"little endian", bitio.LittleEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := bitio.NewBitChannel(tt.order)
			if err := ch.WriteUintEndian(0x1234, 16, tt.order); err != nil {
				t.Fatalf("WriteUintEndian: %v", err)
			}
			buf := bitio.NewBitBuffer(ch.Bytes(), tt.order)
			v, err := buf.ReadUintEndian(16, tt.order)
			if err != nil {
				t.Fatalf("ReadUintEndian: %v", err)
			}
			if v != 0x1234 {
				t.Fatalf("round-trip = %#x, want 0x1234", v)
			}
		})
	}
}

func TestBitChannelWriteBitsRoundTrip(t *testing.T) {
	ch := bitio.NewBitChannel(bitio.BigEndian)
	if err := ch.WriteBits(0x5, 3); err != nil {
		t.Fatalf("WriteBits(0x5, 3): %v", err)
	}
	if err := ch.WriteBits(0xB, 5); err != nil {
		t.Fatalf("WriteBits(0xB, 5): %v", err)
	}
	if got := ch.Bytes(); !bytes.Equal(got, []byte{0xAB}) {
		t.Fatalf("Bytes() = % x, want [0xab]", got)
	}
}

func TestBitChannelWriteRawRoundTrip(t *testing.T) {
	ch := bitio.NewBitChannel(bitio.BigEndian)
	if err := ch.WriteRaw([]byte{0x11, 0x22}, 16); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if ch.Written() != 16 {
		t.Fatalf("Written() = %d, want 16", ch.Written())
	}
	if got := ch.Bytes(); !bytes.Equal(got, []byte{0x11, 0x22}) {
		t.Fatalf("Bytes() = % x, want [0x11 0x22]", got)
	}
}
