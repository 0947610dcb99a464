package fuzz

import (
	"testing"

	"github.com/preon-go/preon/pkg/bitio"
)

// FuzzBitBuffer mirrors the teacher's tests/fuzz/fuzz_evaluator_test.go
// round-trip shape, but for the bit-level transport instead of the
// expression evaluator: write n arbitrary low bits of v through a
// BitChannel, then read them back through a BitBuffer built over the
// written bytes, and require the same bits come back out. Neither side
// should ever panic regardless of how n or v are skewed.
func FuzzBitBuffer(f *testing.F) {
	f.Add(uint64(0), 1)
	f.Add(uint64(0xff), 8)
	f.Add(uint64(1)<<63, 64)
	f.Add(uint64(0xdeadbeef), 37)
	f.Add(uint64(0), 0)
	f.Add(uint64(1), 65)
	f.Add(uint64(1), -1)

	f.Fuzz(func(t *testing.T, v uint64, n int) {
		if n < 1 || n > 64 {
			return
		}
		ch := bitio.NewBitChannel(bitio.BigEndian)
		if err := ch.WriteBits(v, n); err != nil {
			t.Fatalf("WriteBits(%d bits): %v", n, err)
		}
		buf := bitio.NewBitBuffer(ch.Bytes(), bitio.BigEndian)
		got, err := buf.ReadBits(n)
		if err != nil {
			t.Fatalf("ReadBits(%d bits): %v", n, err)
		}
		want := v
		if n < 64 {
			want &= (uint64(1) << uint(n)) - 1
		}
		if got != want {
			t.Fatalf("round trip of %d low bits of %#x: got %#x", n, v, got)
		}
	})
}

// FuzzBitBufferSlice exercises BitBuffer.Slice/Seek/Skip with arbitrary
// offsets, none of which should ever panic — only return an error for an
// out-of-range request.
func FuzzBitBufferSlice(f *testing.F) {
	f.Add([]byte{0x01, 0x02, 0x03, 0x04}, int64(0), int64(16))
	f.Add([]byte{}, int64(0), int64(0))
	f.Add([]byte{0xff}, int64(4), int64(8))
	f.Add([]byte{0xff}, int64(-1), int64(4))

	f.Fuzz(func(t *testing.T, data []byte, offset, length int64) {
		buf := bitio.NewBitBuffer(data, bitio.BigEndian)
		sub, err := buf.Slice(offset, length)
		if err != nil {
			return
		}
		if sub.Len() != length {
			t.Fatalf("sliced buffer length = %d, want %d", sub.Len(), length)
		}
		_ = buf.Skip(offset)
	})
}
