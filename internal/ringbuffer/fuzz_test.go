// SPDX-License-Identifier: MIT
package ringbuffer

import (
	"encoding/binary"
	"errors"
	"testing"
)

// FuzzRingBuffer drives a small buffer with an arbitrary operation stream.
// Each op is 9 bytes: an opcode followed by a little-endian uint64 operand.
func FuzzRingBuffer(f *testing.F) {
	f.Add(uint8(7), []byte{0, 5, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0})
	f.Add(uint8(0), []byte{0, 0xff, 0, 0, 0, 0, 0, 0, 0, 1, 3, 0, 0, 0, 0, 0, 0, 0})
	f.Add(uint8(3), []byte{3, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, capacity uint8, ops []byte) {
		rb := New(int(capacity))
		var total uint64

		for len(ops) >= 9 {
			op, arg := ops[0], binary.LittleEndian.Uint64(ops[1:9])
			ops = ops[9:]

			switch op % 5 {
			case 0:
				n := int(arg % 1024)
				rb.PushSamples(make([]float32, n))
				total += uint64(n)
			case 1:
				// Start is taken relative to total so ranges hit every branch.
				start := total - min(total, arg%512)
				end := start + arg%64
				got, err := rb.ExtractChunk(start, end)
				if err == nil && uint64(len(got)) != end-start {
					t.Fatalf("len = %d, want %d", len(got), end-start)
				}
			case 2:
				_, _ = rb.ExtractChunk(arg, arg/2)
				_, _ = rb.ExtractChunk(arg/2, arg)
			case 3:
				rb.Mark()
				if _, err := rb.ExtractSinceMark(); err != nil && !errors.Is(err, ErrDataEvicted) {
					t.Fatalf("ExtractSinceMark error: %v", err)
				}
			case 4:
				_ = rb.ExtractLatest(int(arg % 2048))
			}

			if rb.CurrentPosition() != total {
				t.Fatalf("CurrentPosition() = %d, want %d", rb.CurrentPosition(), total)
			}
		}
	})
}
