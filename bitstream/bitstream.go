// Package bitstream implements the bit-level writer/reader that underlies
// the scalar and vector block codecs.
//
// Bits accumulate in little-endian order: the first bit written occupies the
// least significant bit of the first byte, the second bit the next position,
// and so on. A 64-bit accumulator batches writes/reads across byte
// boundaries for performance, flushed to the backing buffer via
// encoding/binary's little-endian helpers.
package bitstream

import (
	"encoding/binary"

	"github.com/kynetic/strata/internal/pool"
)

// Writer accumulates bits and fixed-width fields (0-64 bits at a time) in
// little-endian order. It is single-use per sequence: call Close once all
// bits are written.
type Writer struct {
	buf       *pool.ByteBuffer
	acc       uint64 // bit accumulator, bits fill starting at the LSB
	nbits     int    // valid bits currently held in acc (0-63 between flushes)
	totalBits int    // logical bit length written so far, across flushes
}

// NewWriter returns a Writer backed by a pooled byte buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.GetAccumulatorBuffer()}
}

// WriteBit appends a single bit (the low bit of b).
func (w *Writer) WriteBit(b uint8) {
	w.Write(uint64(b&1), 1)
}

// Write appends the low n bits of v, masking v to n bits first. n must be in
// [0, 64]; n == 0 is a no-op.
func (w *Writer) Write(v uint64, n int) {
	if n == 0 {
		return
	}
	if n < 64 {
		v &= (uint64(1) << uint(n)) - 1
	}

	w.totalBits += n

	available := 64 - w.nbits
	if n <= available {
		w.acc |= v << uint(w.nbits)
		w.nbits += n
		if w.nbits == 64 {
			w.flush()
		}

		return
	}

	// Low `available` bits of v fill out the accumulator; flush it, then
	// the remaining high bits of v seed the next accumulator.
	w.acc |= (v & ((uint64(1) << uint(available)) - 1)) << uint(w.nbits)
	w.nbits = 64
	w.flush()

	rem := n - available
	w.acc = v >> uint(available)
	w.nbits = rem
}

// flush drains a full 64-bit accumulator to the byte buffer in little-endian
// order and resets it.
func (w *Writer) flush() {
	idx := w.buf.Len()
	w.buf.ExtendOrGrow(8)
	binary.LittleEndian.PutUint64(w.buf.B[idx:idx+8], w.acc)
	w.acc = 0
	w.nbits = 0
}

// Close pads the stream with zero bits to the next byte boundary and
// returns the logical bit length together with the byte-aligned buffer. The
// returned slice's length is ceil(bitLength/8).
//
// The Writer must not be used after Close.
func (w *Writer) Close() (bitLength int, data []byte) {
	if w.nbits > 0 {
		nbytes := (w.nbits + 7) / 8
		idx := w.buf.Len()
		w.buf.ExtendOrGrow(nbytes)

		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], w.acc)
		copy(w.buf.B[idx:idx+nbytes], tmp[:nbytes])

		w.acc = 0
		w.nbits = 0
	}

	bitLength = w.totalBits
	data = w.buf.Bytes()

	return bitLength, data
}

// Finish returns the writer's pooled buffer. Call it after the bytes
// returned by Close have been copied out or otherwise consumed.
func (w *Writer) Finish() {
	if w.buf != nil {
		pool.PutAccumulatorBuffer(w.buf)
		w.buf = nil
	}
}

// CloseWire is a convenience wrapper around Close that returns the external
// wire representation: a u32 little-endian bit length followed by the raw
// bytes, as specified for a serialized BitStream.
func (w *Writer) CloseWire() []byte {
	bitLen, data := w.Close()

	out := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(out, uint32(bitLen)) //nolint:gosec // bit lengths never approach 2^32
	copy(out[4:], data)

	return out
}

// Reader consumes bits written by Writer, in the same little-endian order.
// It tracks a logical cursor and refuses to read past the recorded bit
// length.
type Reader struct {
	data    []byte
	bitLen  int
	pos     int // next bit index to read, 0-based
	acc     uint64
	nbits   int // valid bits currently buffered in acc
	bytePos int // next unread byte in data
}

// NewReader wraps data (exactly bitLength bits' worth, byte-aligned) for
// reading.
func NewReader(data []byte, bitLength int) *Reader {
	return &Reader{data: data, bitLen: bitLength}
}

// NewReaderWire parses the external wire representation (u32 bit length
// prefix followed by raw bytes) produced by Writer.CloseWire.
func NewReaderWire(wire []byte) (*Reader, bool) {
	if len(wire) < 4 {
		return nil, false
	}

	bitLen := int(binary.LittleEndian.Uint32(wire[:4]))

	return NewReader(wire[4:], bitLen), true
}

// ReadBit reads a single bit. ok is false once the logical bit length is
// exhausted.
func (r *Reader) ReadBit() (bit uint8, ok bool) {
	v, ok := r.Read(1)

	return uint8(v), ok
}

// Read reads the next n bits (n in [0,64]) and returns them right-aligned in
// the low n bits of the result. ok is false if fewer than n bits remain
// before the recorded bit length.
//
// Invariant: fill is only called when the accumulator is fully drained
// (nbits == 0), so a fill can never overwrite bits not yet consumed.
func (r *Reader) Read(n int) (uint64, bool) {
	if n == 0 {
		return 0, true
	}
	if r.pos+n > r.bitLen {
		return 0, false
	}

	var result uint64
	var got int
	for got < n {
		if r.nbits == 0 {
			if !r.fill() {
				return 0, false
			}
		}

		take := n - got
		if take > r.nbits {
			take = r.nbits
		}

		var chunk uint64
		if take == 64 {
			chunk = r.acc
		} else {
			chunk = r.acc & ((uint64(1) << uint(take)) - 1)
		}
		result |= chunk << uint(got)

		if take == 64 {
			r.acc = 0
		} else {
			r.acc >>= uint(take)
		}
		r.nbits -= take
		got += take
	}

	r.pos += n

	return result, true
}

// fill refills the accumulator with up to 8 more bytes from the underlying
// data, little-endian. Must only be called when the accumulator is empty.
// Returns false if no more bytes are available.
func (r *Reader) fill() bool {
	if r.bytePos >= len(r.data) {
		return false
	}

	remaining := len(r.data) - r.bytePos
	n := 8
	if n > remaining {
		n = remaining
	}

	var tmp [8]byte
	copy(tmp[:], r.data[r.bytePos:r.bytePos+n])
	r.acc = binary.LittleEndian.Uint64(tmp[:])
	r.nbits = n * 8
	r.bytePos += n

	return true
}

// BitsRemaining returns how many bits are left before the recorded bit
// length is exhausted.
func (r *Reader) BitsRemaining() int {
	return r.bitLen - r.pos
}
