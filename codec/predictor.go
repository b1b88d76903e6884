// Package codec implements the scalar and vector block codecs: Gorilla-style
// delta-of-delta timestamp compression paired with XOR-prefix value
// compression, built on top of the bitstream package.
package codec

import (
	"math/bits"

	"github.com/kynetic/strata/bitstream"
)

// valuePredictor tracks the leading/trailing zero-bit window used to decide
// whether a new XOR value reuses the previous window or opens a new one.
// The zero value is not a valid starting state; use newValuePredictor.
type valuePredictor struct {
	leading  int
	trailing int
}

// newValuePredictor returns the initial predictor state. leading starts at
// 32, above the largest leading count writeValue ever compares (it clamps
// leading to 31), which forces the first non-zero value in a block through
// the "new window" path and properly seeds leading/trailing.
func newValuePredictor() valuePredictor {
	return valuePredictor{leading: 32, trailing: 32}
}

// encodeSigned returns v's low n bits (two's complement) for writing as an
// n-bit payload: callers pick n so that the asymmetric
// range [-(2^(n-1)-1), 2^(n-1)] fits, except the final 32-bit bracket which
// uses the ordinary symmetric int32 range.
func encodeSigned(v int64, n int) uint64 {
	if n >= 64 {
		return uint64(v)
	}

	mask := (uint64(1) << uint(n)) - 1

	return uint64(v) & mask
}

// decodeSigned reverses encodeSigned: raw holds the low n bits of a
// two's-complement value whose positive values run 0..boundary and whose
// negative values occupy (boundary, 2^n).
func decodeSigned(raw uint64, n int, boundary uint64) int64 {
	if raw > boundary {
		ext := raw | (^uint64(0) << uint(n))
		return int64(ext)
	}

	return int64(raw)
}

// writeDoD encodes a delta-of-delta using the prefix-code table: a run of
// 1-bits selects the payload width (7, 9, 12, or 32), terminated by a 0-bit
// except for the widest (32-bit) bracket, which has no terminator.
func writeDoD(w *bitstream.Writer, dod int64) {
	if dod == 0 {
		w.WriteBit(0)
		return
	}

	w.WriteBit(1)
	if dod >= -63 && dod <= 64 {
		w.WriteBit(0)
		w.Write(encodeSigned(dod, 7), 7)

		return
	}

	w.WriteBit(1)
	if dod >= -255 && dod <= 256 {
		w.WriteBit(0)
		w.Write(encodeSigned(dod, 9), 9)

		return
	}

	w.WriteBit(1)
	if dod >= -2047 && dod <= 2048 {
		w.WriteBit(0)
		w.Write(encodeSigned(dod, 12), 12)

		return
	}

	w.WriteBit(1)
	w.Write(encodeSigned(dod, 32), 32)
}

// readDoD decodes a value written by writeDoD. ok is false on bit-reader
// overflow (truncated block).
func readDoD(r *bitstream.Reader) (dod int64, ok bool) {
	b, ok := r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		return 0, true
	}

	b, ok = r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		raw, ok := r.Read(7)
		if !ok {
			return 0, false
		}

		return decodeSigned(raw, 7, 64), true
	}

	b, ok = r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		raw, ok := r.Read(9)
		if !ok {
			return 0, false
		}

		return decodeSigned(raw, 9, 256), true
	}

	b, ok = r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		raw, ok := r.Read(12)
		if !ok {
			return 0, false
		}

		return decodeSigned(raw, 12, 2048), true
	}

	raw, ok := r.Read(32)
	if !ok {
		return 0, false
	}

	return decodeSigned(raw, 32, 0x7FFFFFFF), true
}

// writeValue XOR-encodes curBits against prevBits and updates pred in
// place. A zero XOR costs a single bit. A non-zero XOR that fits within the
// predictor's current leading/trailing window costs 2 bits plus the window
// width. Otherwise a new window is opened: 2 bits plus 5 bits of leading
// zero count, 6 bits of payload width, plus the payload.
//
// The leading count is clamped to 31 (fits 5 bits) and the payload width is
// stored as width-1 (fits 6 bits, since width ranges 1-64) -- both
// necessary refinements of the textbook Gorilla scheme, since a bare 64-bit
// XOR can have a leading-zero count or payload width that would otherwise
// overflow these fields.
func writeValue(w *bitstream.Writer, prevBits, curBits uint64, pred *valuePredictor) {
	x := curBits ^ prevBits
	if x == 0 {
		w.WriteBit(0)
		return
	}

	w.WriteBit(1)

	leading := bits.LeadingZeros64(x)
	trailing := bits.TrailingZeros64(x)
	if leading > 31 {
		adj := leading - 31
		leading = 31

		trailing -= adj
		if trailing < 0 {
			trailing = 0
		}
	}

	if leading >= pred.leading && trailing >= pred.trailing {
		w.WriteBit(0)

		nbits := 64 - pred.leading - pred.trailing
		w.Write(x>>uint(pred.trailing), nbits)

		return
	}

	w.WriteBit(1)

	nbits := 64 - leading - trailing
	w.Write(uint64(leading), 5)
	w.Write(uint64(nbits-1), 6)
	w.Write(x>>uint(trailing), nbits)

	pred.leading = leading
	pred.trailing = trailing
}

// readValue decodes a value written by writeValue. ok is false on bit-reader
// overflow.
func readValue(r *bitstream.Reader, prevBits uint64, pred *valuePredictor) (curBits uint64, ok bool) {
	b, ok := r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		return prevBits, true
	}

	b, ok = r.ReadBit()
	if !ok {
		return 0, false
	}
	if b == 0 {
		nbits := 64 - pred.leading - pred.trailing

		payload, ok := r.Read(nbits)
		if !ok {
			return 0, false
		}

		x := payload << uint(pred.trailing)

		return prevBits ^ x, true
	}

	leadingRaw, ok := r.Read(5)
	if !ok {
		return 0, false
	}

	nbitsRaw, ok := r.Read(6)
	if !ok {
		return 0, false
	}

	leading := int(leadingRaw)
	nbits := int(nbitsRaw) + 1
	trailing := 64 - leading - nbits
	if trailing < 0 {
		return 0, false
	}

	payload, ok := r.Read(nbits)
	if !ok {
		return 0, false
	}

	x := payload << uint(trailing)

	pred.leading = leading
	pred.trailing = trailing

	return prevBits ^ x, true
}
