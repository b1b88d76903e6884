package bitstream

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTripFixedWidths(t *testing.T) {
	w := NewWriter()
	defer w.Finish()

	widths := []int{0, 1, 5, 6, 7, 8, 13, 32, 63, 64}
	values := []uint64{0, 1, 31, 63, 127, 200, 8191, 0xFFFFFFFF, 0x7FFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF}

	for i := range widths {
		w.Write(values[i], widths[i])
	}

	bitLen, data := w.Close()

	r := NewReader(data, bitLen)
	for i := range widths {
		got, ok := r.Read(widths[i])
		require.True(t, ok)

		want := values[i]
		if widths[i] < 64 {
			want &= (uint64(1) << uint(widths[i])) - 1
		}
		require.Equal(t, want, got, "width %d", widths[i])
	}
}

func TestWriterReader_Bits(t *testing.T) {
	w := NewWriter()
	defer w.Finish()

	bits := []uint8{1, 0, 1, 1, 0, 0, 0, 1, 1, 1}
	for _, b := range bits {
		w.WriteBit(b)
	}

	bitLen, data := w.Close()
	require.Equal(t, len(bits), bitLen)

	r := NewReader(data, bitLen)
	for _, want := range bits {
		got, ok := r.ReadBit()
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	_, ok := r.ReadBit()
	require.False(t, ok, "reading past recorded bit length must fail")
}

func TestWriterReader_RandomWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	w := NewWriter()
	defer w.Finish()

	type entry struct {
		n int
		v uint64
	}

	var entries []entry
	for i := 0; i < 500; i++ {
		n := rng.Intn(65)
		var v uint64
		if n > 0 {
			v = rng.Uint64()
		}
		entries = append(entries, entry{n, v})
		w.Write(v, n)
	}

	bitLen, data := w.Close()
	r := NewReader(data, bitLen)

	for _, e := range entries {
		got, ok := r.Read(e.n)
		require.True(t, ok)

		want := e.v
		if e.n < 64 {
			want &= (uint64(1) << uint(e.n)) - 1
		}
		require.Equal(t, want, got)
	}
}

func TestCloseWire_RoundTrip(t *testing.T) {
	w := NewWriter()
	defer w.Finish()

	w.Write(0xABCD, 16)
	w.Write(1, 1)
	w.Write(0x7F, 7)

	wire := w.CloseWire()

	r, ok := NewReaderWire(wire)
	require.True(t, ok)

	v, ok := r.Read(16)
	require.True(t, ok)
	require.Equal(t, uint64(0xABCD), v)

	bit, ok := r.ReadBit()
	require.True(t, ok)
	require.Equal(t, uint8(1), bit)

	v, ok = r.Read(7)
	require.True(t, ok)
	require.Equal(t, uint64(0x7F), v)
}

func TestReader_OverflowOnTruncatedData(t *testing.T) {
	w := NewWriter()
	defer w.Finish()

	w.Write(12345, 20)
	bitLen, data := w.Close()

	// Claim more bits than were encoded; the reader must refuse past
	// the byte-aligned data it actually has.
	r := NewReader(data, bitLen+1000)
	_, ok := r.Read(20)
	require.True(t, ok)

	_, ok = r.Read(64)
	require.False(t, ok)
}
