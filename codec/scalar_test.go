package codec

import (
	"math"
	"testing"

	"github.com/kynetic/strata/bitstream"
	"github.com/kynetic/strata/errs"
	"github.com/stretchr/testify/require"
)

const epoch = int64(1_700_000_000)

func TestScalar_RoundTrip(t *testing.T) {
	samples := []Sample{
		{Time: epoch, Value: 12.0},
		{Time: epoch + 60, Value: 12.5},
		{Time: epoch + 120, Value: -3.25},
		{Time: epoch + 121, Value: math.Inf(1)},
		{Time: epoch + 500, Value: math.NaN()},
	}

	data, err := Compress(samples, epoch)
	require.NoError(t, err)

	got, err := Decompress(data, len(samples))
	require.NoError(t, err)
	require.Len(t, got, len(samples))

	for i, s := range samples {
		require.Equal(t, s.Time, got[i].Time)
		require.Equal(t, math.Float64bits(s.Value), math.Float64bits(got[i].Value), "sample %d", i)
	}
}

// TestScalar_DoDRanges walks 9 durations whose delta-of-deltas (0, -63, 127,
// -319, 511, -2303, 4095, -4096, 4097) cover every dod bracket (zero, then
// 7/9/12/32-bit payload); every sample must round-trip exactly.
func TestScalar_DoDRanges(t *testing.T) {
	durations := []int64{3000, 2937, 3064, 2745, 3256, 953, 5048, 952, 5049}

	ts := epoch + 50*60
	samples := []Sample{{Time: ts, Value: 1.0}}
	for i, d := range durations {
		ts += d
		samples = append(samples, Sample{Time: ts, Value: float64(i)})
	}

	data, err := Compress(samples, epoch)
	require.NoError(t, err)

	got, err := Decompress(data, len(samples))
	require.NoError(t, err)

	for i, s := range samples {
		require.Equal(t, s.Time, got[i].Time, "sample %d", i)
		require.Equal(t, s.Value, got[i].Value, "sample %d", i)
	}
}

// TestScalar_ValuePrefixChoices checks the bit-level prefix/window choices
// for the sequence 12.0, 12.0, 24.0, 15.0, 12.0: a repeat (prefix 0), two
// new-window values, then a value that reuses the prior window.
func TestScalar_ValuePrefixChoices(t *testing.T) {
	pred := newValuePredictor()

	step := func(prev, cur float64) int {
		w := bitstream.NewWriter()
		writeValue(w, math.Float64bits(prev), math.Float64bits(cur), &pred)
		bitLen, _ := w.Close()
		w.Finish()

		return bitLen
	}

	// 12.0 -> 12.0: x == 0, prefix "0".
	require.Equal(t, 1, step(12.0, 12.0))

	// 12.0 -> 24.0: new window, leading=11, nbits=1. 2 prefix bits + 5 + 6 + 1.
	require.Equal(t, 2+5+6+1, step(12.0, 24.0))
	require.Equal(t, 11, pred.leading)
	require.Equal(t, 52, pred.trailing)

	// 24.0 -> 15.0: new window, leading=11, nbits=4. 2 prefix bits + 5 + 6 + 4.
	require.Equal(t, 2+5+6+4, step(24.0, 15.0))
	require.Equal(t, 11, pred.leading)
	require.Equal(t, 49, pred.trailing)

	// 15.0 -> 12.0: reuses the (11, 49) window. 2 prefix bits + (64-11-49).
	require.Equal(t, 2+4, step(15.0, 12.0))
	require.Equal(t, 11, pred.leading)
	require.Equal(t, 49, pred.trailing)
}

func TestScalar_AppendOrderAndDuration(t *testing.T) {
	e := NewScalarEncoder(epoch)
	require.NoError(t, e.AppendFirst(Sample{Time: epoch, Value: 1.0}))

	err := e.Append(Sample{Time: epoch - 1, Value: 2.0})
	require.ErrorIs(t, err, errs.ErrAppendOrder)

	err = e.Append(Sample{Time: epoch + maxDuration + 1, Value: 2.0})
	require.ErrorIs(t, err, errs.ErrAppendDuration)

	e.w.Finish()
}

func TestScalar_AllAndAt(t *testing.T) {
	samples := []Sample{
		{Time: epoch, Value: 1.0},
		{Time: epoch + 60, Value: 2.0},
		{Time: epoch + 120, Value: 3.0},
		{Time: epoch + 180, Value: 4.0},
	}

	data, err := Compress(samples, epoch)
	require.NoError(t, err)

	d, err := NewScalarDecoder(data)
	require.NoError(t, err)

	var got []Sample
	for s := range d.All(len(samples)) {
		got = append(got, s)
	}
	require.Equal(t, samples, got)

	for i, want := range samples {
		s, ok := At(data, i, len(samples))
		require.True(t, ok, "index %d", i)
		require.Equal(t, want, s)
	}

	_, ok := At(data, len(samples), len(samples))
	require.False(t, ok)
	_, ok = At(data, -1, len(samples))
	require.False(t, ok)
}

func TestScalar_AppendFirstValidatesFirstDelta(t *testing.T) {
	e := NewScalarEncoder(epoch)
	err := e.AppendFirst(Sample{Time: epoch - 1, Value: 1.0})
	require.ErrorIs(t, err, errs.ErrAppendOrder)
	e.w.Finish()

	e2 := NewScalarEncoder(epoch)
	err = e2.AppendFirst(Sample{Time: epoch + maxDuration + 1, Value: 1.0})
	require.ErrorIs(t, err, errs.ErrAppendDuration)
	e2.w.Finish()
}
