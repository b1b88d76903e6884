package codec

import (
	"math"
	"testing"

	"github.com/kynetic/strata/errs"
	"github.com/stretchr/testify/require"
)

func TestVector_RoundTripDim5(t *testing.T) {
	samples := []VectorSample{
		{Time: epoch + 24*60, Values: []float64{1, 2, 3, 4, 5}},
		{Time: epoch + 52*60, Values: []float64{13, 12, 35, 47, 35}},
	}

	data, err := CompressVector(samples, epoch, 5)
	require.NoError(t, err)

	got, err := DecompressVector(data, 5, len(samples))
	require.NoError(t, err)
	require.Equal(t, samples, got)
}

func TestVector_RoundTripDim10ThroughByteChannel(t *testing.T) {
	samples := []VectorSample{
		{Time: epoch + 24*60, Values: []float64{1.1, 2.2, 3.3, 4.4, 5.5, 6.6, 7.7, 8.8, 9.9, 10.1}},
		{Time: epoch + 52*60, Values: []float64{-1, 0, math.Pi, 1e10, -1e-10, 42, 0.001, 99.999, 123456.789, -0.0}},
		{Time: epoch + 75*60, Values: []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	}

	data, err := CompressVector(samples, epoch, 10)
	require.NoError(t, err)

	// Simulate passing through an opaque byte channel (copy to a fresh
	// slice so no backing-array aliasing survives).
	channel := make([]byte, len(data))
	copy(channel, data)

	got, err := DecompressVector(channel, 10, len(samples))
	require.NoError(t, err)

	for i, s := range samples {
		require.Equal(t, s.Time, got[i].Time)
		for j, v := range s.Values {
			require.Equal(t, math.Float64bits(v), math.Float64bits(got[i].Values[j]), "sample %d dim %d", i, j)
		}
	}
}

func TestVector_IndependentPerDimensionPredictors(t *testing.T) {
	// Dimension 0 oscillates (forces frequent new-window updates) while
	// dimension 1 stays constant (always the zero-XOR fast path); each
	// dimension's predictor state must evolve independently.
	samples := []VectorSample{
		{Time: epoch, Values: []float64{1, 100}},
		{Time: epoch + 10, Values: []float64{-1, 100}},
		{Time: epoch + 20, Values: []float64{1000, 100}},
		{Time: epoch + 30, Values: []float64{-1000, 100}},
	}

	data, err := CompressVector(samples, epoch, 2)
	require.NoError(t, err)

	got, err := DecompressVector(data, 2, len(samples))
	require.NoError(t, err)
	require.Equal(t, samples, got)
}

func TestVector_BadDimension(t *testing.T) {
	e := NewVectorEncoder(epoch, 3)
	err := e.AppendFirst(VectorSample{Time: epoch, Values: []float64{1, 2}})
	require.ErrorIs(t, err, errs.ErrBadDimension)
	e.w.Finish()

	e2 := NewVectorEncoder(epoch, 3)
	require.NoError(t, e2.AppendFirst(VectorSample{Time: epoch, Values: []float64{1, 2, 3}}))
	err = e2.Append(VectorSample{Time: epoch + 1, Values: []float64{1, 2}})
	require.ErrorIs(t, err, errs.ErrBadDimension)
	e2.w.Finish()
}

func TestVector_AppendOrderAndDuration(t *testing.T) {
	e := NewVectorEncoder(epoch, 1)
	require.NoError(t, e.AppendFirst(VectorSample{Time: epoch, Values: []float64{1}}))

	err := e.Append(VectorSample{Time: epoch - 1, Values: []float64{2}})
	require.ErrorIs(t, err, errs.ErrAppendOrder)

	err = e.Append(VectorSample{Time: epoch + maxDuration + 1, Values: []float64{2}})
	require.ErrorIs(t, err, errs.ErrAppendDuration)

	e.w.Finish()
}

func TestVector_AllAndAt(t *testing.T) {
	samples := []VectorSample{
		{Time: epoch, Values: []float64{1, 2, 3}},
		{Time: epoch + 60, Values: []float64{4, 5, 6}},
		{Time: epoch + 120, Values: []float64{7, 8, 9}},
	}

	data, err := CompressVector(samples, epoch, 3)
	require.NoError(t, err)

	d, err := FromBlock(data, 3)
	require.NoError(t, err)

	var got []VectorSample
	for s := range d.All(len(samples)) {
		got = append(got, s)
	}
	require.Equal(t, samples, got)

	for i, want := range samples {
		s, ok := VectorAt(data, 3, i, len(samples))
		require.True(t, ok, "index %d", i)
		require.Equal(t, want, s)
	}

	_, ok := VectorAt(data, 3, len(samples), len(samples))
	require.False(t, ok)
}

func TestVector_FromBlockLockstepReadsMirrorWrites(t *testing.T) {
	samples := []VectorSample{
		{Time: epoch, Values: []float64{1, 2}},
		{Time: epoch + 60, Values: []float64{1.5, 2.5}},
		{Time: epoch + 180, Values: []float64{1.5, 999}},
	}

	data, err := CompressVector(samples, epoch, 2)
	require.NoError(t, err)

	d, err := FromBlock(data, 2)
	require.NoError(t, err)

	for _, want := range samples {
		ts, err := d.NextTime()
		require.NoError(t, err)
		require.Equal(t, want.Time, ts)

		vals, err := d.NextValues()
		require.NoError(t, err)
		require.Equal(t, want.Values, vals)
	}
}
