package codec

import (
	"iter"
	"math"

	"github.com/kynetic/strata/bitstream"
	"github.com/kynetic/strata/errs"
)

// VectorSample is one (timestamp, D values) row for the vector block codec.
type VectorSample struct {
	Time   int64
	Values []float64
}

// VectorEncoder builds one vector block of fixed dimension D. Call
// AppendFirst once, then Append for every subsequent sample, then Finish.
type VectorEncoder struct {
	w          *bitstream.Writer
	headerTime int64
	dim        int
	started    bool

	prevTime  int64
	prevDelta int64
	prevBits  []uint64
	pred      []valuePredictor
}

// NewVectorEncoder starts a block of dimension dim with the given nominal
// header timestamp.
func NewVectorEncoder(headerTime int64, dim int) *VectorEncoder {
	e := &VectorEncoder{
		w:          bitstream.NewWriter(),
		headerTime: headerTime,
		dim:        dim,
		prevBits:   make([]uint64, dim),
		pred:       make([]valuePredictor, dim),
	}
	for i := range e.pred {
		e.pred[i] = newValuePredictor()
	}

	e.w.Write(encodeSigned(headerTime, 64), 64)

	return e
}

// AppendFirst writes the first sample. It must be called exactly once,
// before any call to Append.
func (e *VectorEncoder) AppendFirst(s VectorSample) error {
	if len(s.Values) != e.dim {
		return errs.ErrBadDimension
	}

	firstDelta := s.Time - e.headerTime
	if firstDelta < 0 {
		return errs.ErrAppendOrder
	}
	// The first delta is stored in 14 bits, so it must stay below 1<<14.
	if firstDelta >= 1<<14 {
		return errs.ErrAppendDuration
	}

	e.w.Write(uint64(firstDelta)&0x3FFF, 14)

	for i, v := range s.Values {
		bits := math.Float64bits(v)
		e.w.Write(bits, 64)
		e.prevBits[i] = bits
	}

	e.started = true
	e.prevTime = s.Time
	e.prevDelta = firstDelta

	return nil
}

// Append writes one more sample after the first.
func (e *VectorEncoder) Append(s VectorSample) error {
	if len(s.Values) != e.dim {
		return errs.ErrBadDimension
	}

	delta := s.Time - e.prevTime
	if delta < 0 {
		return errs.ErrAppendOrder
	}
	if delta > maxDuration {
		return errs.ErrAppendDuration
	}

	dod := delta - e.prevDelta
	writeDoD(e.w, dod)

	for i, v := range s.Values {
		bits := math.Float64bits(v)
		writeValue(e.w, e.prevBits[i], bits, &e.pred[i])
		e.prevBits[i] = bits
	}

	e.prevTime = s.Time
	e.prevDelta = delta

	return nil
}

// Finish closes the underlying bit stream and returns the block's external
// wire representation. The encoder must not be used afterward.
func (e *VectorEncoder) Finish() []byte {
	wire := e.w.CloseWire()
	e.w.Finish()

	return wire
}

// VectorDecoder reads a block written by VectorEncoder. Callers must call
// NextTime and NextValues in lockstep, the same number of times the block
// was written with -- the format carries no sample count or terminator.
type VectorDecoder struct {
	r          *bitstream.Reader
	headerTime int64
	dim        int
	started    bool

	prevTime  int64
	prevDelta int64
	prevBits  []uint64
	pred      []valuePredictor
}

// FromBlock reads the 64-bit header timestamp from a block produced by
// VectorEncoder.Finish. All other decoding is driven by NextTime/NextValues.
func FromBlock(wire []byte, dim int) (*VectorDecoder, error) {
	r, ok := bitstream.NewReaderWire(wire)
	if !ok {
		return nil, errs.ErrBitReaderOverflow
	}

	raw, ok := r.Read(64)
	if !ok {
		return nil, errs.ErrBitReaderOverflow
	}

	d := &VectorDecoder{
		r:          r,
		headerTime: decodeSigned(raw, 64, math.MaxInt64),
		dim:        dim,
		pred:       make([]valuePredictor, dim),
	}
	for i := range d.pred {
		d.pred[i] = newValuePredictor()
	}

	return d, nil
}

// NextTime returns the next sample's timestamp, advancing the delta
// predictor. It must be followed by exactly one NextValues call before the
// next NextTime.
func (d *VectorDecoder) NextTime() (int64, error) {
	if !d.started {
		raw, ok := d.r.Read(14)
		if !ok {
			return 0, errs.ErrBitReaderOverflow
		}

		d.started = true
		d.prevDelta = int64(raw)
		d.prevTime = d.headerTime + d.prevDelta

		return d.prevTime, nil
	}

	dod, ok := readDoD(d.r)
	if !ok {
		return 0, errs.ErrBitReaderOverflow
	}

	d.prevDelta += dod
	d.prevTime += d.prevDelta

	return d.prevTime, nil
}

// firstRow tracks whether NextValues is decoding the block's first row
// (raw 64-bit values) or a subsequent XOR-coded one. It is derived from
// whether the predictor has been primed, mirroring started on NextTime.
func (d *VectorDecoder) firstRow() bool {
	return d.prevBits == nil
}

// NextValues returns the next sample's D values, advancing each
// dimension's predictor state independently. Must be called once per
// NextTime call, immediately after it.
func (d *VectorDecoder) NextValues() ([]float64, error) {
	out := make([]float64, d.dim)

	if d.firstRow() {
		d.prevBits = make([]uint64, d.dim)
		for i := 0; i < d.dim; i++ {
			bits, ok := d.r.Read(64)
			if !ok {
				return nil, errs.ErrBitReaderOverflow
			}

			d.prevBits[i] = bits
			out[i] = math.Float64frombits(bits)
		}

		return out, nil
	}

	for i := 0; i < d.dim; i++ {
		bits, ok := readValue(d.r, d.prevBits[i], &d.pred[i])
		if !ok {
			return nil, errs.ErrBitReaderOverflow
		}

		d.prevBits[i] = bits
		out[i] = math.Float64frombits(bits)
	}

	return out, nil
}

// All returns a streaming iterator over the next count samples, stopping
// early if the consumer breaks out of the range or a decode error occurs
// partway through the block.
func (d *VectorDecoder) All(count int) iter.Seq[VectorSample] {
	return func(yield func(VectorSample) bool) {
		for i := 0; i < count; i++ {
			t, err := d.NextTime()
			if err != nil {
				return
			}

			vals, err := d.NextValues()
			if err != nil {
				return
			}

			if !yield(VectorSample{Time: t, Values: vals}) {
				return
			}
		}
	}
}

// VectorAt decodes a fresh block up to index and returns the sample there.
// Like codec.At, it re-decodes every sample up to index from scratch each
// call; callers needing more than one index should decode once with
// DecompressVector and index the result instead.
func VectorAt(data []byte, dim, index, count int) (VectorSample, bool) {
	if index < 0 || index >= count {
		return VectorSample{}, false
	}

	d, err := FromBlock(data, dim)
	if err != nil {
		return VectorSample{}, false
	}

	var s VectorSample
	for i := 0; i <= index; i++ {
		t, err := d.NextTime()
		if err != nil {
			return VectorSample{}, false
		}

		vals, err := d.NextValues()
		if err != nil {
			return VectorSample{}, false
		}

		s = VectorSample{Time: t, Values: vals}
	}

	return s, true
}

// CompressVector encodes a full vector sample sequence into one block.
// samples must be non-empty, every row must have len(Values) == dim, and
// time ordering must follow the codec's append rules.
func CompressVector(samples []VectorSample, headerTime int64, dim int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	e := NewVectorEncoder(headerTime, dim)
	defer e.w.Finish()

	if err := e.AppendFirst(samples[0]); err != nil {
		return nil, err
	}

	for _, s := range samples[1:] {
		if err := e.Append(s); err != nil {
			return nil, err
		}
	}

	return e.w.CloseWire(), nil
}

// DecompressVector decodes count samples of dimension dim from a block
// produced by CompressVector.
func DecompressVector(data []byte, dim, count int) ([]VectorSample, error) {
	if count == 0 {
		return nil, nil
	}

	d, err := FromBlock(data, dim)
	if err != nil {
		return nil, err
	}

	out := make([]VectorSample, count)
	for i := 0; i < count; i++ {
		t, err := d.NextTime()
		if err != nil {
			return nil, err
		}

		vals, err := d.NextValues()
		if err != nil {
			return nil, err
		}

		out[i] = VectorSample{Time: t, Values: vals}
	}

	return out, nil
}
