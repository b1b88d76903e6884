package codec

import (
	"iter"
	"math"

	"github.com/kynetic/strata/bitstream"
	"github.com/kynetic/strata/errs"
)

// Sample is one (timestamp, value) pair for the scalar block codec.
// Time is in seconds; the codec does not interpret it beyond ordering and
// delta arithmetic.
type Sample struct {
	Time  int64
	Value float64
}

const maxDuration = 16384

// ScalarEncoder builds one scalar block. Call AppendFirst once, then Append
// for every subsequent sample, then Finish.
type ScalarEncoder struct {
	w          *bitstream.Writer
	headerTime int64
	started    bool

	prevTime  int64
	prevDelta int64
	prevBits  uint64
	pred      valuePredictor
}

// NewScalarEncoder starts a block with the given nominal header timestamp.
func NewScalarEncoder(headerTime int64) *ScalarEncoder {
	e := &ScalarEncoder{w: bitstream.NewWriter(), headerTime: headerTime, pred: newValuePredictor()}
	e.w.Write(encodeSigned(headerTime, 64), 64)

	return e
}

// AppendFirst writes the first sample. It must be called exactly once,
// before any call to Append.
func (e *ScalarEncoder) AppendFirst(s Sample) error {
	firstDelta := s.Time - e.headerTime
	if firstDelta < 0 {
		return errs.ErrAppendOrder
	}
	// The first delta is stored in 14 bits, so it must stay below 1<<14.
	if firstDelta >= 1<<14 {
		return errs.ErrAppendDuration
	}

	e.w.Write(uint64(firstDelta)&0x3FFF, 14)

	bits := math.Float64bits(s.Value)
	e.w.Write(bits, 64)

	e.started = true
	e.prevTime = s.Time
	e.prevDelta = firstDelta
	e.prevBits = bits

	return nil
}

// Append writes one more sample after the first.
func (e *ScalarEncoder) Append(s Sample) error {
	delta := s.Time - e.prevTime
	if delta < 0 {
		return errs.ErrAppendOrder
	}
	if delta > maxDuration {
		return errs.ErrAppendDuration
	}

	dod := delta - e.prevDelta
	writeDoD(e.w, dod)

	bits := math.Float64bits(s.Value)
	writeValue(e.w, e.prevBits, bits, &e.pred)

	e.prevTime = s.Time
	e.prevDelta = delta
	e.prevBits = bits

	return nil
}

// Finish closes the underlying bit stream and returns the block's external
// wire representation (u32 bit length prefix plus raw bytes). The encoder
// must not be used afterward.
func (e *ScalarEncoder) Finish() []byte {
	wire := e.w.CloseWire()
	e.w.Finish()

	return wire
}

// ScalarDecoder reads a block written by ScalarEncoder, one sample at a
// time, in lockstep with the original append order.
type ScalarDecoder struct {
	r          *bitstream.Reader
	headerTime int64
	started    bool

	prevTime  int64
	prevDelta int64
	prevBits  uint64
	pred      valuePredictor
}

// NewScalarDecoder parses the header timestamp from a block produced by
// ScalarEncoder.Finish.
func NewScalarDecoder(wire []byte) (*ScalarDecoder, error) {
	r, ok := bitstream.NewReaderWire(wire)
	if !ok {
		return nil, errs.ErrBitReaderOverflow
	}

	raw, ok := r.Read(64)
	if !ok {
		return nil, errs.ErrBitReaderOverflow
	}

	return &ScalarDecoder{r: r, headerTime: decodeSigned(raw, 64, math.MaxInt64), pred: newValuePredictor()}, nil
}

// Next decodes the next sample. Callers must know the total sample count
// out-of-band and stop calling Next once exhausted; the block carries no
// terminator.
func (d *ScalarDecoder) Next() (Sample, error) {
	if !d.started {
		raw, ok := d.r.Read(14)
		if !ok {
			return Sample{}, errs.ErrBitReaderOverflow
		}

		bits, ok := d.r.Read(64)
		if !ok {
			return Sample{}, errs.ErrBitReaderOverflow
		}

		d.started = true
		d.prevDelta = int64(raw)
		d.prevTime = d.headerTime + d.prevDelta
		d.prevBits = bits

		return Sample{Time: d.prevTime, Value: math.Float64frombits(bits)}, nil
	}

	dod, ok := readDoD(d.r)
	if !ok {
		return Sample{}, errs.ErrBitReaderOverflow
	}

	delta := d.prevDelta + dod
	bits, ok := readValue(d.r, d.prevBits, &d.pred)
	if !ok {
		return Sample{}, errs.ErrBitReaderOverflow
	}

	d.prevTime += delta
	d.prevDelta = delta
	d.prevBits = bits

	return Sample{Time: d.prevTime, Value: math.Float64frombits(bits)}, nil
}

// All returns a streaming iterator over the next count samples, stopping
// early if the consumer breaks out of the range or a decode error occurs
// partway through the block.
func (d *ScalarDecoder) All(count int) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		for i := 0; i < count; i++ {
			s, err := d.Next()
			if err != nil {
				return
			}

			if !yield(s) {
				return
			}
		}
	}
}

// At decodes a fresh block up to index and returns the sample there. Unlike
// All, it does not require the caller to hold a live decoder, at the cost of
// re-decoding every sample up to index from scratch each call; callers
// needing more than one index should decode once with Decompress and index
// the result instead.
func At(data []byte, index, count int) (Sample, bool) {
	if index < 0 || index >= count {
		return Sample{}, false
	}

	d, err := NewScalarDecoder(data)
	if err != nil {
		return Sample{}, false
	}

	var s Sample
	for i := 0; i <= index; i++ {
		s, err = d.Next()
		if err != nil {
			return Sample{}, false
		}
	}

	return s, true
}

// Compress encodes a full scalar sample sequence into one block. samples
// must be non-empty and time-ordered per the codec's append rules.
func Compress(samples []Sample, headerTime int64) ([]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	e := NewScalarEncoder(headerTime)
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

// Decompress decodes count samples from a block produced by Compress.
func Decompress(data []byte, count int) ([]Sample, error) {
	if count == 0 {
		return nil, nil
	}

	d, err := NewScalarDecoder(data)
	if err != nil {
		return nil, err
	}

	out := make([]Sample, count)
	for i := 0; i < count; i++ {
		s, err := d.Next()
		if err != nil {
			return nil, err
		}

		out[i] = s
	}

	return out, nil
}
