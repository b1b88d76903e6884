// Package pool provides two pooled growable byte buffers, each sized and
// discarded for one specific hot path in this storage engine rather than as
// a general-purpose buffer pool:
//
//   - the accumulator pool backs bitstream.Writer, which flushes its 64-bit
//     accumulator into the buffer a handful of bytes at a time as it
//     bit-packs one scalar/vector block. Blocks are small (a few hundred
//     samples at most), so the pool hands out small buffers and discards
//     anything that grew unusually large rather than pooling it.
//   - the staging pool backs sstable.Builder, which accumulates whole
//     key/value entries before draining to disk. Its default size is a
//     fraction of lsm.Threshold (the MemTable flush size) so a single
//     flushed MemTable drains in several bounded writes instead of staging
//     the entire flush in memory at once.
package pool

import (
	"io"
	"sync"
)

const (
	// AccumulatorBufferSize is the initial capacity handed out by the
	// accumulator pool. A typical bit-packed block (dod timestamps plus
	// XOR-coded values for a few hundred samples) fits without a regrow.
	AccumulatorBufferSize = 4 * 1024 // 4KiB

	// AccumulatorBufferDiscardAbove is the capacity past which a returned
	// accumulator buffer is dropped instead of pooled, so one unusually
	// large block doesn't keep an oversized buffer resident indefinitely.
	AccumulatorBufferDiscardAbove = 64 * 1024 // 64KiB

	// StagingBufferSize is the initial capacity handed out by the staging
	// pool, and the threshold at which sstable.Builder drains it to disk.
	// It is sized to 1/8 of the 4MiB MemTable flush threshold, so draining
	// a fully-populated MemTable into an SSTable performs a handful of
	// bounded writes rather than one write holding the whole flush.
	StagingBufferSize = 512 * 1024 // 512KiB

	// StagingBufferDiscardAbove bounds how large a staging buffer the pool
	// will retain; a merge of unusually large values drains more often
	// rather than permanently growing the pooled buffer.
	StagingBufferDiscardAbove = 2 * 1024 * 1024 // 2MiB
)

// ByteBuffer is a growable byte slice meant to be reused across flushes via
// a ByteBufferPool instead of reallocated per call.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer, retaining its allocated capacity for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the number of bytes currently held.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// MustWrite appends data, growing the underlying slice via append's own
// amortized-doubling strategy. Used by sstable.Builder, which writes whole
// length-prefixed chunks at a time and has no need for the accumulator's
// fixed-size extend step.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// ExtendOrGrow extends the buffer by exactly n bytes, growing the backing
// array first if it lacks room. Used by bitstream.Writer, which always
// extends by a small, known n (an 8-byte accumulator flush or a final
// 1-8 byte tail) and then writes directly into the extended region.
func (bb *ByteBuffer) ExtendOrGrow(n int) {
	bb.Grow(n)
	start := len(bb.B)
	bb.B = bb.B[:start+n]
}

// Grow ensures the buffer can accept n more bytes without reallocating,
// doubling the backing array's capacity (from AccumulatorBufferSize or
// StagingBufferSize, whichever the caller started from) until it does.
// Blocks and staged batches in this engine are bounded in practice, so a
// plain doubling strategy reaches the needed capacity in a few steps
// without the tiered small/large growth heuristics a general-purpose pool
// would need.
func (bb *ByteBuffer) Grow(n int) {
	available := cap(bb.B) - len(bb.B)
	if available >= n {
		return
	}

	newCap := cap(bb.B)
	if newCap == 0 {
		newCap = n
	}
	for newCap-len(bb.B) < n {
		newCap *= 2
	}

	grown := make([]byte, len(bb.B), newCap)
	copy(grown, bb.B)
	bb.B = grown
}

// WriteTo writes the buffer's contents to w, satisfying io.WriterTo so
// sstable.Builder can drain directly into its backing file.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool pools ByteBuffers of one default size, discarding anything
// that grew past discardAbove instead of returning it to the pool.
type ByteBufferPool struct {
	pool         sync.Pool
	discardAbove int
}

func newByteBufferPool(defaultSize, discardAbove int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return &ByteBuffer{B: make([]byte, 0, defaultSize)}
			},
		},
		discardAbove: discardAbove,
	}
}

// Get retrieves a ByteBuffer from the pool, allocating one of the pool's
// default size if none is available for reuse.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool, unless its capacity has grown past the
// pool's discard threshold.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.discardAbove > 0 && cap(bb.B) > bbp.discardAbove {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	accumulatorPool = newByteBufferPool(AccumulatorBufferSize, AccumulatorBufferDiscardAbove)
	stagingPool     = newByteBufferPool(StagingBufferSize, StagingBufferDiscardAbove)
)

// GetAccumulatorBuffer retrieves a buffer for bitstream.Writer's accumulator
// flushes from the pool.
func GetAccumulatorBuffer() *ByteBuffer {
	return accumulatorPool.Get()
}

// PutAccumulatorBuffer returns a buffer obtained from GetAccumulatorBuffer.
func PutAccumulatorBuffer(bb *ByteBuffer) {
	accumulatorPool.Put(bb)
}

// GetStagingBuffer retrieves a buffer for sstable.Builder's pre-drain
// staging from the pool.
func GetStagingBuffer() *ByteBuffer {
	return stagingPool.Get()
}

// PutStagingBuffer returns a buffer obtained from GetStagingBuffer.
func PutStagingBuffer(bb *ByteBuffer) {
	stagingPool.Put(bb)
}
