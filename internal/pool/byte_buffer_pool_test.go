package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_MustWriteAndReset(t *testing.T) {
	bb := &ByteBuffer{}

	bb.MustWrite([]byte("hello"))
	bb.MustWrite([]byte(" world"))
	require.Equal(t, "hello world", string(bb.Bytes()))
	require.Equal(t, 11, bb.Len())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
}

func TestByteBuffer_ExtendOrGrowWritesIntoExtendedRegion(t *testing.T) {
	bb := &ByteBuffer{}

	bb.ExtendOrGrow(4)
	require.Equal(t, 4, bb.Len())
	copy(bb.B, []byte{1, 2, 3, 4})

	bb.ExtendOrGrow(2)
	require.Equal(t, 6, bb.Len())
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0}, bb.B)
}

func TestByteBuffer_GrowDoublesUntilSufficient(t *testing.T) {
	bb := &ByteBuffer{B: make([]byte, 3, 4)}

	bb.Grow(5) // 4 -> 8, room for 3 existing + 5 new
	require.GreaterOrEqual(t, cap(bb.B), 8)
	require.Equal(t, 3, len(bb.B), "Grow must not change length, only capacity")
}

func TestByteBuffer_GrowNoopWhenCapacitySuffices(t *testing.T) {
	bb := &ByteBuffer{B: make([]byte, 0, 16)}

	bb.Grow(16)

	require.Equal(t, 16, cap(bb.B))
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := &ByteBuffer{}
	bb.MustWrite([]byte("payload"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)

	require.NoError(t, err)
	require.EqualValues(t, 7, n)
	require.Equal(t, "payload", out.String())
}

func TestByteBufferPool_GetReturnsBufferOfDefaultSize(t *testing.T) {
	p := newByteBufferPool(64, 256)

	bb := p.Get()
	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())
	require.Equal(t, 64, cap(bb.B))
}

func TestByteBufferPool_PutResetsForReuse(t *testing.T) {
	p := newByteBufferPool(64, 256)

	bb := p.Get()
	bb.MustWrite([]byte("leftover"))
	p.Put(bb)

	reused := p.Get()
	require.Equal(t, 0, reused.Len(), "Put must reset before returning to the pool")
}

func TestByteBufferPool_PutDiscardsOversizedBuffers(t *testing.T) {
	p := newByteBufferPool(8, 16)

	bb := p.Get()
	bb.Grow(100) // grows well past discardAbove
	p.Put(bb)

	fresh := p.Get()
	require.LessOrEqual(t, cap(fresh.B), 16, "oversized buffer must not have been pooled")
}

func TestAccumulatorPool_RoundTrip(t *testing.T) {
	bb := GetAccumulatorBuffer()
	require.Equal(t, AccumulatorBufferSize, cap(bb.B))

	bb.MustWrite([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	PutAccumulatorBuffer(bb)
}

func TestStagingPool_RoundTrip(t *testing.T) {
	bb := GetStagingBuffer()
	require.Equal(t, StagingBufferSize, cap(bb.B))

	bb.MustWrite(make([]byte, 128))
	PutStagingBuffer(bb)
}
