package compress

import (
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool reuses lz4.Compressor instances, which hold internal
// match-finding state worth keeping warm across calls.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor favors decompression speed over ratio, for stores where
// SSTable reads dominate over flushes.
//
// lz4's block API has no self-describing length the way s2 and zstd's
// frame formats do, so Decompress would otherwise have to guess a buffer
// size and retry on overflow. Compress instead records the original
// length via frame, letting Decompress allocate the exact output size up
// front.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor returns an LZ4Compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}

	return frame(data, dst[:n]), nil
}

func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	originalLen, payload, err := unframe(data)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, originalLen)

	n, err := lz4.UncompressBlock(payload, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}
