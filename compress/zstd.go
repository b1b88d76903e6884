package compress

// ZstdCompressor selects Zstandard, for stores that favor flush-time size
// over decompression speed (cold data, read rarely). Its Compress/Decompress
// bodies live in zstd_cgo.go / zstd_pure.go, split on the nobuild build tag.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor returns a ZstdCompressor.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
