package compress

// NoOpCompressor is the default store.Options.Codec: it passes SSTable
// value bytes through unchanged, preserving the exact chunk layout
// sstable's file format documents. It deliberately skips the frame/unframe
// length prefix the other codecs use, since there is nothing to recover a
// size for.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor returns a NoOpCompressor.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
