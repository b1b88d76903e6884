package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/kynetic/strata/format"
)

// Compressor compresses one SSTable value chunk (the `value` half of a
// `u32 vallen || value` data-section entry, see sstable's file layout doc).
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. lsm.Engine holds exactly one Codec,
// chosen once via store.WithCompression, and applies it to every value at
// flush time and on every SSTable hit.
type Codec interface {
	Compressor
	Decompressor
}

// frame prepends the uncompressed length of original to payload, mirroring
// the length-prefixed chunks sstable itself writes (`u32 len || bytes`).
// Every non-identity codec in this package uses this framing so Decompress
// can allocate the exact output size instead of guessing and retrying, as
// block-oriented algorithms like LZ4 otherwise require.
func frame(original []byte, payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(original))) //nolint:gosec // chunk sizes never approach 2^32
	copy(out[4:], payload)

	return out
}

// maxFrameOriginalLen bounds the length prefix unframe will trust, so a
// corrupted or adversarial frame header can't drive an allocation far
// larger than any real SSTable value chunk.
const maxFrameOriginalLen = 128 * 1024 * 1024 // 128MiB

// unframe splits a framed buffer back into the original length and the
// algorithm-specific compressed payload.
func unframe(data []byte) (originalLen int, payload []byte, err error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("compress: framed payload too short: %d bytes", len(data))
	}

	n := binary.LittleEndian.Uint32(data[:4])
	if n > maxFrameOriginalLen {
		return 0, nil, fmt.Errorf("compress: framed original length %d exceeds sanity bound", n)
	}

	return int(n), data[4:], nil
}

// CreateCodec builds the Codec for a compression type recorded in
// store.Options/format.CompressionType. target names the call site in
// error messages (store.WithCompression uses "sstable").
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}
