// Package format defines the small set of wire-level type tags shared by the
// storage engine, currently just the at-rest compression algorithm used for
// SSTable value payloads.
package format

// CompressionType identifies the algorithm used to compress an SSTable's
// value payloads. The block codec's own output (scalar/vector blocks) is
// never compressed a second time by this tag — only the opaque bytes stored
// as SSTable values are eligible.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone disables at-rest compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd selects Zstandard.
	CompressionS2   CompressionType = 0x3 // CompressionS2 selects S2 (Snappy-compatible, faster).
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 selects LZ4.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
