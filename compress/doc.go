// Package compress provides the at-rest compression codecs for SSTable
// value chunks (format.CompressionType).
//
// lsm.Engine holds one Codec, selected once via store.WithCompression, and
// applies it symmetrically: Compress on every value at flush time,
// Decompress on every SSTable hit. The block codec's own output (the
// bit-packed scalar/vector blocks) is the data being compressed here, not
// reimplemented — this package never looks inside the bytes it's given.
//
//   - NoOp (format.CompressionNone, the default): passes bytes through
//     unchanged, preserving sstable's documented chunk layout exactly.
//   - Zstd: best ratio, worth it for data read back rarely.
//   - S2: Snappy-compatible, a faster middle ground.
//   - LZ4: fastest decompression, for read-heavy stores.
//
// Zstd, S2, and LZ4 all wrap their compressed payload in the same frame
// (a little-endian u32 original length, mirroring the length-prefixed
// chunks sstable itself writes) so the package has one on-disk convention
// instead of three, even though only LZ4's block API actually needs the
// length to avoid a decompress-side guess-and-retry loop.
package compress
