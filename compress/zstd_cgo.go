//go:build nobuild

package compress

import (
	"github.com/valyala/gozstd"
)

// Compress compresses data with cgo gozstd. Kept behind the nobuild tag
// until a cgo-enabled build target for this store exists; zstd_pure.go is
// the path every plain `go build` actually takes.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return frame(data, gozstd.CompressLevel(nil, data, 3)), nil
}

func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	_, payload, err := unframe(data)
	if err != nil {
		return nil, err
	}

	return gozstd.Decompress(nil, payload)
}
