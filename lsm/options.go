package lsm

import (
	"github.com/kynetic/strata/compress"
	"github.com/kynetic/strata/internal/options"
)

// config holds the Engine construction parameters an Option can override.
type config struct {
	threshold int
	codec     compress.Codec
}

// Option configures an Engine at Open time.
type Option = options.Option[*config]

func defaultConfig() *config {
	return &config{threshold: Threshold, codec: compress.NewNoOpCompressor()}
}

// WithThreshold overrides the projected MemTable size, in bytes, past which
// Set flushes before inserting. Defaults to Threshold.
func WithThreshold(n int) Option {
	return options.NoError(func(c *config) {
		c.threshold = n
	})
}

// WithCodec sets the codec applied to SSTable values at flush time (and
// reversed on read). It never touches the MemTable or the WAL, and it never
// compresses the codec's own block bytes a second time -- only the opaque
// value payloads the store hands to the engine. Defaults to
// compress.NewNoOpCompressor(), which preserves the exact SSTable byte
// layout of the core format.
func WithCodec(c compress.Codec) Option {
	return options.NoError(func(cfg *config) {
		cfg.codec = c
	})
}
