package store

import (
	"fmt"
	"time"

	"github.com/kynetic/strata/compress"
	"github.com/kynetic/strata/format"
	"github.com/kynetic/strata/internal/options"
	"github.com/kynetic/strata/lsm"
	"github.com/rs/zerolog"
)

// sstableFanout is the construction-time default for Options.SSTableFanout:
// a process-wide parameter a future leveled compactor would use to decide
// when level 0 merges into level 1. This core implementation's compactor
// moves no data (see compactorLoop), so the value is carried but unused.
const sstableFanout = 4

// blockDuration is the construction-time default for Options.BlockDuration:
// the nominal time window a caller batches samples into before handing a
// compressed block to Set. The store itself treats keys and values as
// opaque bytes and never reads this field; it exists for callers (such as
// the ingestion CLI) that share a Store's Options.
const blockDuration = 2 * time.Hour

// Options configures a Store. Construct via Open's variadic option
// arguments, built with the With* functions below.
type Options struct {
	// Logger receives structured events for flush, compaction, and
	// recovery. The zero value falls back to zerolog.Nop(), matching how
	// the rest of the ambient stack treats an unconfigured logger as
	// silent rather than an error.
	Logger zerolog.Logger

	// MemtableThreshold is the projected MemTable size, in bytes, past
	// which Set flushes before inserting. Defaults to lsm.Threshold (4 MiB).
	MemtableThreshold int

	// SSTableFanout is carried for a future leveled compactor; this core
	// implementation's compactor performs no data movement and never reads
	// it. Defaults to 4.
	SSTableFanout int

	// BlockDuration is the nominal batching window callers use to decide
	// when to compress and hand off a block. The store never reads it;
	// it is plumbed through Options so a caller sharing a Store's Options
	// (e.g. the ingestion CLI) has one place to configure it.
	BlockDuration time.Duration

	// Codec compresses SSTable values at flush time and decompresses them
	// on read. It never touches the MemTable, the WAL, or the codec
	// package's own block bytes. Defaults to compress.NewNoOpCompressor(),
	// which preserves the exact on-disk byte layout of the core format.
	Codec compress.Codec
}

// Option configures a Store at Open time.
type Option = options.Option[*Options]

func defaultOptions() *Options {
	return &Options{
		Logger:            zerolog.Nop(),
		MemtableThreshold: lsm.Threshold,
		SSTableFanout:     sstableFanout,
		BlockDuration:     blockDuration,
		Codec:             compress.NewNoOpCompressor(),
	}
}

// WithLogger sets the structured logger used for flush/compaction/recovery
// events.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(o *Options) {
		o.Logger = l
	})
}

// WithMemtableThreshold overrides the projected MemTable flush threshold.
func WithMemtableThreshold(n int) Option {
	return options.NoError(func(o *Options) {
		o.MemtableThreshold = n
	})
}

// WithSSTableFanout overrides the level-0-to-level-1 fanout a future
// leveled compactor would use. Unused by this core implementation.
func WithSSTableFanout(n int) Option {
	return options.NoError(func(o *Options) {
		o.SSTableFanout = n
	})
}

// WithBlockDuration overrides the nominal batching window exposed to
// callers via Options.BlockDuration.
func WithBlockDuration(d time.Duration) Option {
	return options.NoError(func(o *Options) {
		o.BlockDuration = d
	})
}

// WithCodec sets the at-rest compression codec applied to SSTable values.
func WithCodec(c compress.Codec) Option {
	return options.NoError(func(o *Options) {
		o.Codec = c
	})
}

// WithCompression selects a built-in codec by compression type, the way a
// caller configuring the store from a single enum (a CLI flag, a config
// file) would rather than constructing a compress.Codec directly.
func WithCompression(t format.CompressionType) Option {
	return options.New(func(o *Options) error {
		c, err := compress.CreateCodec(t, "sstable")
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}

		o.Codec = c

		return nil
	})
}
