// Package errs defines the sentinel errors shared across the storage engine.
//
// Callers should compare against these with errors.Is rather than matching
// error strings; wrapped I/O errors retain their underlying cause via %w.
package errs

import "errors"

var (
	// ErrAppendOrder is returned when a sample's timestamp is not
	// monotonically non-decreasing relative to the previously appended one.
	ErrAppendOrder = errors.New("strata: timestamp is not monotonically increasing")

	// ErrAppendDuration is returned when the gap between two consecutive
	// timestamps exceeds 16384 seconds, or when the first sample's offset
	// from the header time does not fit the codec's 14-bit first-delta field
	// (at most 16383 seconds).
	ErrAppendDuration = errors.New("strata: timestamp delta exceeds maximum duration")

	// ErrBadDimension is returned when a vector sample's value count does
	// not match the dimension the block was created with.
	ErrBadDimension = errors.New("strata: value count does not match block dimension")

	// ErrBitReaderOverflow is returned when a decode attempts to read past
	// the recorded bit length of a block, or requests more samples than the
	// block was encoded with.
	ErrBitReaderOverflow = errors.New("strata: bit reader overflow")

	// ErrKeyNotFound names a lookup key that is not present in the memtable
	// or any SSTable covering its range. No lookup in this module returns
	// it: Engine.Get and Store.Get report a missing key with ok=false.
	ErrKeyNotFound = errors.New("strata: key not found")

	// ErrTruncatedManifest names a manifest that ends mid-record. The
	// manifest package does not return it: manifest.Load turns a truncated
	// file into an empty manifest ("no SSTables") with no error.
	ErrTruncatedManifest = errors.New("strata: truncated manifest")

	// ErrClosed is returned by Store operations after Close has been called.
	ErrClosed = errors.New("strata: store is closed")
)
