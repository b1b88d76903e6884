// Package ingest implements the boundary the core specification places
// deliberately out of scope: parsing a CSV-like text file into multivariate
// samples, and hashing a series' tag string into the composite key the
// store files blocks under. None of this package's logic runs inside the
// codec or the LSM engine, which treat keys and block bytes as opaque.
package ingest

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kynetic/strata/codec"
	"github.com/kynetic/strata/internal/hash"
)

// Record is one parsed input line: a series identified by its tag string,
// a Unix-seconds timestamp, and an ordered vector of values.
type Record struct {
	Tags   string
	Time   int64
	Values []float64
}

// ParseLine parses one line of the input format:
//
//	<tags>|<unix_seconds>|<v1>,<v2>,...,<vD>
//
// tags is an opaque, caller-defined string (e.g. "host=web01,metric=cpu")
// used only as hashing input; it is never interpreted by the store or the
// codec. Blank lines and lines starting with '#' are skipped by ReadAll
// rather than this function, which always expects a well-formed record.
func ParseLine(line string) (Record, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("ingest: expected 3 '|'-separated fields, got %d", len(parts))
	}

	tags := parts[0]
	if tags == "" {
		return Record{}, fmt.Errorf("ingest: empty tag string")
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("ingest: parse timestamp %q: %w", parts[1], err)
	}

	fields := strings.Split(parts[2], ",")
	values := make([]float64, len(fields))

	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Record{}, fmt.Errorf("ingest: parse value %d (%q): %w", i, f, err)
		}

		values[i] = v
	}

	return Record{Tags: tags, Time: ts, Values: values}, nil
}

// ReadAll parses every non-blank, non-comment line from r via ParseLine.
func ReadAll(r io.Reader) ([]Record, error) {
	var records []Record

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("ingest: line %d: %w", lineNo, err)
		}

		records = append(records, rec)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: scan: %w", err)
	}

	return records, nil
}

// SeriesKey builds the composite store key for a block: the series' tag
// string hashed to 64 bits, concatenated with the block's start timestamp.
// Both halves are big-endian so that byte-lexicographic key comparison
// (which the MemTable, the manifest's key-range check, and the SSTable
// index all rely on) agrees with numeric ordering by series then by time --
// little-endian integers would sort by their low byte first and scramble
// that order.
func SeriesKey(tags string, startTime int64) []byte {
	var key [16]byte
	binary.BigEndian.PutUint64(key[0:8], hash.ID(tags))
	binary.BigEndian.PutUint64(key[8:16], uint64(startTime))

	return key[:]
}

// Batch splits records, assumed already in non-decreasing Time order for a
// single series, into chunks of at most size samples, ready for
// codec.CompressVector. size must be positive.
func Batch(records []Record, size int) [][]Record {
	if size <= 0 {
		size = len(records)
	}

	var batches [][]Record
	for len(records) > 0 {
		n := size
		if n > len(records) {
			n = len(records)
		}

		batches = append(batches, records[:n])
		records = records[n:]
	}

	return batches
}

// CompressBatch encodes one batch of same-dimension records into a block,
// using the batch's first timestamp as the block's header time.
func CompressBatch(batch []Record, dim int) (key, block []byte, err error) {
	if len(batch) == 0 {
		return nil, nil, fmt.Errorf("ingest: empty batch")
	}

	samples := make([]codec.VectorSample, len(batch))
	for i, r := range batch {
		if len(r.Values) != dim {
			return nil, nil, fmt.Errorf("ingest: record %d has %d values, want %d", i, len(r.Values), dim)
		}

		samples[i] = codec.VectorSample{Time: r.Time, Values: r.Values}
	}

	block, err = codec.CompressVector(samples, batch[0].Time, dim)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: compress block: %w", err)
	}

	key = SeriesKey(batch[0].Tags, batch[0].Time)

	return key, block, nil
}

// GroupBySeries partitions records by their Tags field, preserving each
// series' relative order. The returned order of series is the order each
// tag string first appears in records.
func GroupBySeries(records []Record) (order []string, bySeries map[string][]Record) {
	bySeries = make(map[string][]Record)

	for _, r := range records {
		if _, ok := bySeries[r.Tags]; !ok {
			order = append(order, r.Tags)
		}

		bySeries[r.Tags] = append(bySeries[r.Tags], r)
	}

	return order, bySeries
}
