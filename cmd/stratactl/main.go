// Command stratactl is a thin ingestion and inspection CLI for a strata
// store. It is a caller of the store.Store API, not a reimplementation of
// it: the parsing of a CSV-like input file into samples and the hashing of
// series tag strings into composite keys are exactly the boundary the core
// specification places out of scope.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/kynetic/strata/codec"
	"github.com/kynetic/strata/internal/ingest"
	"github.com/kynetic/strata/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error

	switch os.Args[1] {
	case "write":
		err = runWrite(os.Args[2:])
	case "get":
		err = runGet(os.Args[2:])
	case "flush":
		err = runFlush(os.Args[2:])
	case "compact":
		err = runCompact(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "stratactl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: stratactl <write|get|flush|compact> [flags]")
}

func runWrite(args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	root := fs.String("root", "", "store root directory")
	input := fs.String("file", "", "path to the CSV-like input file")
	dim := fs.Int("dim", 1, "vector dimension of every record")
	batch := fs.Int("batch", 64, "samples per series accumulated into one block before compression")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *root == "" || *input == "" {
		return fmt.Errorf("write: -root and -file are required")
	}

	f, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("write: open input: %w", err)
	}
	defer f.Close()

	records, err := ingest.ReadAll(f)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	s, err := store.Open(*root)
	if err != nil {
		return fmt.Errorf("write: open store: %w", err)
	}
	defer s.Close()

	order, bySeries := ingest.GroupBySeries(records)

	var written int

	for _, tags := range order {
		for _, chunk := range ingest.Batch(bySeries[tags], *batch) {
			key, block, err := ingest.CompressBatch(chunk, *dim)
			if err != nil {
				return fmt.Errorf("write: series %q: %w", tags, err)
			}

			if err := s.Set(key, block); err != nil {
				return fmt.Errorf("write: series %q: %w", tags, err)
			}

			written++
		}
	}

	fmt.Printf("wrote %d block(s) across %d series\n", written, len(order))
	fmt.Printf("bytes flushed to sstables this run: %d\n", s.TotalBytesFlushed())

	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	root := fs.String("root", "", "store root directory")
	tags := fs.String("tags", "", "series tag string used at write time")
	start := fs.Int64("start", 0, "block start timestamp (unix seconds)")
	dim := fs.Int("dim", 1, "vector dimension the block was written with")
	count := fs.Int("count", 0, "number of samples the block was written with")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *root == "" || *tags == "" || *count == 0 {
		return fmt.Errorf("get: -root, -tags, and -count are required")
	}

	s, err := store.Open(*root)
	if err != nil {
		return fmt.Errorf("get: open store: %w", err)
	}
	defer s.Close()

	key := ingest.SeriesKey(*tags, *start)

	block, ok, err := s.Get(key)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if !ok {
		return fmt.Errorf("get: no block for series %q starting at %d", *tags, *start)
	}

	samples, err := codec.DecompressVector(block, *dim, *count)
	if err != nil {
		return fmt.Errorf("get: decompress: %w", err)
	}

	for _, smp := range samples {
		fmt.Printf("%d %s\n", smp.Time, formatValues(smp.Values))
	}

	return nil
}

func runFlush(args []string) error {
	fs := flag.NewFlagSet("flush", flag.ExitOnError)
	root := fs.String("root", "", "store root directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *root == "" {
		return fmt.Errorf("flush: -root is required")
	}

	s, err := store.Open(*root)
	if err != nil {
		return fmt.Errorf("flush: open store: %w", err)
	}
	defer s.Close()

	if err := s.FlushMemtable(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	fmt.Println("flush complete")

	return nil
}

// runCompact is a placeholder matching the core specification's compactor
// contract: the background compactor performs no data movement, only the
// condition-variable handoff Store already drives from Set and
// FlushMemtable. There is nothing left for this command to trigger beyond
// opening and cleanly closing the store.
func runCompact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	root := fs.String("root", "", "store root directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *root == "" {
		return fmt.Errorf("compact: -root is required")
	}

	s, err := store.Open(*root)
	if err != nil {
		return fmt.Errorf("compact: open store: %w", err)
	}

	fmt.Println("compact: no-op in this core implementation; level-0 SSTables are never merged")

	return s.Close()
}

func formatValues(values []float64) string {
	out := ""

	for i, v := range values {
		if i > 0 {
			out += ","
		}

		out += strconv.FormatFloat(v, 'g', -1, 64)
	}

	return out
}
