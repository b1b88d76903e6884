// Package lsm ties the MemTable, SSTable, and manifest packages together
// into the log-structured merge tree: buffered writes flush to immutable,
// sorted files once they cross a size threshold, and reads check the
// MemTable before scanning on-disk SSTables whose key range brackets the
// query.
package lsm

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kynetic/strata/compress"
	"github.com/kynetic/strata/internal/options"
	"github.com/kynetic/strata/manifest"
	"github.com/kynetic/strata/memtable"
	"github.com/kynetic/strata/sstable"
)

// Threshold is the projected MemTable size, in bytes, past which a Set
// triggers a flush before inserting.
const Threshold = 4 * 1024 * 1024 // 4 MiB

// entryOverhead mirrors memtable's own per-entry accounting so Set can
// decide, before inserting, whether the incoming entry would push the
// MemTable over Threshold.
const entryOverhead = 8

const manifestFilename = "manifest.bin"

// Engine owns one MemTable, its manifest of flushed SSTables, and open
// readers for each. It is not safe for concurrent use; the store façade
// (package store) serializes access.
type Engine struct {
	dir          string
	mem          *memtable.MemTable
	man          *manifest.Manifest
	manifestPath string
	readers      map[string]*sstable.Reader
	threshold    int
	codec        compress.Codec
	totalFlushed int64
}

// Open loads the manifest (if any) from dir, opens a reader for every
// registered SSTable, and returns an Engine with an empty MemTable ready
// for writes. dir must already exist.
func Open(dir string, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, fmt.Errorf("lsm: apply options: %w", err)
	}

	manifestPath := filepath.Join(dir, manifestFilename)

	man, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("lsm: load manifest: %w", err)
	}

	readers := make(map[string]*sstable.Reader, len(man.SSTables))
	for _, meta := range man.SSTables {
		r, err := sstable.Open(filepath.Join(dir, meta.Filename))
		if err != nil {
			return nil, fmt.Errorf("lsm: open sstable %s: %w", meta.Filename, err)
		}

		readers[meta.Filename] = r
	}

	return &Engine{
		dir:          dir,
		mem:          memtable.New(),
		man:          man,
		manifestPath: manifestPath,
		readers:      readers,
		threshold:    cfg.threshold,
		codec:        cfg.codec,
	}, nil
}

// Set flushes the MemTable first if the incoming entry would push its
// projected size past Threshold, then inserts. flushed reports whether a
// flush occurred, so callers (the store façade) can drive their
// compaction handoff only when there is actually something new to
// compact.
func (e *Engine) Set(key, value []byte) (flushed bool, err error) {
	incoming := len(key) + len(value) + entryOverhead

	if e.mem.Len() > 0 && e.mem.ProjectedSize()+incoming > e.threshold {
		if err := e.Flush(); err != nil {
			return false, err
		}

		flushed = true
	}

	e.mem.Set(key, value)

	return flushed, nil
}

// Get checks the MemTable first, then scans SSTables whose [min_key,
// max_key] brackets key, returning the first hit. Absence from every
// bracketing SSTable (or no bracketing SSTable at all) reports ok=false.
func (e *Engine) Get(key []byte) (value []byte, ok bool, err error) {
	if v, ok := e.mem.Get(key); ok {
		return v, true, nil
	}

	for _, meta := range e.man.SSTables {
		if bytes.Compare(key, meta.MinKey) < 0 || bytes.Compare(key, meta.MaxKey) > 0 {
			continue
		}

		r := e.readers[meta.Filename]

		v, found, err := r.Get(key)
		if err != nil {
			return nil, false, fmt.Errorf("lsm: get from %s: %w", meta.Filename, err)
		}
		if found {
			v, err = e.codec.Decompress(v)
			if err != nil {
				return nil, false, fmt.Errorf("lsm: decompress value from %s: %w", meta.Filename, err)
			}

			return v, true, nil
		}
	}

	return nil, false, nil
}

// Flush is a no-op on an empty MemTable. Otherwise it writes every entry
// to a new SSTable (fresh UUID filename), commits it, appends its
// SSTableMeta to the manifest, rewrites the manifest, opens a reader for
// the new file, and resets the MemTable.
func (e *Engine) Flush() error {
	if e.mem.Len() == 0 {
		return nil
	}

	minKey, maxKey := e.mem.MinMaxKey()
	filename := uuid.NewString() + ".sst"
	path := filepath.Join(e.dir, filename)

	b, err := sstable.NewBuilder(path)
	if err != nil {
		return fmt.Errorf("lsm: create sstable: %w", err)
	}

	for rec := range e.mem.Iterator() {
		val, err := e.codec.Compress(rec.Value)
		if err != nil {
			return fmt.Errorf("lsm: compress value: %w", err)
		}

		if err := b.Add(rec.Key, val); err != nil {
			return fmt.Errorf("lsm: write sstable entry: %w", err)
		}
	}

	if err := b.Commit(); err != nil {
		return fmt.Errorf("lsm: commit sstable: %w", err)
	}

	e.man.Append(manifest.SSTableMeta{
		Filename: filename,
		Level:    0,
		MinKey:   append([]byte(nil), minKey...),
		MaxKey:   append([]byte(nil), maxKey...),
	})

	if err := e.man.Save(e.manifestPath); err != nil {
		return fmt.Errorf("lsm: save manifest: %w", err)
	}

	r, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("lsm: reopen flushed sstable: %w", err)
	}
	e.readers[filename] = r

	e.totalFlushed += int64(e.mem.ProjectedSize())
	e.mem.Reset()

	return nil
}

// TotalBytesFlushed returns the cumulative projected size of every MemTable
// this Engine has flushed to an SSTable over its lifetime (reset on reopen,
// since it is not persisted in the manifest).
func (e *Engine) TotalBytesFlushed() int64 {
	return e.totalFlushed
}

// MemTable exposes the underlying MemTable. The store façade does not use
// it: its WAL recovery replays records through Set, flush policy included,
// and then forces a flush regardless of size.
func (e *Engine) MemTable() *memtable.MemTable {
	return e.mem
}

// Close releases every open SSTable reader.
func (e *Engine) Close() error {
	var firstErr error

	for _, r := range e.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
