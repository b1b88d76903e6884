// Package sstable implements the immutable, sorted, on-disk key/value file
// that backs each level of the LSM tree: a data section of key/value pairs
// in insertion order, an index section mapping every key to its data
// offset, and a fixed footer anchoring both.
//
// File layout, all integers little-endian:
//
//	[ data section ]   repeated: u32 keylen, key, u32 vallen, value
//	[ index section ]  repeated: u32 keylen, key, u32 data_offset
//	[ footer ]         u32 num_entries, u32 index_offset
//
// The caller must feed keys in sorted order; the builder never sorts.
package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/kynetic/strata/internal/pool"
)

const footerSize = 4 + 4 // num_entries, index_offset

// indexEntry records one key's data offset, used both while building (to
// emit the index section) and after opening (as the in-memory lookup
// table).
type indexEntry struct {
	key    []byte
	offset uint32
}

// Builder writes a new SSTable. Entries must be added in non-decreasing key
// order; Builder does not sort.
//
// Writes stage into a pooled ByteBuffer rather than going straight to the
// file each call; the buffer drains to disk once it crosses its pool's
// size threshold, and Commit drains whatever remains.
type Builder struct {
	f       *os.File
	buf     *pool.ByteBuffer
	offset  uint32
	entries []indexEntry
}

// NewBuilder creates (truncating if necessary) the file at path and returns
// a Builder ready to accept entries.
func NewBuilder(path string) (*Builder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: create %s: %w", path, err)
	}

	return &Builder{f: f, buf: pool.GetStagingBuffer()}, nil
}

// Add appends one key/value pair to the data section and records its
// offset in the index.
func (b *Builder) Add(key, value []byte) error {
	start := b.offset

	if err := b.writeChunk(key); err != nil {
		return err
	}
	if err := b.writeChunk(value); err != nil {
		return err
	}

	b.entries = append(b.entries, indexEntry{key: append([]byte(nil), key...), offset: start})

	return nil
}

func (b *Builder) writeChunk(v []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))

	b.buf.MustWrite(lenBuf[:])
	b.buf.MustWrite(v)
	b.offset += 4 + uint32(len(v))

	if b.buf.Len() >= pool.StagingBufferSize {
		return b.drain()
	}

	return nil
}

// drain flushes the staging buffer to the file and resets it for reuse.
func (b *Builder) drain() error {
	if _, err := b.buf.WriteTo(b.f); err != nil {
		return fmt.Errorf("sstable: drain staging buffer: %w", err)
	}

	b.buf.Reset()

	return nil
}

// MergeFile opens an existing SSTable at path and re-adds every entry in
// its iteration order. Only safe when the source SSTable's keys all sort
// above every key already added to this builder.
func (b *Builder) MergeFile(path string) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	it, err := r.Iterator()
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		if err := b.Add(it.Key(), it.Value()); err != nil {
			return err
		}
	}

	return it.Err()
}

// Commit appends the index section and the footer, flushes, and closes the
// file. The Builder must not be used afterward.
func (b *Builder) Commit() error {
	indexOffset := b.offset

	for _, e := range b.entries {
		if err := b.writeChunk(e.key); err != nil {
			return err
		}

		var offBuf [4]byte
		binary.LittleEndian.PutUint32(offBuf[:], e.offset)
		b.buf.MustWrite(offBuf[:])

		b.offset += 4
	}

	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[0:4], uint32(len(b.entries)))
	binary.LittleEndian.PutUint32(footer[4:8], indexOffset)
	b.buf.MustWrite(footer[:])

	if err := b.drain(); err != nil {
		return err
	}
	pool.PutStagingBuffer(b.buf)
	b.buf = nil

	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("sstable: sync: %w", err)
	}

	return b.f.Close()
}

// MinMaxKey returns the smallest and largest key added so far, assuming
// entries were added in sorted order. Panics if no entries were added.
func (b *Builder) MinMaxKey() (min, max []byte) {
	return b.entries[0].key, b.entries[len(b.entries)-1].key
}

// Reader provides point lookups and sequential iteration over an opened
// SSTable. Its index is loaded fully into memory on Open.
type Reader struct {
	path        string
	f           *os.File
	index       map[string]uint32
	indexOffset int64
}

// Open reads the footer and index section of the SSTable at path and
// returns a Reader ready for Get and Iterator.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}

	end, err := f.Seek(-footerSize, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: seek footer: %w", err)
	}

	var footer [footerSize]byte
	if _, err := io.ReadFull(f, footer[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: read footer: %w", err)
	}

	numEntries := binary.LittleEndian.Uint32(footer[0:4])
	indexOffset := binary.LittleEndian.Uint32(footer[4:8])

	if _, err := f.Seek(int64(indexOffset), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: seek index: %w", err)
	}

	index := make(map[string]uint32, numEntries)
	br := bufio.NewReader(io.LimitReader(f, end-int64(indexOffset)))

	for i := uint32(0); i < numEntries; i++ {
		key, err := readChunk(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sstable: read index entry %d: %w", i, err)
		}

		var offBuf [4]byte
		if _, err := io.ReadFull(br, offBuf[:]); err != nil {
			f.Close()
			return nil, fmt.Errorf("sstable: read index offset %d: %w", i, err)
		}

		index[string(key)] = binary.LittleEndian.Uint32(offBuf[:])
	}

	return &Reader{path: path, f: f, index: index, indexOffset: int64(indexOffset)}, nil
}

// Get returns the value for key and true, or false if the key is absent
// from this SSTable.
func (r *Reader) Get(key []byte) ([]byte, bool, error) {
	offset, ok := r.index[string(key)]
	if !ok {
		return nil, false, nil
	}

	if _, err := r.f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, false, fmt.Errorf("sstable: seek to %d: %w", offset, err)
	}

	br := bufio.NewReader(r.f)

	if _, err := readChunk(br); err != nil { // skip the key
		return nil, false, fmt.Errorf("sstable: re-read key: %w", err)
	}

	value, err := readChunk(br)
	if err != nil {
		return nil, false, fmt.Errorf("sstable: read value: %w", err)
	}

	return value, true, nil
}

// NumEntries returns the number of records in the index.
func (r *Reader) NumEntries() int {
	return len(r.index)
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Iterator walks the data section sequentially via a fresh file handle, so
// it never disturbs a Reader's point-lookup position.
type Iterator struct {
	f   *os.File
	br  *bufio.Reader
	key []byte
	val []byte
	err error
}

// Iterator re-opens the SSTable's file and returns an Iterator positioned
// before the first entry. Reads are bounded to the data section so
// iteration stops cleanly at the index section rather than misreading it
// as further entries.
func (r *Reader) Iterator() (*Iterator, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("sstable: reopen %s: %w", r.path, err)
	}

	return &Iterator{f: f, br: bufio.NewReader(io.LimitReader(f, r.indexOffset))}, nil
}

// Next advances to the next entry, returning false at the end of the data
// section or on error (check Err to distinguish).
func (it *Iterator) Next() bool {
	key, err := readChunk(it.br)
	if err != nil {
		if err != io.EOF {
			it.err = fmt.Errorf("sstable: iterate key: %w", err)
		}

		return false
	}

	val, err := readChunk(it.br)
	if err != nil {
		it.err = fmt.Errorf("sstable: iterate value: %w", err)
		return false
	}

	it.key, it.val = key, val

	return true
}

// Key returns the current entry's key. Valid only after Next returns true.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value. Valid only after Next returns
// true.
func (it *Iterator) Value() []byte { return it.val }

// Err returns the error, if any, that stopped iteration.
func (it *Iterator) Err() error { return it.err }

// Close releases the iterator's file handle.
func (it *Iterator) Close() error { return it.f.Close() }

func readChunk(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}
