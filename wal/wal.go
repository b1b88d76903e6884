// Package wal implements the write-ahead log the store appends to before
// every MemTable insert, so a crash can replay committed writes.
//
// Layout, per record, all integers little-endian:
//
//	u64 secs, u32 nanos, u32 keylen, key, u32 vallen, value
//
// The writer flushes (fsyncs) after every record, so a crash loses at most
// data still sitting in kernel write buffers from the most recent Append.
// The reader iterates until it cannot read a full header; a partial
// trailing record (as a crash mid-Append would leave) ends iteration
// without error.
package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
)

const recordHeaderSize = 8 + 4 + 4 // secs, nanos, keylen

// Record is one WAL entry: a key/value write at a point in time.
type Record struct {
	Secs  uint64
	Nanos uint32
	Key   []byte
	Value []byte
}

// Writer appends records to a WAL file, syncing after each one.
type Writer struct {
	f *os.File
}

// Open opens (creating if necessary) the WAL file at path for appending.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	return &Writer{f: f}, nil
}

// Append writes one record and syncs it to disk before returning.
func (w *Writer) Append(secs uint64, nanos uint32, key, value []byte) error {
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], secs)
	binary.LittleEndian.PutUint32(header[8:12], nanos)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(key)))

	if _, err := w.f.Write(header[:]); err != nil {
		return fmt.Errorf("wal: write header: %w", err)
	}
	if _, err := w.f.Write(key); err != nil {
		return fmt.Errorf("wal: write key: %w", err)
	}

	var valLen [4]byte
	binary.LittleEndian.PutUint32(valLen[:], uint32(len(value)))
	if _, err := w.f.Write(valLen[:]); err != nil {
		return fmt.Errorf("wal: write value length: %w", err)
	}
	if _, err := w.f.Write(value); err != nil {
		return fmt.Errorf("wal: write value: %w", err)
	}

	return w.f.Sync()
}

// Truncate empties the WAL file and resets the write position to the
// start, used once the MemTable it protects has been durably flushed.
func (w *Writer) Truncate() error {
	if err := w.f.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek to start: %w", err)
	}

	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Replay opens the WAL file at path read-only and returns every complete
// record in order. A missing file yields no records. A record that is cut
// off partway through its header or payload (a crash mid-Append) ends
// iteration silently rather than surfacing an error.
func Replay(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer f.Close()

	var records []Record

	for rec := range iterate(bufio.NewReader(f)) {
		records = append(records, rec)
	}

	return records, nil
}

// iterate yields records from r until a short read (truncated header or
// payload) or EOF ends the stream.
func iterate(r *bufio.Reader) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			var header [recordHeaderSize]byte
			if _, err := io.ReadFull(r, header[:]); err != nil {
				return
			}

			secs := binary.LittleEndian.Uint64(header[0:8])
			nanos := binary.LittleEndian.Uint32(header[8:12])
			keyLen := binary.LittleEndian.Uint32(header[12:16])

			key := make([]byte, keyLen)
			if _, err := io.ReadFull(r, key); err != nil {
				return
			}

			var valLenBuf [4]byte
			if _, err := io.ReadFull(r, valLenBuf[:]); err != nil {
				return
			}
			valLen := binary.LittleEndian.Uint32(valLenBuf[:])

			value := make([]byte, valLen)
			if _, err := io.ReadFull(r, value); err != nil {
				return
			}

			if !yield(Record{Secs: secs, Nanos: nanos, Key: key, Value: value}) {
				return
			}
		}
	}
}
