// Package memtable provides the in-memory, sorted key/value store that
// buffers writes ahead of an SSTable flush.
//
// Keys compare byte-lexicographically via bytes.Compare, matching the sort
// order the SSTable format relies on. Entries are kept in a sorted slice:
// simple and cache-friendly at the sizes a single memtable holds before a
// flush (a few MiB), unlike the skip list a wider-fanout log engine would
// want.
package memtable

import (
	"bytes"
	"iter"
	"sort"
)

// entryOverhead is the fixed per-entry bookkeeping cost folded into the
// flush-size projection, alongside the key and value bytes themselves.
const entryOverhead = 8

// Record is one key/value pair as returned by Iterator.
type Record struct {
	Key   []byte
	Value []byte
}

// MemTable is an ordered mapping with a running projection of how large
// its backing SSTable would be if flushed right now.
type MemTable struct {
	entries       []Record
	projectedSize int
}

// New returns an empty MemTable.
func New() *MemTable {
	return &MemTable{}
}

// ProjectedSize returns the running estimate of flushed-SSTable size: the
// sum of each entry's key length, value length, and entryOverhead.
func (m *MemTable) ProjectedSize() int {
	return m.projectedSize
}

// Len returns the number of entries currently held.
func (m *MemTable) Len() int {
	return len(m.entries)
}

// Set inserts or overwrites key's value, updating the size projection. It
// does not apply any flush policy; callers (the LSM engine) decide when a
// Set would cross a threshold and flush beforehand.
func (m *MemTable) Set(key, value []byte) {
	i := m.search(key)

	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		m.projectedSize += len(value) - len(m.entries[i].Value)
		m.entries[i].Value = append([]byte(nil), value...)

		return
	}

	rec := Record{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)}

	m.entries = append(m.entries, Record{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = rec

	m.projectedSize += len(key) + len(value) + entryOverhead
}

// Get returns the value for key and true, or false if key is absent.
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	i := m.search(key)
	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		return m.entries[i].Value, true
	}

	return nil, false
}

// MinMaxKey returns the smallest and largest key currently held. Panics if
// the MemTable is empty.
func (m *MemTable) MinMaxKey() (min, max []byte) {
	return m.entries[0].Key, m.entries[len(m.entries)-1].Key
}

// Reset discards all entries, returning the MemTable to its zero state.
func (m *MemTable) Reset() {
	m.entries = nil
	m.projectedSize = 0
}

// Iterator walks entries in ascending key order, already sorted -- the
// order an SSTable flush requires.
func (m *MemTable) Iterator() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, e := range m.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// search returns the index of key if present, or the index it would be
// inserted at to keep entries sorted.
func (m *MemTable) search(key []byte) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return bytes.Compare(m.entries[i].Key, key) >= 0
	})
}
