package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemTable_SetGet(t *testing.T) {
	m := New()

	m.Set([]byte("foo"), []byte("bar"))
	m.Set([]byte("zoo"), []byte("kee"))

	v, ok := m.Get([]byte("foo"))
	require.True(t, ok)
	require.Equal(t, "bar", string(v))

	v, ok = m.Get([]byte("zoo"))
	require.True(t, ok)
	require.Equal(t, "kee", string(v))

	_, ok = m.Get([]byte("absent"))
	require.False(t, ok)
}

func TestMemTable_OverwriteUpdatesSize(t *testing.T) {
	m := New()
	m.Set([]byte("k"), []byte("short"))
	sizeShort := m.ProjectedSize()

	m.Set([]byte("k"), []byte("a much longer value"))
	require.Greater(t, m.ProjectedSize(), sizeShort)
	require.Equal(t, 1, m.Len())

	v, _ := m.Get([]byte("k"))
	require.Equal(t, "a much longer value", string(v))
}

func TestMemTable_IterationIsSorted(t *testing.T) {
	m := New()
	for _, k := range []string{"delta", "alpha", "charlie", "bravo"} {
		m.Set([]byte(k), []byte("v"))
	}

	var got []string
	for rec := range m.Iterator() {
		got = append(got, string(rec.Key))
	}

	require.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, got)
}

func TestMemTable_MinMaxKey(t *testing.T) {
	m := New()
	m.Set([]byte("m"), []byte("1"))
	m.Set([]byte("a"), []byte("2"))
	m.Set([]byte("z"), []byte("3"))

	min, max := m.MinMaxKey()
	require.Equal(t, "a", string(min))
	require.Equal(t, "z", string(max))
}

func TestMemTable_Reset(t *testing.T) {
	m := New()
	m.Set([]byte("k"), []byte("v"))
	require.Equal(t, 1, m.Len())

	m.Reset()
	require.Equal(t, 0, m.Len())
	require.Equal(t, 0, m.ProjectedSize())

	_, ok := m.Get([]byte("k"))
	require.False(t, ok)
}

func TestMemTable_ProjectedSizeGrowsWithEntries(t *testing.T) {
	m := New()
	require.Equal(t, 0, m.ProjectedSize())

	m.Set([]byte("ab"), []byte("cd"))
	require.Equal(t, len("ab")+len("cd")+entryOverhead, m.ProjectedSize())
}
