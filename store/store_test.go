package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kynetic/strata/errs"
	"github.com/kynetic/strata/format"
	"github.com/kynetic/strata/wal"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetAbsent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set([]byte("foo"), []byte("bar")))
	require.NoError(t, s.Set([]byte("zoo"), []byte("kee")))

	v, ok, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bar", string(v))

	v, ok, err = s.Get([]byte("zoo"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kee", string(v))

	_, ok, err = s.Get([]byte("absent"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_FlushMemtableThenGet(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	require.NoError(t, s.FlushMemtable())

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

func TestStore_TotalBytesFlushedAccumulates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, int64(0), s.TotalBytesFlushed())

	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	require.NoError(t, s.FlushMemtable())
	require.Greater(t, s.TotalBytesFlushed(), int64(0))

	before := s.TotalBytesFlushed()
	require.NoError(t, s.Set([]byte("k2"), []byte("v2")))
	require.NoError(t, s.FlushMemtable())
	require.Greater(t, s.TotalBytesFlushed(), before)
}

func TestStore_ClosedRejectsOperations(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Set([]byte("k"), []byte("v"))
	require.ErrorIs(t, err, errs.ErrClosed)

	_, _, err = s.Get([]byte("k"))
	require.ErrorIs(t, err, errs.ErrClosed)
}

func TestStore_RecoversFromWALAfterCrash(t *testing.T) {
	dir := t.TempDir()

	// Simulate a crash: write directly to the WAL the way Store.Set would,
	// without a clean Close (so no flush/truncate ever happens).
	walPath := filepath.Join(dir, walFilename)
	w, err := wal.Open(walPath)
	require.NoError(t, err)
	require.NoError(t, w.Append(1, 0, []byte("foo"), []byte("bar")))
	require.NoError(t, w.Append(2, 0, []byte("zoo"), []byte("kee")))
	require.NoError(t, w.Close())

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bar", string(v))

	v, ok, err = s.Get([]byte("zoo"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kee", string(v))

	// Recovery must have flushed the replayed records into an SSTable and
	// truncated the WAL.
	info, err := os.Stat(walPath)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestStore_ReopenAfterCleanCloseSeesData(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

func TestStore_WithCompressionRoundTrips(t *testing.T) {
	s, err := Open(t.TempDir(), WithCompression(format.CompressionS2), WithMemtableThreshold(64))
	require.NoError(t, err)
	defer s.Close()

	value := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, s.Set([]byte("k1"), value))
	require.NoError(t, s.Set([]byte("k2"), value)) // second set crosses the small threshold, forcing a flush

	v, ok, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value, v)
}

func TestStore_WithCompressionRejectsUnknownType(t *testing.T) {
	_, err := Open(t.TempDir(), WithCompression(format.CompressionType(0xFF)))
	require.Error(t, err)
}

func TestStore_ManySetsAcrossFlushes(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	n := 300
	for i := 0; i < n; i++ {
		k := []byte{byte(i / 256), byte(i % 256)}
		v := make([]byte, 30000) // large enough that several sets cross Threshold
		for j := range v {
			v[j] = byte(i)
		}
		require.NoError(t, s.Set(k, v))
	}

	for i := 0; i < n; i++ {
		k := []byte{byte(i / 256), byte(i % 256)}
		v, ok, err := s.Get(k)
		require.NoError(t, err)
		require.True(t, ok, "key %d", i)
		require.Equal(t, byte(i), v[0], "key %d", i)
	}
}
