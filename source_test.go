package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySourceRangeSemantics(t *testing.T) {
	src := NewMemorySource([]byte("0123456789"))

	n, ok := src.Length()
	require.True(t, ok)
	require.Equal(t, int64(10), n)

	require.True(t, src.IsRangeAvailable(2, 3))
	require.False(t, src.IsRangeAvailable(8, 5))

	b, err := src.GetByte(5)
	require.NoError(t, err)
	require.Equal(t, byte('5'), b)

	_, err = src.GetByte(100)
	require.Error(t, err)
	var dm *DataMissing
	require.ErrorAs(t, err, &dm)

	slice, err := src.Slice(1, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("1234"), slice)
}

func TestChunkStorePutAndRead(t *testing.T) {
	cs := newChunkStore(4, 8, nil)
	cs.setLength(12)

	require.False(t, cs.isRangeAvailable(0, 4))
	cs.put(0, []byte("abcd"))
	require.True(t, cs.isRangeAvailable(0, 4))
	require.False(t, cs.isRangeAvailable(0, 8))

	cs.put(1, []byte("efgh"))
	got, err := cs.read(2, 4) // spans chunk 0's tail and chunk 1's head
	require.NoError(t, err)
	require.Equal(t, []byte("cdef"), got)
}

func TestChunkStoreReadMissingChunk(t *testing.T) {
	cs := newChunkStore(4, 8, nil)
	_, err := cs.read(0, 4)
	require.Error(t, err)
	var dm *DataMissing
	require.ErrorAs(t, err, &dm)
}

func TestChunkStoreEvictsLeastRecentlyUsed(t *testing.T) {
	cs := newChunkStore(4, 2, nil) // only 2 chunks fit
	cs.put(0, []byte("aaaa"))
	cs.put(1, []byte("bbbb"))
	require.True(t, cs.hasChunk(0))
	require.True(t, cs.hasChunk(1))

	// Touch chunk 0 so it's most-recently-used, then add a third chunk;
	// chunk 1 (now least-recently-used) should be evicted, not chunk 0.
	_, err := cs.read(0, 4)
	require.NoError(t, err)
	cs.put(2, []byte("cccc"))

	require.True(t, cs.hasChunk(0))
	require.False(t, cs.hasChunk(1))
	require.True(t, cs.hasChunk(2))
}

func TestChunkStoreGetByte(t *testing.T) {
	cs := newChunkStore(4, 8, nil)
	cs.put(0, []byte("abcd"))
	b, err := cs.getByte(2)
	require.NoError(t, err)
	require.Equal(t, byte('c'), b)
}
