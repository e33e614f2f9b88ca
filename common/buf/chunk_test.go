package buf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkListSplitsAcrossChunks(t *testing.T) {
	t.Parallel()

	list := NewChunkList(8, 2)
	list.Write([]byte("abcde"))
	list.Write([]byte("fghij"))
	list.Write([]byte("klmnopqrstu"))
	require.Equal(t, 21, list.Len())
	require.Equal(t, 3, list.Chunks())

	require.Equal(t, "abcdefghijklmnopqrstu", string(list.Concat()))
	require.Equal(t, 0, list.Len())
	require.Equal(t, 0, list.Chunks())
}

func TestChunkListConcatOwnsResult(t *testing.T) {
	t.Parallel()

	list := NewChunkList(DefaultChunkSize, DefaultChunkCount)
	first := bytes.Repeat([]byte{1}, DefaultChunkSize+1)
	list.Write(first)
	result := list.Concat()

	list.Write(bytes.Repeat([]byte{2}, 2*DefaultChunkSize))
	require.Equal(t, first, result)
	require.Equal(t, 2*DefaultChunkSize, len(list.Concat()))
}

func TestChunkListEmpty(t *testing.T) {
	t.Parallel()

	list := NewChunkList(0, 0)
	require.Nil(t, list.Concat())
	list.Release()
	require.Equal(t, 0, list.Len())
}
