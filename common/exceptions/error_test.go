package exceptions

import (
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCause(t *testing.T) {
	t.Parallel()

	require.NoError(t, Cause(nil, "read"))
	err := Cause(syscall.ECONNRESET, "recv")
	require.ErrorIs(t, err, syscall.ECONNRESET)
	require.Equal(t, "recv: "+syscall.ECONNRESET.Error(), err.Error())
}

func TestErrors(t *testing.T) {
	t.Parallel()

	require.NoError(t, Errors(nil, nil))
	require.Same(t, io.EOF, Errors(nil, io.EOF))

	err := Errors(io.EOF, nil, syscall.EPIPE)
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, err, syscall.EPIPE)
	require.Len(t, err.(MultiError).Unwrap(), 2)
}

func TestErrno(t *testing.T) {
	t.Parallel()

	require.True(t, IsWouldBlock(Cause(syscall.EAGAIN, "send")))
	require.False(t, IsWouldBlock(syscall.EPIPE))
	require.True(t, IsInterrupted(syscall.EINTR))
}

func TestIsTemporary(t *testing.T) {
	t.Parallel()

	require.True(t, IsTemporary(syscall.EINTR))
	require.True(t, IsTemporary(Cause(syscall.ECONNABORTED, "accept")))
	require.False(t, IsTemporary(syscall.EAGAIN))
	require.False(t, IsTemporary(syscall.EMFILE))
	require.False(t, IsTemporary(nil))
}
