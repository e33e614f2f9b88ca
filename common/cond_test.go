package common

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func TestClose(t *testing.T) {
	t.Parallel()

	var order []int
	err := Close(
		closerFunc(func() error {
			order = append(order, 1)
			return nil
		}),
		nil,
		"not a closer",
		closerFunc(func() error {
			order = append(order, 2)
			return io.ErrClosedPipe
		}),
	)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.Equal(t, []int{1, 2}, order)
	require.NoError(t, Close())
}
