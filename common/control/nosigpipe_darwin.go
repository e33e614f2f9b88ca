package control

import (
	E "github.com/sagernet/evn/common/exceptions"

	"golang.org/x/sys/unix"
)

// NoSigpipe keeps a write to a reset peer from raising SIGPIPE.
func NoSigpipe() Func {
	return func(fd int) error {
		return E.Cause(unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1), "set SO_NOSIGPIPE")
	}
}
