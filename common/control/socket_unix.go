//go:build linux || darwin

package control

import (
	E "github.com/sagernet/evn/common/exceptions"

	"golang.org/x/sys/unix"
)

func ReuseAddr() Func {
	return func(fd int) error {
		return E.Cause(unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1), "set SO_REUSEADDR")
	}
}

// NonBlock marks the descriptor non-blocking and close-on-exec.
func NonBlock() Func {
	return func(fd int) error {
		unix.CloseOnExec(fd)
		return E.Cause(unix.SetNonblock(fd, true), "set O_NONBLOCK")
	}
}

func NoDelay() Func {
	return func(fd int) error {
		return E.Cause(unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1), "set TCP_NODELAY")
	}
}
