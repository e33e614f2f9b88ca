//go:build !linux && !darwin

package evn

import (
	"github.com/sagernet/evn/common/control"
	E "github.com/sagernet/evn/common/exceptions"
	M "github.com/sagernet/evn/common/metadata"
)

var errNotSupported = E.New("evn: sockets not supported on this platform")

func listenSocket(addr M.Sockaddr, backlog int, controls []control.Func) (int, error) {
	return -1, newSetupError("listen", addr.String(), errNotSupported)
}

func acceptSocket(listenFD int) (socket, error) {
	return nil, errNotSupported
}

func connectSocket(addr M.Sockaddr, controls []control.Func) (socket, error) {
	return nil, newSetupError("connect", addr.String(), errNotSupported)
}

func closeSocket(fd int) error {
	return errNotSupported
}

func boundAddr(fd int) (M.Sockaddr, error) {
	return M.Sockaddr{}, errNotSupported
}
