//go:build linux || darwin

package evn

import (
	"os"

	"github.com/sagernet/evn/common/control"
	E "github.com/sagernet/evn/common/exceptions"
	M "github.com/sagernet/evn/common/metadata"

	"golang.org/x/sys/unix"
)

type sysSocket int

func (s sysSocket) FD() int {
	return int(s)
}

func (s sysSocket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(int(s), p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (s sysSocket) Write(p []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(int(s), p, nil, nil, sendFlags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (s sysSocket) CloseWrite() error {
	return unix.Shutdown(int(s), unix.SHUT_WR)
}

func (s sysSocket) Close() error {
	return unix.Close(int(s))
}

func (s sysSocket) Err() error {
	errno, err := unix.GetsockoptInt(int(s), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func openSocket(addr M.Sockaddr, controls []control.Func) (int, error) {
	fd, err := unix.Socket(addr.Domain(), unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, newSetupError("socket", addr.String(), err)
	}
	err = control.Apply(fd, control.NonBlock(), control.NoSigpipe())
	if err == nil {
		err = control.Apply(fd, controls...)
	}
	if err != nil {
		unix.Close(fd)
		return -1, newSetupError("socket", addr.String(), err)
	}
	return fd, nil
}

func listenSocket(addr M.Sockaddr, backlog int, controls []control.Func) (int, error) {
	if addr.IsUnix() {
		err := os.Remove(addr.Path)
		if err != nil && !os.IsNotExist(err) {
			return -1, newSetupError("unlink", addr.String(), err)
		}
	}
	fd, err := openSocket(addr, controls)
	if err != nil {
		return -1, err
	}
	err = unix.Bind(fd, addr.Sockaddr())
	if err != nil {
		unix.Close(fd)
		return -1, newSetupError("bind", addr.String(), err)
	}
	err = unix.Listen(fd, backlog)
	if err != nil {
		unix.Close(fd)
		return -1, newSetupError("listen", addr.String(), err)
	}
	return fd, nil
}

func acceptSocket(listenFD int) (socket, error) {
	for {
		fd, _, err := unix.Accept(listenFD)
		if err != nil {
			if E.IsTemporary(err) {
				continue
			}
			return nil, err
		}
		err = control.Apply(fd, control.NonBlock(), control.NoSigpipe())
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
		return sysSocket(fd), nil
	}
}

// connectSocket starts a non-blocking connect; completion is observed as writability.
func connectSocket(addr M.Sockaddr, controls []control.Func) (socket, error) {
	fd, err := openSocket(addr, controls)
	if err != nil {
		return nil, err
	}
	err = unix.Connect(fd, addr.Sockaddr())
	switch err {
	case nil, unix.EINPROGRESS, unix.EAGAIN, unix.EINTR:
		return sysSocket(fd), nil
	default:
		unix.Close(fd)
		return nil, newSetupError("connect", addr.String(), err)
	}
}

func closeSocket(fd int) error {
	return unix.Close(fd)
}

func boundAddr(fd int) (M.Sockaddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return M.Sockaddr{}, E.Cause(err, "getsockname")
	}
	return M.SockaddrFromUnix(sa), nil
}
