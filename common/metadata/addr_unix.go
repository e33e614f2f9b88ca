//go:build linux || darwin

package metadata

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

func (ap Sockaddr) Domain() int {
	switch ap.Family() {
	case AddressFamilyUnix:
		return unix.AF_UNIX
	case AddressFamilyIPv4:
		return unix.AF_INET
	default:
		return unix.AF_INET6
	}
}

func (ap Sockaddr) Sockaddr() unix.Sockaddr {
	switch ap.Family() {
	case AddressFamilyUnix:
		return &unix.SockaddrUnix{Name: ap.Path}
	case AddressFamilyIPv4:
		return &unix.SockaddrInet4{Port: int(ap.Port), Addr: ap.Addr.As4()}
	default:
		return &unix.SockaddrInet6{Port: int(ap.Port), Addr: ap.Addr.As16()}
	}
}

// SockaddrFromUnix converts a kernel-reported address back into a Sockaddr.
func SockaddrFromUnix(sa unix.Sockaddr) Sockaddr {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return Sockaddr{Addr: netip.AddrFrom4(addr.Addr), Port: uint16(addr.Port)}
	case *unix.SockaddrInet6:
		return Sockaddr{Addr: netip.AddrFrom16(addr.Addr).Unmap(), Port: uint16(addr.Port)}
	case *unix.SockaddrUnix:
		return Sockaddr{Path: addr.Name}
	default:
		return Sockaddr{}
	}
}
