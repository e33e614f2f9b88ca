package metadata

import (
	"net"
	"net/netip"
	"strconv"

	E "github.com/sagernet/evn/common/exceptions"
)

// Sockaddr is a stream socket endpoint: an IP address and port, or a Unix-domain path.
type Sockaddr struct {
	Addr netip.Addr
	Port uint16
	Path string
}

// ParseSockaddr applies the listen/connect convention: port 0 selects a Unix-domain
// socket at address, any other port selects TCP on the literal IP in address.
// An empty address with a non-zero port means the unspecified IPv4 address.
func ParseSockaddr(port int, address string) (Sockaddr, error) {
	if port < 0 || port > 65535 {
		return Sockaddr{}, E.New("invalid port ", port)
	}
	if port == 0 {
		if address == "" {
			return Sockaddr{}, E.New("missing unix socket path")
		}
		return Sockaddr{Path: address}, nil
	}
	if address == "" {
		return Sockaddr{Addr: netip.IPv4Unspecified(), Port: uint16(port)}, nil
	}
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return Sockaddr{}, E.Cause(err, "parse address")
	}
	if addr.Zone() != "" {
		return Sockaddr{}, E.New("zoned address not supported: ", address)
	}
	return Sockaddr{Addr: addr.Unmap(), Port: uint16(port)}, nil
}

func (ap Sockaddr) Family() Family {
	if ap.Path != "" {
		return AddressFamilyUnix
	}
	if ap.Addr.Is4() {
		return AddressFamilyIPv4
	}
	return AddressFamilyIPv6
}

func (ap Sockaddr) IsUnix() bool {
	return ap.Path != ""
}

func (ap Sockaddr) IsValid() bool {
	return ap.Path != "" || ap.Addr.IsValid()
}

func (ap Sockaddr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr, ap.Port)
}

func (ap Sockaddr) String() string {
	if ap.IsUnix() {
		return ap.Path
	}
	if !ap.Addr.IsValid() {
		return "invalid"
	}
	return net.JoinHostPort(ap.Addr.String(), strconv.Itoa(int(ap.Port)))
}
