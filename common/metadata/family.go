package metadata

type Family byte

const (
	AddressFamilyIPv4 Family = iota
	AddressFamilyIPv6
	AddressFamilyUnix
)

func (af Family) IsIPv4() bool {
	return af == AddressFamilyIPv4
}

func (af Family) IsIPv6() bool {
	return af == AddressFamilyIPv6
}

func (af Family) IsIP() bool {
	return af != AddressFamilyUnix
}

func (af Family) IsUnix() bool {
	return af == AddressFamilyUnix
}

func (af Family) String() string {
	switch af {
	case AddressFamilyIPv4:
		return "ipv4"
	case AddressFamilyIPv6:
		return "ipv6"
	case AddressFamilyUnix:
		return "unix"
	default:
		return "unknown"
	}
}
