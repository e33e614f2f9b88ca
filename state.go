package evn

type ReadyState uint8

const (
	StateOpen ReadyState = iota
	StateReadOnly
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReadOnly:
		return "readOnly"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
