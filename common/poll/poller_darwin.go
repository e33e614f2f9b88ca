//go:build darwin

package poll

import (
	"golang.org/x/sys/unix"
)

type rawEvent = unix.Kevent_t

func createPoll() (int, error) {
	kqueueFD, err := unix.Kqueue()
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(kqueueFD)
	return kqueueFD, nil
}

func createPipe() ([2]int, error) {
	var pipeFDs [2]int
	err := unix.Pipe(pipeFDs[:])
	if err != nil {
		return pipeFDs, err
	}
	for _, fd := range pipeFDs {
		unix.CloseOnExec(fd)
		err = unix.SetNonblock(fd, true)
		if err != nil {
			unix.Close(pipeFDs[0])
			unix.Close(pipeFDs[1])
			return pipeFDs, err
		}
	}
	return pipeFDs, nil
}

// control translates an interest change into kevent filter additions and deletions.
func (p *Poller) control(op int, fd int, previous Interest, interest Interest) error {
	if op == opDelete {
		interest = 0
	}
	var changes []unix.Kevent_t
	changes = appendFilterChange(changes, fd, unix.EVFILT_READ, previous&InterestRead != 0, interest&InterestRead != 0)
	changes = appendFilterChange(changes, fd, unix.EVFILT_WRITE, previous&InterestWrite != 0, interest&InterestWrite != 0)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.pollFD, changes, nil, nil)
	return err
}

func appendFilterChange(changes []unix.Kevent_t, fd int, filter int16, enabled bool, wanted bool) []unix.Kevent_t {
	var flags uint16
	switch {
	case wanted && !enabled:
		flags = unix.EV_ADD
	case !wanted && enabled:
		flags = unix.EV_DELETE
	default:
		return changes
	}
	return append(changes, unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	})
}

func (p *Poller) wait(events []rawEvent) (int, error) {
	return unix.Kevent(p.pollFD, nil, events, nil)
}

func decodeEvent(event *rawEvent) (int, Event) {
	var ready Event
	switch event.Filter {
	case unix.EVFILT_READ:
		ready |= EventRead
	case unix.EVFILT_WRITE:
		ready |= EventWrite
	}
	if event.Flags&unix.EV_EOF != 0 {
		ready |= EventHangup
	}
	if event.Flags&unix.EV_ERROR != 0 {
		ready |= EventError
	}
	return int(event.Ident), ready
}
