//go:build linux

package poll

import (
	"golang.org/x/sys/unix"
)

type rawEvent = unix.EpollEvent

func createPoll() (int, error) {
	return unix.EpollCreate1(unix.EPOLL_CLOEXEC)
}

func createPipe() ([2]int, error) {
	var pipeFDs [2]int
	err := unix.Pipe2(pipeFDs[:], unix.O_NONBLOCK|unix.O_CLOEXEC)
	return pipeFDs, err
}

func (p *Poller) control(op int, fd int, _ Interest, interest Interest) error {
	switch op {
	case opAdd:
		return unix.EpollCtl(p.pollFD, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)})
	case opModify:
		return unix.EpollCtl(p.pollFD, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)})
	default:
		return unix.EpollCtl(p.pollFD, unix.EPOLL_CTL_DEL, fd, nil)
	}
}

func (p *Poller) wait(events []rawEvent) (int, error) {
	return unix.EpollWait(p.pollFD, events, -1)
}

func epollEvents(interest Interest) uint32 {
	var events uint32
	if interest&InterestRead != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func decodeEvent(event *rawEvent) (int, Event) {
	var ready Event
	if event.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLPRI) != 0 {
		ready |= EventRead
	}
	if event.Events&unix.EPOLLOUT != 0 {
		ready |= EventWrite
	}
	if event.Events&unix.EPOLLERR != 0 {
		ready |= EventError
	}
	if event.Events&unix.EPOLLHUP != 0 {
		ready |= EventHangup
	}
	return int(event.Fd), ready
}
