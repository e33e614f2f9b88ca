// Package poll is a level-triggered readiness reactor over epoll (Linux) and kqueue (Darwin).
//
// A Poller runs on exactly one goroutine. Register, Modify and Unregister may be
// called from handlers or before Run starts; Post is the only call that is safe
// from any goroutine while the poller is running.
package poll

import (
	"strings"

	E "github.com/sagernet/evn/common/exceptions"
)

var ErrClosed = E.New("poller closed")

type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

func (i Interest) String() string {
	if i == 0 {
		return "none"
	}
	var names []string
	if i&InterestRead != 0 {
		names = append(names, "read")
	}
	if i&InterestWrite != 0 {
		names = append(names, "write")
	}
	return strings.Join(names, "|")
}

type Event uint8

const (
	EventRead Event = 1 << iota
	EventWrite
	EventError
	EventHangup
)

func (e Event) String() string {
	if e == 0 {
		return "none"
	}
	var names []string
	if e&EventRead != 0 {
		names = append(names, "read")
	}
	if e&EventWrite != 0 {
		names = append(names, "write")
	}
	if e&EventError != 0 {
		names = append(names, "error")
	}
	if e&EventHangup != 0 {
		names = append(names, "hangup")
	}
	return strings.Join(names, "|")
}

// Handler is invoked on the poller goroutine and must not block.
type Handler interface {
	HandleEvent(events Event)
}

type HandlerFunc func(events Event)

func (f HandlerFunc) HandleEvent(events Event) {
	f(events)
}

type entry struct {
	fd         int
	generation uint64
	interest   Interest
	handler    Handler
}

// mask drops readiness the entry is no longer interested in; error conditions always pass.
func (e *entry) mask(events Event) Event {
	allowed := EventError | EventHangup
	if e.interest&InterestRead != 0 {
		allowed |= EventRead
	}
	if e.interest&InterestWrite != 0 {
		allowed |= EventWrite
	}
	return events & allowed
}
