//go:build linux || darwin

package poll

import (
	"context"
	"sync"
	"sync/atomic"

	E "github.com/sagernet/evn/common/exceptions"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

const (
	opAdd = iota
	opModify
	opDelete
)

const maxEvents = 128

type Poller struct {
	pollFD      int
	pipeFDs     [2]int
	mutex       sync.Mutex
	entries     map[int]*entry
	generation  uint64
	taskAccess  sync.Mutex
	tasks       *queue.Queue
	running     atomic.Bool
	closed      atomic.Bool
	releaseOnce sync.Once
}

func New() (*Poller, error) {
	pollFD, err := createPoll()
	if err != nil {
		return nil, E.Cause(err, "create poller")
	}
	pipeFDs, err := createPipe()
	if err != nil {
		unix.Close(pollFD)
		return nil, E.Cause(err, "create wakeup pipe")
	}
	poller := &Poller{
		pollFD:  pollFD,
		pipeFDs: pipeFDs,
		entries: make(map[int]*entry),
		tasks:   queue.New(),
	}
	err = poller.control(opAdd, pipeFDs[0], 0, InterestRead)
	if err != nil {
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(pollFD)
		return nil, E.Cause(err, "watch wakeup pipe")
	}
	return poller, nil
}

func (p *Poller) Register(fd int, interest Interest, handler Handler) error {
	if handler == nil {
		return E.New("register fd ", fd, ": nil handler")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	if _, loaded := p.entries[fd]; loaded {
		return E.Cause(unix.EEXIST, "register fd ", fd)
	}
	err := p.control(opAdd, fd, 0, interest)
	if err != nil {
		return E.Cause(err, "register fd ", fd)
	}
	p.generation++
	p.entries[fd] = &entry{
		fd:         fd,
		generation: p.generation,
		interest:   interest,
		handler:    handler,
	}
	return nil
}

func (p *Poller) Modify(fd int, interest Interest) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	entry, loaded := p.entries[fd]
	if !loaded {
		return E.Cause(unix.ENOENT, "modify fd ", fd)
	}
	if entry.interest == interest {
		return nil
	}
	err := p.control(opModify, fd, entry.interest, interest)
	if err != nil {
		return E.Cause(err, "modify fd ", fd)
	}
	entry.interest = interest
	return nil
}

func (p *Poller) Unregister(fd int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	entry, loaded := p.entries[fd]
	if !loaded {
		return E.Cause(unix.ENOENT, "unregister fd ", fd)
	}
	delete(p.entries, fd)
	if p.closed.Load() {
		return nil
	}
	err := p.control(opDelete, fd, entry.interest, 0)
	if err != nil {
		return E.Cause(err, "unregister fd ", fd)
	}
	return nil
}

func (p *Poller) Interest(fd int) (Interest, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	entry, loaded := p.entries[fd]
	if !loaded {
		return 0, false
	}
	return entry.interest, true
}

// Post queues task to run on the poller goroutine before the next wait.
func (p *Poller) Post(task func()) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.taskAccess.Lock()
	p.tasks.Add(task)
	p.taskAccess.Unlock()
	p.wakeup()
	return nil
}

// Run dispatches readiness until ctx is done or Close is called.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return E.New("poller already running")
	}
	defer p.running.Store(false)
	if p.closed.Load() {
		p.release()
		return ErrClosed
	}
	stop := context.AfterFunc(ctx, p.wakeup)
	defer stop()

	events := make([]rawEvent, maxEvents)
	for {
		p.runTasks()
		if p.closed.Load() {
			stop()
			p.release()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.wait(events)
		if err != nil {
			if E.IsInterrupted(err) {
				continue
			}
			return E.Cause(err, "wait")
		}
		// entries registered from here on may reuse a number in this batch
		// and must not receive its readiness
		p.mutex.Lock()
		horizon := p.generation
		p.mutex.Unlock()
		for i := 0; i < n; i++ {
			fd, ready := decodeEvent(&events[i])
			if fd == p.pipeFDs[0] {
				p.drainWakeup()
				continue
			}
			p.mutex.Lock()
			entry := p.entries[fd]
			p.mutex.Unlock()
			if entry == nil || entry.generation > horizon {
				continue
			}
			ready = entry.mask(ready)
			if ready == 0 {
				continue
			}
			entry.handler.HandleEvent(ready)
		}
	}
}

func (p *Poller) runTasks() {
	p.taskAccess.Lock()
	pending := p.tasks.Length()
	p.taskAccess.Unlock()
	for ; pending > 0; pending-- {
		p.taskAccess.Lock()
		task := p.tasks.Remove().(func())
		p.taskAccess.Unlock()
		task()
	}
}

func (p *Poller) wakeup() {
	_, _ = unix.Write(p.pipeFDs[1], []byte{0})
}

func (p *Poller) drainWakeup() {
	var buffer [64]byte
	for {
		n, err := unix.Read(p.pipeFDs[0], buffer[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close stops a running Run at its next iteration. Registered descriptors are not closed.
func (p *Poller) Close() error {
	p.mutex.Lock()
	if !p.closed.CompareAndSwap(false, true) {
		p.mutex.Unlock()
		return nil
	}
	p.mutex.Unlock()
	if p.running.Load() {
		p.wakeup()
		return nil
	}
	p.release()
	return nil
}

func (p *Poller) release() {
	p.releaseOnce.Do(func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		unix.Close(p.pollFD)
		unix.Close(p.pipeFDs[0])
		unix.Close(p.pipeFDs[1])
		p.entries = make(map[int]*entry)
	})
}
