package evn

import (
	"context"

	"github.com/sagernet/evn/common/log"
	"github.com/sagernet/evn/common/metrics"
	"github.com/sagernet/evn/common/poll"

	"github.com/sirupsen/logrus"
)

const DefaultReceiveSize = 4096

// Reactor is the readiness multiplexer a Loop drives streams and servers with.
// *poll.Poller implements it.
type Reactor interface {
	Register(fd int, interest poll.Interest, handler poll.Handler) error
	Modify(fd int, interest poll.Interest) error
	Unregister(fd int) error
}

type LoopOptions struct {
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
	ReceiveSize int
}

// Loop owns one reactor and the scratch buffer every stream on it receives into.
// All Stream and Server methods must be called on the loop goroutine, from a
// callback or from a task passed to Post, except before Run starts.
type Loop struct {
	poller  *poll.Poller
	reactor Reactor
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
	scratch []byte
}

func NewLoop(options LoopOptions) (*Loop, error) {
	poller, err := poll.New()
	if err != nil {
		return nil, err
	}
	loop := newLoop(poller, options)
	loop.poller = poller
	return loop, nil
}

func newLoop(reactor Reactor, options LoopOptions) *Loop {
	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("evn")
	}
	receiveSize := options.ReceiveSize
	if receiveSize <= 0 {
		receiveSize = DefaultReceiveSize
	}
	return &Loop{
		reactor: reactor,
		logger:  logger,
		metrics: options.Metrics,
		scratch: make([]byte, receiveSize),
	}
}

// Run dispatches events until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	if l.poller == nil {
		return poll.ErrClosed
	}
	return l.poller.Run(ctx)
}

// Post schedules task on the loop goroutine. It is safe to call from any goroutine.
func (l *Loop) Post(task func()) error {
	if l.poller == nil {
		return poll.ErrClosed
	}
	return l.poller.Post(task)
}

// Close stops Run. Streams and servers still open keep their descriptors.
func (l *Loop) Close() error {
	if l.poller == nil {
		return nil
	}
	return l.poller.Close()
}

func (l *Loop) Logger() logrus.FieldLogger {
	return l.logger
}

func (l *Loop) Metrics() *metrics.Metrics {
	return l.metrics
}
