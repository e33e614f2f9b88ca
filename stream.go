package evn

import (
	"github.com/sagernet/evn/common/buf"
	E "github.com/sagernet/evn/common/exceptions"
	M "github.com/sagernet/evn/common/metadata"
	"github.com/sagernet/evn/common/metrics"
	"github.com/sagernet/evn/common/poll"

	"github.com/sirupsen/logrus"
)

type (
	StreamHandler      func(stream *Stream)
	StreamDataHandler  func(stream *Stream, data []byte)
	StreamCloseHandler func(stream *Stream, hadError bool)
	StreamErrorHandler func(stream *Stream, err error)
)

// Stream is one connected socket driven by a Loop.
//
// Data handed to OnData is borrowed: the slice is only valid until the
// handler returns, except for the single oneshot delivery which the handler owns.
type Stream struct {
	loop   *Loop
	socket socket
	server *Server
	remote M.Sockaddr
	logger logrus.FieldLogger

	state      ReadyState
	interest   poll.Interest
	attached   bool
	registered bool
	reading    bool
	connecting bool
	connectErr error

	output        *buf.Buffer
	writeShutdown bool
	writeClosed   bool

	oneshot      bool
	aggregate    *buf.ChunkList
	maxAggregate int
	overflowed   bool

	onConnect StreamHandler
	onData    StreamDataHandler
	onEnd     StreamHandler
	onDrain   StreamHandler
	onClose   StreamCloseHandler
	onError   StreamErrorHandler
}

func newStream(loop *Loop, conn socket) *Stream {
	loop.metrics.StreamCreated()
	return &Stream{
		loop:   loop,
		socket: conn,
		logger: loop.logger.WithField("fd", conn.FD()),
		output: buf.NewSize(len(loop.scratch)),
	}
}

func (s *Stream) OnConnect(handler StreamHandler) {
	s.onConnect = handler
}

func (s *Stream) OnData(handler StreamDataHandler) {
	s.onData = handler
}

func (s *Stream) OnEnd(handler StreamHandler) {
	s.onEnd = handler
}

func (s *Stream) OnDrain(handler StreamHandler) {
	s.onDrain = handler
}

func (s *Stream) OnClose(handler StreamCloseHandler) {
	s.onClose = handler
}

func (s *Stream) OnError(handler StreamErrorHandler) {
	s.onError = handler
}

// SetOneshot selects collect-then-deliver-once input. It can only change before reading starts:
// inside the server's connection handler, or before an outbound stream connects.
func (s *Stream) SetOneshot(enabled bool) error {
	if s.state == StateClosed {
		return ErrStreamClosed
	}
	if s.reading {
		return ErrStreamStarted
	}
	s.oneshot = enabled
	return nil
}

// SetMaxAggregate caps the oneshot payload; 0 disables the cap.
// Lowering it below what is already collected counts as an overflow on the next read.
func (s *Stream) SetMaxAggregate(limit int) {
	if limit < 0 {
		limit = 0
	}
	s.maxAggregate = limit
}

func (s *Stream) Oneshot() bool {
	return s.oneshot
}

func (s *Stream) ReadyState() ReadyState {
	return s.state
}

func (s *Stream) FD() int {
	return s.socket.FD()
}

// Buffered returns the number of written bytes not yet handed to the socket.
func (s *Stream) Buffered() int {
	if s.output == nil {
		return 0
	}
	return s.output.Len()
}

// Server returns the server that accepted the stream, or nil for outbound streams.
func (s *Stream) Server() *Server {
	return s.server
}

func (s *Stream) Loop() *Loop {
	return s.loop
}

// RemoteAddr returns the address an outbound stream was connected to.
func (s *Stream) RemoteAddr() M.Sockaddr {
	return s.remote
}

// End closes the stream. It is the same operation as Destroy.
func (s *Stream) End() error {
	return s.Destroy()
}

// Destroy stops watching the socket, closes it and fires OnClose. Queued output is discarded.
// The returned error is the close failure, if any; OnClose receives it as hadError.
func (s *Stream) Destroy() error {
	if s.state == StateClosed {
		return ErrStreamClosed
	}
	if s.registered {
		err := s.loop.reactor.Unregister(s.socket.FD())
		if err != nil {
			s.logger.Debug("unregister: ", err)
		}
		s.registered = false
	}
	err := s.socket.Close()
	s.state = StateClosed
	s.interest = 0
	if err != nil {
		s.loop.metrics.Error(metrics.OpClose)
		s.logger.Warn("close: ", err)
	}
	s.loop.metrics.StreamClosed()
	if s.server != nil {
		s.server.untrack(s)
	}
	if s.onClose != nil {
		s.onClose(s, err != nil)
	}
	s.output.Release()
	s.output = nil
	if s.aggregate != nil {
		s.aggregate.Release()
		s.aggregate = nil
	}
	return E.Cause(err, "close")
}

// start begins reading: the oneshot choice is frozen and the socket is handed to the reactor.
func (s *Stream) start() error {
	s.beginReading()
	s.attached = true
	return s.updateInterest()
}

func (s *Stream) beginReading() {
	if s.oneshot && s.aggregate == nil {
		s.aggregate = buf.NewChunkList(buf.DefaultChunkSize, buf.DefaultChunkCount)
	}
	s.reading = true
}

func (s *Stream) desiredInterest() poll.Interest {
	if s.state == StateClosed || s.connectErr != nil {
		return 0
	}
	if s.connecting {
		return poll.InterestWrite
	}
	var interest poll.Interest
	if s.state == StateOpen && s.reading {
		interest |= poll.InterestRead
	}
	if !s.output.IsEmpty() {
		interest |= poll.InterestWrite
	}
	return interest
}

// updateInterest makes the reactor registration match the stream state:
// read while open, write while output is queued, nothing otherwise.
func (s *Stream) updateInterest() error {
	interest := s.desiredInterest()
	if !s.attached {
		s.interest = interest
		return nil
	}
	fd := s.socket.FD()
	var err error
	switch {
	case interest == 0:
		if s.registered {
			err = s.loop.reactor.Unregister(fd)
			s.registered = false
		}
	case !s.registered:
		err = s.loop.reactor.Register(fd, interest, poll.HandlerFunc(s.handleEvent))
		if err == nil {
			s.registered = true
		}
	case interest != s.interest:
		err = s.loop.reactor.Modify(fd, interest)
	}
	if err != nil {
		s.loop.metrics.Error(metrics.OpReactor)
		return err
	}
	s.interest = interest
	return nil
}

func (s *Stream) syncInterest() {
	err := s.updateInterest()
	if err != nil {
		s.emitError(err)
	}
}

func (s *Stream) handleEvent(events poll.Event) {
	if s.state == StateClosed {
		return
	}
	if s.connecting {
		s.finishConnect()
		return
	}
	if s.interest&poll.InterestRead != 0 && events&(poll.EventRead|poll.EventHangup|poll.EventError) != 0 {
		s.handleRead()
		if s.state == StateClosed {
			return
		}
	}
	if s.interest&poll.InterestWrite != 0 && events&(poll.EventWrite|poll.EventHangup|poll.EventError) != 0 {
		s.handleWritable()
	}
}

func (s *Stream) emitError(err error) {
	if s.state == StateClosed {
		return
	}
	s.logger.Debug(err)
	if s.onError != nil {
		s.onError(s, err)
	}
}
