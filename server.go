package evn

import (
	"github.com/sagernet/evn/common/control"
	E "github.com/sagernet/evn/common/exceptions"
	M "github.com/sagernet/evn/common/metadata"
	"github.com/sagernet/evn/common/metrics"
	"github.com/sagernet/evn/common/poll"

	"github.com/sirupsen/logrus"
)

type (
	ConnectionHandler  func(server *Server, stream *Stream)
	ServerHandler      func(server *Server)
	ServerErrorHandler func(server *Server, err error)
)

// Server accepts connections on one listening socket and wraps each in a Stream.
type Server struct {
	loop   *Loop
	logger logrus.FieldLogger

	fd        int
	addr      M.Sockaddr
	listening bool
	closed    bool

	backlog      int
	reuseAddr    bool
	controls     []control.Func
	oneshot      bool
	maxAggregate int
	streams      map[*Stream]struct{}

	onConnection ConnectionHandler
	onClose      ServerHandler
	onError      ServerErrorHandler
}

func NewServer(loop *Loop, onConnection ConnectionHandler, options ...ServerOption) *Server {
	server := &Server{
		loop:         loop,
		logger:       loop.logger,
		fd:           -1,
		backlog:      DefaultBacklog,
		onConnection: onConnection,
	}
	for _, option := range options {
		option(server)
	}
	return server
}

func (s *Server) OnClose(handler ServerHandler) {
	s.onClose = handler
}

// OnError receives accept failures. Without a handler they are logged.
func (s *Server) OnError(handler ServerErrorHandler) {
	s.onError = handler
}

// Listen binds to address on port, or to the Unix socket at path address when
// port is 0, removing any stale file there first.
func (s *Server) Listen(port int, address string) error {
	if s.closed {
		return ErrServerClosed
	}
	if s.listening {
		return ErrServerListening
	}
	addr, err := M.ParseSockaddr(port, address)
	if err != nil {
		return newSetupError("resolve", address, err)
	}
	controls := s.controls
	if s.reuseAddr && !addr.IsUnix() {
		controls = append([]control.Func{control.ReuseAddr()}, controls...)
	}
	fd, err := listenSocket(addr, s.backlog, controls)
	if err != nil {
		return err
	}
	if !addr.IsUnix() {
		bound, bErr := boundAddr(fd)
		if bErr == nil {
			addr = bound
		}
	}
	err = s.loop.reactor.Register(fd, poll.InterestRead, poll.HandlerFunc(s.handleEvent))
	if err != nil {
		closeSocket(fd)
		return newSetupError("register", addr.String(), err)
	}
	s.fd = fd
	s.addr = addr
	s.listening = true
	s.logger = s.loop.logger.WithField("listen", addr.String())
	s.logger.Info("server started")
	return nil
}

// Addr returns the listening address as reported by the socket.
func (s *Server) Addr() M.Sockaddr {
	return s.addr
}

func (s *Server) FD() int {
	return s.fd
}

// Close stops accepting and releases the listening socket. Accepted streams
// stay open unless WithStreamTracking was set.
func (s *Server) Close() error {
	if s.closed {
		return ErrServerClosed
	}
	s.closed = true
	var err error
	if s.listening {
		err = E.Errors(
			E.Cause(s.loop.reactor.Unregister(s.fd), "unregister"),
			E.Cause(closeSocket(s.fd), "close listener"),
		)
		s.listening = false
		s.fd = -1
	}
	if s.streams != nil {
		streams := s.streams
		s.streams = nil
		for stream := range streams {
			stream.server = nil
			stream.Destroy()
		}
	}
	s.logger.Info("server closed")
	if s.onClose != nil {
		s.onClose(s)
	}
	return err
}

func (s *Server) handleEvent(events poll.Event) {
	for !s.closed {
		conn, err := acceptSocket(s.fd)
		if err != nil {
			if E.IsWouldBlock(err) {
				return
			}
			s.loop.metrics.Error(metrics.OpAccept)
			err = newSetupError("accept", s.addr.String(), err)
			if s.onError != nil {
				s.onError(s, err)
			} else {
				s.logger.Error(err)
			}
			return
		}
		s.accept(conn)
	}
}

func (s *Server) accept(conn socket) {
	stream := newStream(s.loop, conn)
	stream.server = s
	stream.oneshot = s.oneshot
	stream.maxAggregate = s.maxAggregate
	if s.streams != nil {
		s.streams[stream] = struct{}{}
	}
	s.loop.metrics.ConnectionAccepted()
	if s.onConnection != nil {
		s.onConnection(s, stream)
	}
	if stream.state == StateClosed {
		return
	}
	err := stream.start()
	if err != nil {
		stream.logger.Error("register accepted stream: ", err)
		stream.Destroy()
	}
}

func (s *Server) untrack(stream *Stream) {
	if s.streams != nil {
		delete(s.streams, stream)
	}
}
