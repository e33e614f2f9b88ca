package evn

import (
	"github.com/sagernet/evn/common/control"
	M "github.com/sagernet/evn/common/metadata"
	"github.com/sagernet/evn/common/metrics"
)

// Connect opens an outbound stream to address on port, or to the Unix socket
// at path address when port is 0.
// OnConnect fires from the loop once the connection is established. Writes
// issued before that are queued.
func Connect(loop *Loop, port int, address string, controls ...control.Func) (*Stream, error) {
	addr, err := M.ParseSockaddr(port, address)
	if err != nil {
		return nil, newSetupError("resolve", address, err)
	}
	if !addr.IsUnix() {
		controls = append([]control.Func{control.NoDelay()}, controls...)
	}
	conn, err := connectSocket(addr, controls)
	if err != nil {
		loop.metrics.Error(metrics.OpConnect)
		return nil, err
	}
	stream := newStream(loop, conn)
	stream.remote = addr
	stream.connecting = true
	stream.attached = true
	err = stream.updateInterest()
	if err != nil {
		conn.Close()
		loop.metrics.StreamClosed()
		return nil, newSetupError("register", addr.String(), err)
	}
	return stream, nil
}

func (s *Stream) finishConnect() {
	s.connecting = false
	err := s.socket.Err()
	if err != nil {
		s.connectErr = newSetupError("connect", s.remote.String(), err)
		s.loop.metrics.Error(metrics.OpConnect)
		s.syncInterest()
		s.emitError(s.connectErr)
		return
	}
	s.loop.metrics.ConnectionOpened()
	s.beginReading()
	s.syncInterest()
	if s.state == StateClosed {
		return
	}
	if s.onConnect != nil {
		s.onConnect(s)
	}
	if s.state == StateClosed {
		return
	}
	if s.writeShutdown && s.output.IsEmpty() {
		err = s.shutdownWrite()
		if err != nil {
			s.emitError(err)
		}
	}
}
