package evn

import (
	E "github.com/sagernet/evn/common/exceptions"
	"github.com/sagernet/evn/common/metrics"
)

// Write sends p, or queues what the socket does not take right away.
// flushed reports whether every byte was handed to the socket during this call.
// p is copied when queued, so the caller may reuse it immediately.
func (s *Stream) Write(p []byte) (flushed bool, err error) {
	if s.state == StateClosed {
		return false, ErrStreamClosed
	}
	if s.writeShutdown {
		return false, ErrWriteShutdown
	}
	if s.connectErr != nil {
		return false, s.connectErr
	}
	if s.connecting || !s.output.IsEmpty() {
		if len(p) == 0 {
			return false, nil
		}
		s.output.Write(p)
		s.syncInterest()
		return false, nil
	}
	flushed = s.send(p)
	if !flushed {
		s.syncInterest()
	}
	return flushed, nil
}

// EndWrite shuts down the sending side once queued output has drained.
// Reading continues until the peer ends.
func (s *Stream) EndWrite() error {
	if s.state == StateClosed {
		return ErrStreamClosed
	}
	if s.writeShutdown {
		return nil
	}
	s.writeShutdown = true
	if s.connecting || s.connectErr != nil || !s.output.IsEmpty() {
		return nil
	}
	return s.shutdownWrite()
}

func (s *Stream) shutdownWrite() error {
	if s.writeClosed {
		return nil
	}
	s.writeClosed = true
	err := s.socket.CloseWrite()
	if err != nil {
		s.loop.metrics.Error(metrics.OpSend)
		return E.Cause(err, "shutdown")
	}
	return nil
}

// send flushes queued output first, then data. Whatever the socket refuses is
// appended to the output buffer, so order is kept. It returns true only when
// nothing is left queued.
func (s *Stream) send(data []byte) bool {
	if !s.output.IsEmpty() {
		n, err := s.socket.Write(s.output.Bytes())
		if n > 0 {
			s.output.Advance(n)
			s.loop.metrics.BytesSent(n)
		}
		if err != nil && !s.sendError(err) {
			return false
		}
		if !s.output.IsEmpty() {
			if len(data) > 0 {
				s.output.Write(data)
			}
			return false
		}
	}
	if len(data) == 0 {
		return true
	}
	n, err := s.socket.Write(data)
	if n > 0 {
		s.loop.metrics.BytesSent(n)
	}
	if err != nil && !s.sendError(err) {
		return false
	}
	if n < len(data) {
		s.output.Write(data[n:])
		return false
	}
	return true
}

// sendError reports a failed send and returns false if the error handler closed the stream.
func (s *Stream) sendError(err error) bool {
	if E.IsWouldBlock(err) {
		return true
	}
	s.loop.metrics.Error(metrics.OpSend)
	s.emitError(E.Cause(err, "send"))
	return s.state != StateClosed
}

func (s *Stream) handleWritable() {
	if s.output.IsEmpty() {
		s.syncInterest()
		return
	}
	if !s.send(nil) {
		return
	}
	if s.state == StateClosed {
		return
	}
	s.syncInterest()
	if s.writeShutdown {
		err := s.shutdownWrite()
		if err != nil {
			s.emitError(err)
		}
	}
	if s.state == StateClosed {
		return
	}
	s.logger.Debug("drained")
	s.loop.metrics.Drained()
	if s.onDrain != nil {
		s.onDrain(s)
	}
}

func (s *Stream) handleRead() {
	n, err := s.socket.Read(s.loop.scratch)
	if err != nil {
		if E.IsWouldBlock(err) {
			return
		}
		s.loop.metrics.Error(metrics.OpRecv)
		s.emitError(E.Cause(err, "recv"))
		return
	}
	if n == 0 {
		s.handleEnd()
		return
	}
	s.loop.metrics.BytesReceived(n)
	data := s.loop.scratch[:n]
	if s.oneshot {
		s.collect(data)
		return
	}
	if s.onData != nil {
		s.onData(s, data)
	}
}

func (s *Stream) collect(data []byte) {
	if s.overflowed {
		return
	}
	if s.maxAggregate > 0 {
		room := s.maxAggregate - s.aggregate.Len()
		if room < 0 {
			room = 0
		}
		if len(data) > room {
			s.aggregate.Write(data[:room])
			s.overflowed = true
			s.loop.metrics.Error(metrics.OpAggregate)
			s.emitError(ErrAggregateOverflow)
			return
		}
	}
	s.aggregate.Write(data)
}

func (s *Stream) handleEnd() {
	s.logger.Debug("peer closed, ", s.Buffered(), " bytes pending")
	s.state = StateReadOnly
	s.syncInterest()
	if s.state == StateClosed {
		return
	}
	if s.oneshot && s.aggregate != nil && s.aggregate.Len() > 0 {
		payload := s.aggregate.Concat()
		if s.onData != nil {
			s.onData(s, payload)
		}
		if s.state == StateClosed {
			return
		}
	}
	if s.onEnd != nil {
		s.onEnd(s)
	}
}
