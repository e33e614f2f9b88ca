//go:build linux || darwin

package evn

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sagernet/evn/common/poll"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func socketPath(t *testing.T) string {
	t.Helper()
	path, err := nettest.LocalPath()
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Remove(path)
	})
	return path
}

func dialUnix(t *testing.T, path string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func TestServerAcceptsAllPending(t *testing.T) {
	t.Parallel()

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	var accepted []*Stream
	server := NewServer(loop, func(server *Server, stream *Stream) {
		accepted = append(accepted, stream)
	})
	path := socketPath(t)
	require.NoError(t, server.Listen(0, path))
	t.Cleanup(func() {
		server.Close()
	})
	require.Equal(t, poll.InterestRead, reactor.interest[server.FD()])

	for i := 0; i < 3; i++ {
		dialUnix(t, path)
	}
	reactor.fire(server.FD(), poll.EventRead)

	require.Len(t, accepted, 3)
	for _, stream := range accepted {
		require.Same(t, server, stream.Server())
		require.Equal(t, poll.InterestRead, reactor.interest[stream.FD()])
		require.NoError(t, stream.Destroy())
	}
}

func TestServerListenStates(t *testing.T) {
	t.Parallel()

	loop := newLoop(newFakeReactor(), LoopOptions{Logger: quietLogger()})
	server := NewServer(loop, nil)
	path := socketPath(t)

	stale, err := os.Create(path)
	require.NoError(t, err)
	stale.Close()

	require.NoError(t, server.Listen(0, path))
	require.Equal(t, path, server.Addr().Path)
	require.ErrorIs(t, server.Listen(0, path), ErrServerListening)

	var closes int
	server.OnClose(func(server *Server) {
		closes++
	})
	require.NoError(t, server.Close())
	require.ErrorIs(t, server.Close(), ErrServerClosed)
	require.ErrorIs(t, server.Listen(0, path), ErrServerClosed)
	require.Equal(t, 1, closes)
}

func TestServerListenSetupErrors(t *testing.T) {
	t.Parallel()

	loop := newLoop(newFakeReactor(), LoopOptions{Logger: quietLogger()})
	var setupErr *SetupError

	err := NewServer(loop, nil).Listen(0, "")
	require.ErrorAs(t, err, &setupErr)
	require.Equal(t, "resolve", setupErr.Op)

	err = NewServer(loop, nil).Listen(0, "/nonexistent/evn/test.sock")
	require.ErrorAs(t, err, &setupErr)
	require.Equal(t, "bind", setupErr.Op)
}

func TestServerOneshotOption(t *testing.T) {
	t.Parallel()

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	var streams []*Stream
	server := NewServer(loop, func(server *Server, stream *Stream) {
		require.True(t, stream.Oneshot())
		if len(streams) == 1 {
			require.NoError(t, stream.SetOneshot(false))
		}
		streams = append(streams, stream)
	}, WithOneshot(64))
	path := socketPath(t)
	require.NoError(t, server.Listen(0, path))
	t.Cleanup(func() {
		server.Close()
	})

	dialUnix(t, path)
	dialUnix(t, path)
	reactor.fire(server.FD(), poll.EventRead)

	require.Len(t, streams, 2)
	require.NotNil(t, streams[0].aggregate)
	require.Equal(t, 64, streams[0].maxAggregate)
	require.Nil(t, streams[1].aggregate)
	require.ErrorIs(t, streams[0].SetOneshot(false), ErrStreamStarted)
	for _, stream := range streams {
		stream.Destroy()
	}
}

func TestServerCloseLeavesStreams(t *testing.T) {
	t.Parallel()

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	var accepted *Stream
	server := NewServer(loop, func(server *Server, stream *Stream) {
		accepted = stream
	})
	path := socketPath(t)
	require.NoError(t, server.Listen(0, path))
	dialUnix(t, path)
	reactor.fire(server.FD(), poll.EventRead)
	require.NotNil(t, accepted)

	require.NoError(t, server.Close())
	require.Equal(t, StateOpen, accepted.ReadyState())
	require.NoError(t, accepted.Destroy())
}

func TestServerStreamTrackingCascades(t *testing.T) {
	t.Parallel()

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	var closed int
	var accepted []*Stream
	server := NewServer(loop, func(server *Server, stream *Stream) {
		stream.OnClose(func(stream *Stream, hadError bool) {
			require.False(t, hadError)
			closed++
		})
		accepted = append(accepted, stream)
	}, WithStreamTracking())
	path := socketPath(t)
	require.NoError(t, server.Listen(0, path))
	for i := 0; i < 3; i++ {
		dialUnix(t, path)
	}
	reactor.fire(server.FD(), poll.EventRead)
	require.Len(t, accepted, 3)

	require.NoError(t, accepted[0].Destroy())
	require.Len(t, server.streams, 2)

	require.NoError(t, server.Close())
	require.Equal(t, 3, closed)
	for _, stream := range accepted {
		require.Equal(t, StateClosed, stream.ReadyState())
	}
	require.Empty(t, reactor.handlers)
}

func TestServerRejectInConnectionHandler(t *testing.T) {
	t.Parallel()

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	server := NewServer(loop, func(server *Server, stream *Stream) {
		stream.Destroy()
	})
	path := socketPath(t)
	require.NoError(t, server.Listen(0, path))
	t.Cleanup(func() {
		server.Close()
	})
	client := dialUnix(t, path)
	reactor.fire(server.FD(), poll.EventRead)

	require.Len(t, reactor.handlers, 1)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := client.Read(make([]byte, 1))
	require.Zero(t, n)
	require.Error(t, err)
}

func TestPingPong(t *testing.T) {
	t.Parallel()
	pingPong(t, 0, socketPath(t))
}

func TestTCPPingPong(t *testing.T) {
	t.Parallel()

	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := reserved.Addr().(*net.TCPAddr).Port
	require.NoError(t, reserved.Close())

	server := pingPong(t, port, "127.0.0.1")
	require.False(t, server.Addr().IsUnix())
	require.Equal(t, uint16(port), server.Addr().Port)
	require.Equal(t, "127.0.0.1", server.Addr().Addr.String())
}

func pingPong(t *testing.T, port int, address string) *Server {
	t.Helper()
	loop, err := NewLoop(LoopOptions{Logger: quietLogger()})
	require.NoError(t, err)

	serverEvents := make(chan string, 8)
	clientEvents := make(chan string, 8)
	server := NewServer(loop, func(server *Server, stream *Stream) {
		stream.OnData(func(stream *Stream, data []byte) {
			serverEvents <- "data:" + string(data)
			stream.Write([]byte("pong"))
		})
		stream.OnEnd(func(stream *Stream) {
			serverEvents <- "end"
			stream.End()
		})
		stream.OnClose(func(stream *Stream, hadError bool) {
			if hadError {
				serverEvents <- "close:error"
			} else {
				serverEvents <- "close"
			}
		})
	}, WithReuseAddr())
	require.NoError(t, server.Listen(port, address))

	client, err := Connect(loop, port, address)
	require.NoError(t, err)
	client.OnConnect(func(stream *Stream) {
		clientEvents <- "connect"
		stream.Write([]byte("ping"))
	})
	client.OnData(func(stream *Stream, data []byte) {
		clientEvents <- "data:" + string(data)
		stream.End()
	})
	client.OnClose(func(stream *Stream, hadError bool) {
		clientEvents <- "close"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	expect := func(events <-chan string, want string) {
		t.Helper()
		select {
		case event := <-events:
			require.Equal(t, want, event)
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %s", want)
		}
	}
	expect(clientEvents, "connect")
	expect(serverEvents, "data:ping")
	expect(clientEvents, "data:pong")
	expect(clientEvents, "close")
	expect(serverEvents, "end")
	expect(serverEvents, "close")

	require.NoError(t, loop.Post(func() {
		server.Close()
		loop.Close()
	}))
	require.NoError(t, <-done)
	return server
}

func TestConnectRefused(t *testing.T) {
	t.Parallel()

	loop := newLoop(newFakeReactor(), LoopOptions{Logger: quietLogger()})
	_, err := Connect(loop, 0, socketPath(t))
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	require.Equal(t, "connect", setupErr.Op)
}

func TestServerAcceptFailureReported(t *testing.T) {
	t.Parallel()

	reader, writer, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		reader.Close()
		writer.Close()
	})

	reactor := newFakeReactor()
	loop := newLoop(reactor, LoopOptions{Logger: quietLogger()})
	server := NewServer(loop, func(server *Server, stream *Stream) {
		t.Error("connection handler called")
	})
	// a pipe is readable like a listener but cannot accept
	server.fd = int(reader.Fd())
	server.listening = true
	require.NoError(t, reactor.Register(server.fd, poll.InterestRead, poll.HandlerFunc(server.handleEvent)))

	var reported []error
	server.OnError(func(server *Server, err error) {
		reported = append(reported, err)
	})
	reactor.fire(server.fd, poll.EventRead)

	require.Len(t, reported, 1)
	var setupErr *SetupError
	require.ErrorAs(t, reported[0], &setupErr)
	require.Equal(t, "accept", setupErr.Op)
	require.ErrorIs(t, setupErr, syscall.ENOTSOCK)
	_, registered := reactor.handlers[server.fd]
	require.True(t, registered)
	require.Equal(t, poll.InterestRead, reactor.interest[server.fd])

	// without an error handler the failure is logged and the server keeps listening
	server.OnError(nil)
	require.NotPanics(t, func() {
		reactor.fire(server.fd, poll.EventRead)
	})
	require.Len(t, reported, 1)
	_, registered = reactor.handlers[server.fd]
	require.True(t, registered)

	require.NoError(t, reactor.Unregister(server.fd))
	server.listening = false
	require.NoError(t, server.Close())
}

func TestServerDefaults(t *testing.T) {
	t.Parallel()

	loop := newLoop(newFakeReactor(), LoopOptions{Logger: quietLogger()})
	server := NewServer(loop, nil)
	require.Equal(t, 1024, server.backlog)
	require.Equal(t, -1, server.FD())
	require.Equal(t, 16, NewServer(loop, nil, WithBacklog(16)).backlog)
	require.Equal(t, DefaultBacklog, NewServer(loop, nil, WithBacklog(0)).backlog)
}
