package evn

import (
	"github.com/sagernet/evn/common/control"
)

const DefaultBacklog = 1024

type ServerOption func(server *Server)

func WithBacklog(backlog int) ServerOption {
	return func(server *Server) {
		if backlog > 0 {
			server.backlog = backlog
		}
	}
}

// WithReuseAddr sets SO_REUSEADDR on TCP listeners.
func WithReuseAddr() ServerOption {
	return func(server *Server) {
		server.reuseAddr = true
	}
}

// WithControl runs fn on the listening socket before bind.
func WithControl(fn control.Func) ServerOption {
	return func(server *Server) {
		server.controls = append(server.controls, fn)
	}
}

// WithOneshot starts every accepted stream in oneshot mode with the given
// aggregation limit (0 means unlimited). The connection handler may still turn it off.
func WithOneshot(limit int) ServerOption {
	return func(server *Server) {
		server.oneshot = true
		server.maxAggregate = limit
	}
}

// WithStreamTracking makes the server remember its open streams and destroy them on Close.
// Without it, closing a server leaves accepted streams untouched.
func WithStreamTracking() ServerOption {
	return func(server *Server) {
		server.streams = make(map[*Stream]struct{})
	}
}
