package evn

import (
	E "github.com/sagernet/evn/common/exceptions"
)

var (
	ErrStreamClosed      = E.New("stream closed")
	ErrStreamStarted     = E.New("stream already reading")
	ErrWriteShutdown     = E.New("stream write side shut down")
	ErrServerClosed      = E.New("server closed")
	ErrServerListening   = E.New("server already listening")
	ErrAggregateOverflow = E.New("oneshot payload exceeds limit")
)

// SetupError reports a failure to create, bind, listen on, accept from or connect a socket.
type SetupError struct {
	Op      string
	Address string
	Err     error
}

func (e *SetupError) Error() string {
	if e.Address == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Address + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func newSetupError(op string, address string, err error) error {
	if err == nil {
		return nil
	}
	return &SetupError{Op: op, Address: address, Err: err}
}
