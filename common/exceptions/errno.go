package exceptions

import (
	"errors"
	"syscall"
)

// IsWouldBlock reports a non-blocking operation that could not make progress.
func IsWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// IsTemporary reports errors after which the same call may be retried at once.
// Would-block is not temporary: retrying it without waiting for readiness spins.
func IsTemporary(err error) bool {
	return IsInterrupted(err) || errors.Is(err, syscall.ECONNABORTED)
}
