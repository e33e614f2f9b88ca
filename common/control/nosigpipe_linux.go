package control

// NoSigpipe is a no-op on Linux, where sends pass MSG_NOSIGNAL instead.
func NoSigpipe() Func {
	return nil
}
