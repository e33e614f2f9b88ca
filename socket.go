package evn

// socket is the per-connection syscall surface a Stream drives.
// Read and Write never block; they return a would-block error instead.
type socket interface {
	FD() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	CloseWrite() error
	Close() error
	Err() error
}
