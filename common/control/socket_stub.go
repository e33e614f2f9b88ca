//go:build !linux && !darwin

package control

func ReuseAddr() Func {
	return nil
}

func NonBlock() Func {
	return nil
}

func NoDelay() Func {
	return nil
}

func NoSigpipe() Func {
	return nil
}
