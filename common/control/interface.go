package control

// Func configures a freshly created socket before bind or connect.
type Func = func(fd int) error

func Apply(fd int, funcs ...Func) error {
	for _, fn := range funcs {
		if fn == nil {
			continue
		}
		if err := fn(fd); err != nil {
			return err
		}
	}
	return nil
}
