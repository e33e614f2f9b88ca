package common

import (
	"io"

	E "github.com/sagernet/evn/common/exceptions"
)

func Error(_ any, err error) error {
	return err
}

// Close closes every io.Closer in order and returns their joined errors.
func Close(closers ...any) error {
	var errs []error
	for _, closer := range closers {
		if c, isCloser := closer.(io.Closer); isCloser {
			errs = append(errs, c.Close())
		}
	}
	return E.Errors(errs...)
}
