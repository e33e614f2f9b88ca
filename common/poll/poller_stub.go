//go:build !linux && !darwin

package poll

import (
	"context"

	E "github.com/sagernet/evn/common/exceptions"
)

var ErrNotSupported = E.New("poller not supported on this platform")

type Poller struct{}

func New() (*Poller, error) {
	return nil, ErrNotSupported
}

func (p *Poller) Register(fd int, interest Interest, handler Handler) error {
	return ErrNotSupported
}

func (p *Poller) Modify(fd int, interest Interest) error {
	return ErrNotSupported
}

func (p *Poller) Unregister(fd int) error {
	return ErrNotSupported
}

func (p *Poller) Interest(fd int) (Interest, bool) {
	return 0, false
}

func (p *Poller) Post(task func()) error {
	return ErrNotSupported
}

func (p *Poller) Run(ctx context.Context) error {
	return ErrNotSupported
}

func (p *Poller) Close() error {
	return nil
}
