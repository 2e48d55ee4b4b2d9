package transport

import (
	"errors"
	"io"
	"sync"
)

// Pool keeps one Exclusive per device name, so every user of a port in the
// process queues on the same lock.
type Pool struct {
	mu    sync.Mutex
	links map[string]*pooled
}

type pooled struct {
	ex *Exclusive
	t  Transport
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{links: map[string]*pooled{}}
}

// Link returns the Exclusive for name, calling open the first time name is
// asked for. A failed open is not remembered.
func (p *Pool) Link(name string, open func() (Transport, error)) (*Exclusive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.links[name]; ok {
		return l.ex, nil
	}
	t, err := open()
	if err != nil {
		return nil, err
	}
	l := &pooled{ex: NewExclusive(t), t: t}
	p.links[name] = l
	return l.ex, nil
}

// Close closes every Exclusive, then every transport that is an io.Closer,
// and empties the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	links := p.links
	p.links = map[string]*pooled{}
	p.mu.Unlock()

	var errs []error
	for _, l := range links {
		l.ex.Close()
		if c, ok := l.t.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
