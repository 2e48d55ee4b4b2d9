// Package transport abstracts the byte link to a target's bootloader.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Transport is a blocking byte link.
//
// Receive waits at most timeout for data and returns (0, nil) if none
// arrived. A zero timeout means the implementation's default.
type Transport interface {
	Send(p []byte) (int, error)
	Receive(p []byte, timeout time.Duration) (int, error)
}

var (
	// ErrClosed is returned by Exclusive.Acquire after Close.
	ErrClosed = errors.New("transport closed")

	// ErrTimeout is returned when the link goes quiet.
	ErrTimeout = errors.New("timeout")
)

// Exclusive serialises use of one Transport: a single holder at a time,
// for the whole duration of a download.
type Exclusive struct {
	t         Transport
	sem       chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewExclusive wraps t.
func NewExclusive(t Transport) *Exclusive {
	return &Exclusive{
		t:    t,
		sem:  make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Acquire blocks until the transport is free or ctx is done. The returned
// release func must be called on every exit path; calling it more than
// once is harmless.
func (e *Exclusive) Acquire(ctx context.Context) (Transport, func(), error) {
	select {
	case <-e.done:
		return nil, nil, ErrClosed
	default:
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-e.done:
		return nil, nil, ErrClosed
	}

	var released bool
	release := func() {
		if !released {
			released = true
			<-e.sem
		}
	}
	return e.t, release, nil
}

// TryAcquire is Acquire without waiting. ok is false if the transport is
// held or closed.
func (e *Exclusive) TryAcquire() (t Transport, release func(), ok bool) {
	select {
	case <-e.done:
		return nil, nil, false
	default:
	}
	select {
	case e.sem <- struct{}{}:
	default:
		return nil, nil, false
	}
	var released bool
	return e.t, func() {
		if !released {
			released = true
			<-e.sem
		}
	}, true
}

// Close makes further Acquire calls fail. It does not close the
// underlying transport.
func (e *Exclusive) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

// ReadFull receives exactly len(p) bytes, giving up if a single Receive
// times out.
func ReadFull(t Transport, p []byte, timeout time.Duration) (int, error) {
	n := 0
	for n < len(p) {
		m, err := t.Receive(p[n:], timeout)
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, ErrTimeout
		}
	}
	return n, nil
}
