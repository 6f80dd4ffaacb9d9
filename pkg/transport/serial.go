// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"time"

	"go.bug.st/serial"
)

// ErrTimeout is returned by Port.ReadExact when the deadline elapses
// before n bytes have arrived.
var ErrTimeout = errors.New("transport: serial read timeout")

// Port abstracts the OS blocking byte stream the TransportLayer reads
// and writes against. It owns the underlying handle exclusively from
// Open to Close and exposes no other surface to the core.
type Port interface {
	// AvailableBytes reports whether at least one byte is currently
	// readable without blocking indefinitely.
	AvailableBytes() (int, error)

	// ReadOne reads a single byte without blocking indefinitely. ok is
	// false if no byte was available.
	ReadOne() (b byte, ok bool, err error)

	// ReadExact blocks until n bytes have been read or deadline has
	// elapsed, whichever comes first. A zero deadline means no
	// timeout.
	ReadExact(n int, deadline time.Time) ([]byte, error)

	// WriteAll writes p in full, blocking until the OS buffer drains
	// if necessary.
	WriteAll(p []byte) error

	// Close releases the underlying handle.
	Close() error
}

// realPort is the go.bug.st/serial-backed Port implementation used
// against real hardware. go.bug.st/serial exposes no byte-count
// query, so AvailableBytes and ReadOne share a single-byte lookahead
// cache filled by a short-timeout probe read.
type realPort struct {
	port    serial.Port
	pending []byte
}

// OpenPort opens name at the given baud rate (8N1, the framing every
// known firmware on the other end of this transport uses) and returns
// a Port wrapping it.
func OpenPort(name string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}

	// A short read timeout turns a blocking Read into a poll, which is
	// what ReadOne/AvailableBytes need underneath.
	if err := p.SetReadTimeout(5 * time.Millisecond); err != nil {
		p.Close()
		return nil, err
	}

	return &realPort{port: p}, nil
}

func (r *realPort) fillPending() error {
	if len(r.pending) > 0 {
		return nil
	}
	buf := make([]byte, 1)
	n, err := r.port.Read(buf)
	if err != nil {
		return err
	}
	if n > 0 {
		r.pending = buf[:1]
	}
	return nil
}

func (r *realPort) AvailableBytes() (int, error) {
	if err := r.fillPending(); err != nil {
		return 0, err
	}
	return len(r.pending), nil
}

func (r *realPort) ReadOne() (byte, bool, error) {
	if err := r.fillPending(); err != nil {
		return 0, false, err
	}
	if len(r.pending) == 0 {
		return 0, false, nil
	}
	b := r.pending[0]
	r.pending = nil
	return b, true, nil
}

func (r *realPort) ReadExact(n int, deadline time.Time) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return out, ErrTimeout
		}
		b, ok, err := r.ReadOne()
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *realPort) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := r.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (r *realPort) Close() error {
	return r.port.Close()
}
