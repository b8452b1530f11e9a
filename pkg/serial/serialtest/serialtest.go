// Package serialtest provides an in-memory serial.Port for tests
package serialtest

import (
	"context"
	"sync"

	"rawserial/pkg/serial"
)

// Port is a scriptable in-memory serial.Port. Inbound data is supplied with
// Feed; outbound bytes are recorded and returned by Written.
type Port struct {
	config serial.SerialConfig

	mu            sync.Mutex
	inbound       []byte
	spuriousReads int
	readErrs      []error
	blockWrites   int
	neverWritable bool
	written       []byte
	writeCalls    int

	readable chan struct{}
	closed   chan struct{}
	once     sync.Once
}

// NewPort returns an open port reporting config from Config
func NewPort(config serial.SerialConfig) *Port {
	return &Port{
		config:   config,
		readable: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Feed makes data available to TryRead
func (p *Port) Feed(data []byte) {
	p.mu.Lock()
	p.inbound = append(p.inbound, data...)
	p.mu.Unlock()
	p.signal()
}

// SpuriousReads makes the next n reads report readiness followed by
// ErrWouldBlock
func (p *Port) SpuriousReads(n int) {
	p.mu.Lock()
	p.spuriousReads += n
	p.mu.Unlock()
	p.signal()
}

// FailReads makes the next reads return errs in order
func (p *Port) FailReads(errs ...error) {
	p.mu.Lock()
	p.readErrs = append(p.readErrs, errs...)
	p.mu.Unlock()
	p.signal()
}

// BlockWrites makes the next n writes return ErrWouldBlock
func (p *Port) BlockWrites(n int) {
	p.mu.Lock()
	p.blockWrites += n
	p.mu.Unlock()
}

// NeverWritable makes WaitWritable block until its context ends and every
// write report ErrWouldBlock
func (p *Port) NeverWritable() {
	p.mu.Lock()
	p.neverWritable = true
	p.mu.Unlock()
}

// Written returns a copy of every byte accepted by TryWrite
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

// WriteCalls returns how many times TryWrite was called with data
func (p *Port) WriteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeCalls
}

// Closed reports whether Close has been called
func (p *Port) Closed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Port) signal() {
	select {
	case p.readable <- struct{}{}:
	default:
	}
}

// WaitReadable implements serial.Port
func (p *Port) WaitReadable(ctx context.Context) error {
	for {
		if p.Closed() {
			return serial.ErrPortClosed
		}

		p.mu.Lock()
		ready := len(p.inbound) > 0 || p.spuriousReads > 0 || len(p.readErrs) > 0
		p.mu.Unlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.closed:
			return serial.ErrPortClosed
		case <-p.readable:
		}
	}
}

// TryRead implements serial.Port
func (p *Port) TryRead(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.readErrs) > 0 {
		err := p.readErrs[0]
		p.readErrs = p.readErrs[1:]
		return 0, err
	}
	if p.spuriousReads > 0 {
		p.spuriousReads--
		return 0, serial.ErrWouldBlock
	}
	if len(p.inbound) == 0 {
		return 0, serial.ErrWouldBlock
	}

	n := copy(buf, p.inbound)
	p.inbound = p.inbound[n:]
	return n, nil
}

// WaitWritable implements serial.Port
func (p *Port) WaitWritable(ctx context.Context) error {
	if p.Closed() {
		return serial.ErrPortClosed
	}

	p.mu.Lock()
	never := p.neverWritable
	p.mu.Unlock()

	if never {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.closed:
			return serial.ErrPortClosed
		}
	}
	return ctx.Err()
}

// TryWrite implements serial.Port
func (p *Port) TryWrite(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if p.Closed() {
		return 0, serial.ErrPortClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.writeCalls++
	if p.neverWritable {
		return 0, serial.ErrWouldBlock
	}
	if p.blockWrites > 0 {
		p.blockWrites--
		return 0, serial.ErrWouldBlock
	}
	p.written = append(p.written, data...)
	return len(data), nil
}

// Close implements serial.Port
func (p *Port) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Config implements serial.Port
func (p *Port) Config() serial.SerialConfig {
	return p.config
}

var _ serial.Port = (*Port)(nil)
