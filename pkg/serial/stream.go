package serial

import (
	"context"
	"io"
	"sync"
)

const streamReadSize = 256

// StreamPort adapts a blocking io.ReadWriteCloser to the Port interface.
// A reader goroutine buffers inbound data and a writer goroutine drains one
// outbound chunk at a time, so TryRead and TryWrite never block.
type StreamPort struct {
	rw     io.ReadWriteCloser
	config SerialConfig

	mu       sync.Mutex
	buf      []byte
	readErr  error
	writeErr error

	readable chan struct{}
	// writeSlot holds a token while the writer goroutine is idle
	writeSlot chan struct{}
	writes    chan []byte

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewStreamPort wraps rw and starts its reader and writer goroutines
func NewStreamPort(rw io.ReadWriteCloser, config SerialConfig) *StreamPort {
	p := &StreamPort{
		rw:        rw,
		config:    config,
		readable:  make(chan struct{}, 1),
		writeSlot: make(chan struct{}, 1),
		writes:    make(chan []byte),
		done:      make(chan struct{}),
	}
	p.writeSlot <- struct{}{}

	go p.readLoop()
	go p.writeLoop()
	return p
}

func (p *StreamPort) readLoop() {
	chunk := make([]byte, streamReadSize)
	for {
		n, err := p.rw.Read(chunk)

		p.mu.Lock()
		if n > 0 {
			p.buf = append(p.buf, chunk[:n]...)
		}
		if err != nil {
			p.readErr = err
		}
		p.mu.Unlock()

		if n > 0 || err != nil {
			p.signalReadable()
		}
		if err != nil {
			return
		}

		select {
		case <-p.done:
			return
		default:
		}
	}
}

func (p *StreamPort) signalReadable() {
	select {
	case p.readable <- struct{}{}:
	default:
	}
}

func (p *StreamPort) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.writes:
			for len(data) > 0 {
				n, err := p.rw.Write(data)
				if err != nil {
					p.mu.Lock()
					p.writeErr = NewSerialError("write", p.config.Port, err)
					p.mu.Unlock()
					break
				}
				data = data[n:]
			}
			p.writeSlot <- struct{}{}
		}
	}
}

// WaitReadable blocks until buffered input or a read error is available
func (p *StreamPort) WaitReadable(ctx context.Context) error {
	for {
		if p.isClosed() {
			return ErrPortClosed
		}

		p.mu.Lock()
		ready := len(p.buf) > 0 || p.readErr != nil
		p.mu.Unlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return ErrPortClosed
		case <-p.readable:
		}
	}
}

// TryRead copies buffered input into buf. Once the buffer is drained the
// reader's terminal error, if any, is returned.
func (p *StreamPort) TryRead(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buf) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		return 0, ErrWouldBlock
	}

	n := copy(buf, p.buf)
	p.buf = p.buf[n:]
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return n, nil
}

// WaitWritable blocks until the writer goroutine is idle
func (p *StreamPort) WaitWritable(ctx context.Context) error {
	if p.isClosed() {
		return ErrPortClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPortClosed
	case tok := <-p.writeSlot:
		p.writeSlot <- tok
		return nil
	}
}

// TryWrite hands data to the writer goroutine if it is idle. The whole
// slice is accepted or none of it.
func (p *StreamPort) TryWrite(data []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrPortClosed
	}

	p.mu.Lock()
	err := p.writeErr
	p.writeErr = nil
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if len(data) == 0 {
		return 0, nil
	}

	select {
	case <-p.done:
		return 0, ErrPortClosed
	case <-p.writeSlot:
	default:
		return 0, ErrWouldBlock
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)
	select {
	case p.writes <- chunk:
		return len(data), nil
	case <-p.done:
		return 0, ErrPortClosed
	}
}

func (p *StreamPort) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Config returns the configuration the port was opened with
func (p *StreamPort) Config() SerialConfig {
	return p.config
}

// Close closes the underlying stream. Safe to call multiple times.
func (p *StreamPort) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		if err := p.rw.Close(); err != nil {
			p.closeErr = NewSerialError("close", p.config.Port, err)
		}
	})
	return p.closeErr
}
