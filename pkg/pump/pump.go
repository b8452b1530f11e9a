// Package pump moves bytes between an open serial port and the local
// console in both directions until the outbound stream ends.
package pump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"rawserial/pkg/debuglog"
	"rawserial/pkg/serial"
)

// ReadBufferSize is the size of the inbound scratch buffer
const ReadBufferSize = 32

// ErrWriteTimeout is returned by Run when a byte could not be written
// within Config.WriteTimeout
var ErrWriteTimeout = errors.New("serial write timed out")

// State is the lifecycle state of a pump
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateTerminating
	StateStopped
)

// String returns the string representation of the pump state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Config tunes error handling inside the pump
type Config struct {
	// Retry paces re-attempts after readiness or I/O errors
	Retry serial.RetryConfig
	// WriteTimeout bounds how long a single outbound byte may wait for the
	// device. Zero waits forever.
	WriteTimeout time.Duration
	Log          *debuglog.Logger
}

// DefaultConfig returns the pump configuration used for interactive sessions
func DefaultConfig() Config {
	return Config{Retry: serial.DefaultRetryConfig()}
}

// Pump is the duplex loop between a serial port and a console
type Pump struct {
	port    serial.Port
	console io.Writer
	config  Config

	state    atomic.Int32
	sent     atomic.Int64
	received atomic.Int64
}

// New creates a pump. The console receives inbound bytes verbatim and should
// be unbuffered. A Retry without an interval is replaced by
// serial.DefaultRetryConfig so error paths always pause.
func New(port serial.Port, console io.Writer, config Config) *Pump {
	if config.Retry.RetryInterval <= 0 || config.Retry.Validate() != nil {
		config.Retry = serial.DefaultRetryConfig()
	}
	return &Pump{
		port:    port,
		console: console,
		config:  config,
	}
}

// State returns the current lifecycle state
func (p *Pump) State() State {
	return State(p.state.Load())
}

// BytesSent returns the number of bytes written to the port
func (p *Pump) BytesSent() int64 {
	return p.sent.Load()
}

// BytesReceived returns the number of bytes read from the port
func (p *Pump) BytesReceived() int64 {
	return p.received.Load()
}

// Run services whichever side is ready first: inbound data is copied to the
// console, and each byte received from out is written to the port before the
// next event is considered. Run returns nil once out is closed. Bytes still
// buffered in out when it is closed are drained first, since a closed channel
// only reports closure after its last value.
func (p *Pump) Run(out <-chan byte) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.state.Store(int32(StateRunning))
	defer p.state.Store(int32(StateStopped))

	buf := make([]byte, ReadBufferSize)
	readable := p.armRead(ctx, 0)
	var readBackoff time.Duration

	for {
		select {
		case err := <-readable:
			if err != nil {
				if errors.Is(err, serial.ErrPortClosed) {
					return err
				}
				readBackoff = p.config.Retry.Next(readBackoff)
				p.config.Log.Printf("wait readable: %v (retrying in %v)", err, readBackoff)
				readable = p.armRead(ctx, readBackoff)
				continue
			}

			n, err := p.port.TryRead(buf)
			if n > 0 {
				if _, werr := p.console.Write(buf[:n]); werr != nil {
					return fmt.Errorf("failed to write to console: %w", werr)
				}
				p.received.Add(int64(n))
			}

			switch {
			case err == nil, errors.Is(err, serial.ErrWouldBlock):
				readBackoff = 0
				readable = p.armRead(ctx, 0)
			default:
				readBackoff = p.config.Retry.Next(readBackoff)
				p.config.Log.Printf("read: %v (retrying in %v)", err, readBackoff)
				readable = p.armRead(ctx, readBackoff)
			}

		case b, ok := <-out:
			if !ok {
				p.state.Store(int32(StateTerminating))
				p.config.Log.Printf("outbound stream closed, %d bytes sent, %d received", p.BytesSent(), p.BytesReceived())
				return nil
			}
			if err := p.writeByte(ctx, b); err != nil {
				return err
			}
		}
	}
}

// armRead starts a goroutine that reports the next read readiness after
// delay. The returned channel receives exactly one value.
func (p *Pump) armRead(ctx context.Context, delay time.Duration) <-chan error {
	ch := make(chan error, 1)
	go func() {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				ch <- ctx.Err()
				return
			case <-t.C:
			}
		}
		ch <- p.port.WaitReadable(ctx)
	}()
	return ch
}

// writeByte blocks until b has been accepted by the port. Would-block
// results are retried after the next writable notification; errors are
// retried with back-off.
func (p *Pump) writeByte(ctx context.Context, b byte) error {
	var deadline time.Time
	if p.config.WriteTimeout > 0 {
		deadline = time.Now().Add(p.config.WriteTimeout)
	}

	data := []byte{b}
	var backoff time.Duration

	for {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w: byte %#02x after %v", ErrWriteTimeout, b, p.config.WriteTimeout)
		}

		if err := p.waitWritable(ctx, deadline); err != nil {
			if errors.Is(err, serial.ErrPortClosed) {
				return err
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				backoff = p.config.Retry.Next(backoff)
				p.config.Log.Printf("wait writable: %v (retrying in %v)", err, backoff)
				time.Sleep(backoff)
			}
			continue
		}

		n, err := p.port.TryWrite(data)
		if err == nil && n == 1 {
			p.sent.Add(1)
			return nil
		}
		if err != nil && !errors.Is(err, serial.ErrWouldBlock) {
			if errors.Is(err, serial.ErrPortClosed) {
				return err
			}
			backoff = p.config.Retry.Next(backoff)
			p.config.Log.Printf("write %#02x: %v (retrying in %v)", b, err, backoff)
			time.Sleep(backoff)
		}
	}
}

func (p *Pump) waitWritable(ctx context.Context, deadline time.Time) error {
	if deadline.IsZero() {
		return p.port.WaitWritable(ctx)
	}
	wctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return p.port.WaitWritable(wctx)
}
