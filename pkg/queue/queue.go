// Package queue provides the unbounded outbound byte queue shared by the
// key capture loop and the serial pump
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close
var ErrClosed = errors.New("queue is closed")

// Queue is an unbounded single-producer/single-consumer FIFO of bytes.
// Push never blocks on the consumer; Out delivers bytes one at a time in
// the order they were pushed and is closed after Close once every pending
// byte has been delivered.
type Queue struct {
	in  chan []byte
	out chan byte

	mu     sync.Mutex
	closed bool
}

// New creates a queue and starts its forwarding goroutine
func New() *Queue {
	q := &Queue{
		in:  make(chan []byte, 64),
		out: make(chan byte),
	}
	go q.forward()
	return q
}

// Push enqueues seq as a single unit. An empty seq is a no-op.
func (q *Queue) Push(seq []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if len(seq) == 0 {
		return nil
	}

	chunk := make([]byte, len(seq))
	copy(chunk, seq)
	q.in <- chunk
	return nil
}

// Close ends the stream. Bytes already pushed are still delivered.
// Safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.in)
}

// Out returns the channel the consumer receives bytes from
func (q *Queue) Out() <-chan byte {
	return q.out
}

// forward moves chunks from in to out, buffering without bound
func (q *Queue) forward() {
	var pending []byte
	in := q.in

	for {
		if in == nil && len(pending) == 0 {
			close(q.out)
			return
		}

		var out chan byte
		var next byte
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case chunk, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, chunk...)
		case out <- next:
			pending = pending[1:]
			if len(pending) == 0 {
				pending = nil
			}
		}
	}
}
