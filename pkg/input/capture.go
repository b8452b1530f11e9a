package input

import (
	"fmt"
	"sync"

	"golang.org/x/term"

	"rawserial/pkg/debuglog"
	"rawserial/pkg/keymap"
	"rawserial/pkg/queue"
)

// KeySource yields keystrokes one at a time
type KeySource interface {
	ReadKey() (keymap.KeyEvent, error)
}

// Capture reads keys, translates them and pushes the resulting bytes onto
// the outbound queue
type Capture struct {
	Source KeySource
	Queue  *queue.Queue
	Log    *debuglog.Logger

	mu  sync.Mutex
	err error
}

// Run loops until the end-of-session chord is pressed or the source fails.
// The queue is closed on every return path, which is what stops the pump.
// The result is recorded before the queue is closed, so a consumer that
// observes the closed queue can read it with Err.
func (c *Capture) Run() error {
	err := c.loop()

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	c.Queue.Close()
	return err
}

// Err returns the error Run finished with
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Capture) loop() error {
	for {
		ev, err := c.Source.ReadKey()
		if err != nil {
			c.Log.Printf("key source: %v", err)
			return fmt.Errorf("failed to read key: %w", err)
		}

		seq, end := keymap.Translate(ev)
		if end {
			c.Log.Printf("key %v: end of session", ev)
			return nil
		}
		if len(seq) == 0 {
			c.Log.Printf("key %v: ignored", ev)
			continue
		}

		c.Log.Printf("key %v: % x", ev, seq)
		if err := c.Queue.Push(seq); err != nil {
			return err
		}
	}
}

// MakeRaw switches the terminal on fd to raw mode and returns a function
// that restores it. When fd is not a terminal nothing is changed and the
// returned restore is a no-op.
func MakeRaw(fd int) (restore func() error, err error) {
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enable raw mode: %w", err)
	}

	var once sync.Once
	return func() error {
		var rerr error
		once.Do(func() {
			if err := term.Restore(fd, state); err != nil {
				rerr = fmt.Errorf("failed to restore terminal: %w", err)
			}
		})
		return rerr
	}, nil
}
