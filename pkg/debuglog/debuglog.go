// Package debuglog writes timestamped diagnostic lines to a file so they do
// not interleave with the raw terminal session
package debuglog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes "[15:04:05.000] message" lines. A nil *Logger discards
// everything, so callers never need to check whether logging is enabled.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// New returns a logger writing to w
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Open creates (or truncates) the log file at path. An empty path disables
// logging and returns a nil logger.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug log %s: %w", path, err)
	}
	return &Logger{w: f, c: f}, nil
}

// Printf formats and writes a single log line
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.w, "[%s] %s\n", timestamp, msg)
	if f, ok := l.w.(*os.File); ok {
		f.Sync() // Ensure it's written immediately
	}
}

// Close closes the underlying file if the logger opened one
func (l *Logger) Close() error {
	if l == nil || l.c == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.c.Close()
	l.c = nil
	l.w = io.Discard
	return err
}
