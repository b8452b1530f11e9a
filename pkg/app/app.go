// Package app wires an open serial port, the local terminal and the duplex
// pump into one interactive session
package app

import (
	"fmt"
	"io"
	"sync"
	"time"

	"rawserial/pkg/serial"
)

// Session records what happened during one connection
type Session struct {
	ID        string
	Name      string
	Config    serial.SerialConfig
	StartTime time.Time
	EndTime   *time.Time
	BytesSent int64
	BytesRecv int64
	IsActive  bool
	mu        sync.RWMutex
}

// NewSession creates a new session
func NewSession(name string, config serial.SerialConfig) *Session {
	return &Session{
		ID:        generateSessionID(),
		Name:      name,
		Config:    config,
		StartTime: time.Now(),
		IsActive:  true,
	}
}

// End marks the session as ended. Later calls keep the first end time.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsActive {
		return
	}
	now := time.Now()
	s.EndTime = &now
	s.IsActive = false
}

// UpdateStats adds to the session byte counters
func (s *Session) UpdateStats(bytesSent, bytesRecv int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BytesSent += bytesSent
	s.BytesRecv += bytesRecv
}

// GetStats returns session statistics
func (s *Session) GetStats() (bytesSent, bytesRecv int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.BytesSent, s.BytesRecv
}

// Duration returns how long the session ran, or has run so far
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// WriteSummary prints the end-of-session report
func (s *Session) WriteSummary(w io.Writer) {
	sent, recv := s.GetStats()

	fmt.Fprintf(w, "\n=== Session Summary ===\n")
	fmt.Fprintf(w, "Session: %s\n", s.Name)
	fmt.Fprintf(w, "Port: %s (%s)\n", s.Config.Port, s.Config)
	fmt.Fprintf(w, "Duration: %v\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Bytes Sent: %d\n", sent)
	fmt.Fprintf(w, "Bytes Received: %d\n", recv)
	fmt.Fprintf(w, "=======================\n")
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
