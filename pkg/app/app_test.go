package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"rawserial/pkg/serial"
)

func TestSessionManagement(t *testing.T) {
	// Create a new session
	config := serial.DefaultConfig()
	config.Port = "/dev/ttyUSB0"

	session := NewSession("bench", config)

	// Check initial state
	if session.ID == "" {
		t.Error("Session ID should not be empty")
	}

	if session.Name != "bench" {
		t.Errorf("Session name = %s, want bench", session.Name)
	}

	if !session.IsActive {
		t.Error("New session should be active")
	}

	if session.BytesSent != 0 || session.BytesRecv != 0 {
		t.Error("New session should have zero bytes")
	}

	// Update stats
	session.UpdateStats(100, 200)
	session.UpdateStats(1, 2)

	sent, recv := session.GetStats()
	if sent != 101 || recv != 202 {
		t.Errorf("Session stats = (%d, %d), want (101, 202)", sent, recv)
	}

	// End session
	session.End()

	if session.IsActive {
		t.Error("Ended session should not be active")
	}

	if session.EndTime == nil {
		t.Fatal("Ended session should have end time")
	}

	first := *session.EndTime
	time.Sleep(2 * time.Millisecond)
	session.End()
	if !session.EndTime.Equal(first) {
		t.Error("Second End() should not move the end time")
	}
}

func TestSessionDuration(t *testing.T) {
	session := NewSession("d", serial.DefaultConfig())
	time.Sleep(5 * time.Millisecond)

	running := session.Duration()
	if running < 5*time.Millisecond {
		t.Errorf("Duration() while active = %v, want >= 5ms", running)
	}

	session.End()
	ended := session.Duration()
	time.Sleep(5 * time.Millisecond)
	if session.Duration() != ended {
		t.Error("Duration() should be fixed once the session ends")
	}
}

func TestSessionSummary(t *testing.T) {
	config := serial.DefaultConfig()
	config.Port = "/dev/ttyACM0"
	config.BaudRate = 9600

	session := NewSession("uno", config)
	session.UpdateStats(3, 42)
	session.End()

	var buf bytes.Buffer
	session.WriteSummary(&buf)
	out := buf.String()

	for _, want := range []string{
		"=== Session Summary ===",
		"Session: uno",
		"Port: /dev/ttyACM0 (9600 8-N-1)",
		"Bytes Sent: 3",
		"Bytes Received: 42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSessionIDGeneration(t *testing.T) {
	// Generate multiple IDs
	id1 := generateSessionID()
	time.Sleep(1 * time.Millisecond) // Ensure different timestamp
	id2 := generateSessionID()

	// Check they are unique
	if id1 == id2 {
		t.Error("Session IDs should be unique")
	}

	// Check they are not empty
	if id1 == "" || id2 == "" {
		t.Error("Session IDs should not be empty")
	}
}
