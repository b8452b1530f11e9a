package debuglog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var linePattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\.\d{3}\] (.*)$`)

func TestLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Printf("opened %s at %d", "/dev/ttyUSB0", 115200)
	log.Printf("closed")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	want := []string{"opened /dev/ttyUSB0 at 115200", "closed"}
	for i, line := range lines {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			t.Fatalf("line %q does not match timestamp format", line)
		}
		if m[1] != want[i] {
			t.Errorf("line %d message = %q, want %q", i, m[1], want[i])
		}
	}
}

func TestLogger_NilIsSafe(t *testing.T) {
	var log *Logger
	log.Printf("ignored %d", 1)
	if err := log.Close(); err != nil {
		t.Errorf("Close() on nil logger = %v", err)
	}
}

func TestOpen_EmptyPathDisables(t *testing.T) {
	log, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if log != nil {
		t.Error("Open(\"\") should return a nil logger")
	}
}

func TestOpen_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	log.Printf("hello")
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	log.Printf("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "] hello\n") {
		t.Errorf("log file = %q, want a hello line", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Error("writes after Close should be discarded")
	}
}

func TestOpen_BadPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "debug.log")); err == nil {
		t.Error("Open() into a missing directory should fail")
	}
}
