package app

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rawserial/pkg/pump"
	"rawserial/pkg/serial"
	"rawserial/pkg/serial/serialtest"
)

// syncBuffer is a bytes.Buffer safe for concurrent use
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	runner *Runner
	port   *serialtest.Port
	stdout *syncBuffer
	stderr *syncBuffer
	stdin  *os.File
	input  *os.File
}

// newHarness builds a runner over a fake port. stdin is a pipe; typed is
// written to it, and the write end is closed when closeInput is true.
func newHarness(t *testing.T, typed string, closeInput bool, mutate func(*Options)) *harness {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	if typed != "" {
		_, err := w.WriteString(typed)
		require.NoError(t, err)
	}
	if closeInput {
		w.Close()
	}

	h := &harness{stdout: &syncBuffer{}, stderr: &syncBuffer{}, stdin: r, input: w}

	opts := DefaultOptions()
	opts.Serial.Port = "/dev/ttyFAKE"
	opts.Stdin = r
	opts.Stdout = h.stdout
	opts.Stderr = h.stderr
	opts.Pump = pump.Config{Retry: serial.RetryConfig{RetryInterval: time.Millisecond, BackoffFactor: 1, MaxInterval: time.Millisecond}}
	if mutate != nil {
		mutate(&opts)
	}

	runner, err := NewRunner(opts)
	require.NoError(t, err)

	h.port = serialtest.NewPort(opts.Serial)
	runner.open = func(serial.SerialConfig, serial.RetryConfig) (serial.Port, error) {
		return h.port, nil
	}
	h.runner = runner
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()

	errc := make(chan error, 1)
	go func() { errc <- h.runner.Run() }()
	select {
	case err := <-errc:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestNewRunner_Validates(t *testing.T) {
	opts := DefaultOptions()
	opts.Serial.BaudRate = 12345
	_, err := NewRunner(opts)
	require.Error(t, err)

	opts = DefaultOptions()
	opts.Retry.BackoffFactor = 0.1
	_, err = NewRunner(opts)
	require.Error(t, err)
}

func TestNewRunner_Defaults(t *testing.T) {
	opts := DefaultOptions()
	opts.Serial.Port = "/dev/ttyS3"
	opts.Stdout = nil

	runner, err := NewRunner(opts)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS3", runner.opts.Name)
	require.Equal(t, os.Stdout, runner.opts.Stdout)
	require.Nil(t, runner.Session())
}

func TestRunner_TypesUntilCtrlA(t *testing.T) {
	h := newHarness(t, "ls\r\x01ignored", false, nil)

	require.NoError(t, h.run(t))
	require.Equal(t, []byte("ls\r"), h.port.Written())
	require.True(t, h.port.Closed())
	require.True(t, strings.HasPrefix(h.stdout.String(), "{/dev/ttyFAKE, 115200} Port Opened!\n"))

	session := h.runner.Session()
	require.NotNil(t, session)
	require.False(t, session.IsActive)
	sent, _ := session.GetStats()
	require.Equal(t, int64(3), sent)
}

func TestRunner_ArrowKeys(t *testing.T) {
	h := newHarness(t, "\x1b[A", false, nil)

	// Ctrl+A typed separately so the arrow is decoded as one sequence
	go func() {
		time.Sleep(50 * time.Millisecond)
		h.input.Write([]byte{0x01})
	}()

	require.NoError(t, h.run(t))
	require.Equal(t, []byte{0x1B, '[', 'A'}, h.port.Written())
}

func TestRunner_RendersInbound(t *testing.T) {
	h := newHarness(t, "", false, nil)
	h.port.Feed([]byte("U-Boot> "))

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for !strings.Contains(h.stdout.String(), "U-Boot> ") && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		h.input.Write([]byte{0x01})
	}()

	require.NoError(t, h.run(t))
	require.Contains(t, h.stdout.String(), "U-Boot> ")
	_, recv := h.runner.Session().GetStats()
	require.Equal(t, int64(8), recv)
}

func TestRunner_InputEOFEndsQuietly(t *testing.T) {
	h := newHarness(t, "xy", true, nil)

	require.NoError(t, h.run(t))
	require.Equal(t, []byte("xy"), h.port.Written())
	require.Empty(t, h.stderr.String())
}

func TestRunner_VerboseSummary(t *testing.T) {
	h := newHarness(t, "ok\x01", false, func(o *Options) {
		o.Verbose = true
		o.Name = "bench"
	})

	require.NoError(t, h.run(t))
	out := h.stdout.String()
	require.Contains(t, out, "Session: bench")
	require.Contains(t, out, "Bytes Sent: 2")
}

func TestRunner_OpenFailure(t *testing.T) {
	h := newHarness(t, "", true, nil)
	h.runner.open = func(serial.SerialConfig, serial.RetryConfig) (serial.Port, error) {
		return nil, errors.New("no such file or directory")
	}
	rawCalled := false
	h.runner.makeRaw = func(int) (func() error, error) {
		rawCalled = true
		return func() error { return nil }, nil
	}

	err := h.run(t)
	require.Error(t, err)
	require.Contains(t, err.Error(), "/dev/ttyFAKE")
	require.False(t, rawCalled)
	require.NotContains(t, h.stdout.String(), "Port Opened!")
}

func TestRunner_RawModeFailure(t *testing.T) {
	h := newHarness(t, "", true, nil)
	h.runner.makeRaw = func(int) (func() error, error) {
		return nil, errors.New("failed to enable raw mode: not supported")
	}

	err := h.run(t)
	require.ErrorContains(t, err, "raw mode")
	require.True(t, h.port.Closed())
}

func TestRunner_RestoresTerminal(t *testing.T) {
	h := newHarness(t, "\x01", false, nil)
	restored := 0
	h.runner.makeRaw = func(int) (func() error, error) {
		return func() error { restored++; return nil }, nil
	}

	require.NoError(t, h.run(t))
	require.Equal(t, 1, restored)
}

func TestRunner_PortClosedMidSession(t *testing.T) {
	h := newHarness(t, "", false, nil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		h.port.Close()
	}()

	err := h.run(t)
	require.ErrorIs(t, err, serial.ErrPortClosed)
}
