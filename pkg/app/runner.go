package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rawserial/pkg/debuglog"
	"rawserial/pkg/input"
	"rawserial/pkg/pump"
	"rawserial/pkg/queue"
	"rawserial/pkg/serial"
)

// Options configures a session
type Options struct {
	// Name labels the session in the summary; defaults to the port name
	Name    string
	Serial  serial.SerialConfig
	Retry   serial.RetryConfig
	Pump    pump.Config
	Verbose bool
	Log     *debuglog.Logger

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns options for an interactive session on the
// process's standard streams
func DefaultOptions() Options {
	return Options{
		Serial: serial.DefaultConfig(),
		Retry:  serial.DefaultRetryConfig(),
		Pump:   pump.DefaultConfig(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Runner runs one interactive session
type Runner struct {
	opts    Options
	session *Session

	open    func(serial.SerialConfig, serial.RetryConfig) (serial.Port, error)
	makeRaw func(fd int) (func() error, error)
}

// NewRunner creates a new session runner
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.Serial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry configuration: %w", err)
	}

	if opts.Name == "" {
		opts.Name = opts.Serial.Port
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Pump.Log == nil {
		opts.Pump.Log = opts.Log
	}

	return &Runner{
		opts:    opts,
		open:    serial.OpenWithRetry,
		makeRaw: input.MakeRaw,
	}, nil
}

// Session returns the session of the last Run, or nil before Run
func (r *Runner) Session() *Session {
	return r.session
}

// Run opens the port, puts the terminal in raw mode and pumps bytes until
// the end-of-session key is pressed. The terminal is restored before Run
// returns.
func (r *Runner) Run() error {
	cfg := r.opts.Serial
	log := r.opts.Log

	port, err := r.open(cfg, r.opts.Retry)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	defer port.Close()
	log.Printf("opened %s at %s", cfg.Port, cfg)

	fmt.Fprintf(r.opts.Stdout, "{%s, %d} Port Opened!\n", cfg.Port, cfg.BaudRate)

	restore, err := r.makeRaw(int(r.opts.Stdin.Fd()))
	if err != nil {
		return err
	}

	r.session = NewSession(r.opts.Name, cfg)
	q := queue.New()

	capture := &input.Capture{
		Source: input.NewDecoder(r.opts.Stdin),
		Queue:  q,
		Log:    log,
	}
	go capture.Run()

	// SIGTERM and friends end the session the same way the exit key does
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("received %v, closing session", sig)
			q.Close()
		case <-done:
		}
	}()

	p := pump.New(port, r.opts.Stdout, r.opts.Pump)
	pumpErr := p.Run(q.Out())
	q.Close()

	if err := restore(); err != nil {
		log.Printf("%v", err)
		fmt.Fprintf(r.opts.Stderr, "Error: %v\n", err)
	}

	r.session.UpdateStats(p.BytesSent(), p.BytesReceived())
	r.session.End()
	log.Printf("session ended: %d bytes sent, %d received", p.BytesSent(), p.BytesReceived())

	if cerr := capture.Err(); cerr != nil && !errors.Is(cerr, io.EOF) {
		fmt.Fprintf(r.opts.Stderr, "Error: %v\r\n", cerr)
	}

	if r.opts.Verbose {
		r.session.WriteSummary(r.opts.Stdout)
	}

	if pumpErr != nil {
		return fmt.Errorf("session on %s failed: %w", cfg.Port, pumpErr)
	}
	return nil
}

// RunInteractive runs a session with opts, filling unset streams from the
// process
func RunInteractive(opts Options) error {
	runner, err := NewRunner(opts)
	if err != nil {
		return err
	}
	return runner.Run()
}
