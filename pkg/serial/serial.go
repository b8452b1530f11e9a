// Package serial provides serial port communication functionality
package serial

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrWouldBlock is returned by TryRead and TryWrite when the device has no
// data or no buffer space right now. It is not a failure.
var ErrWouldBlock = errors.New("serial: operation would block")

// ErrPortClosed is returned by readiness waits once the port is closed
var ErrPortClosed = errors.New("serial: port closed")

// SerialConfig defines the configuration for serial port communication
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

var validParity = []string{"none", "odd", "even", "mark", "space"}

// Validate checks if the serial configuration is valid
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	if !slices.Contains(validBaudRates, c.BaudRate) {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", c.DataBits)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	if !slices.Contains(validParity, c.Parity) {
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

// String returns the settings in the usual "115200 8-N-1" form
func (c SerialConfig) String() string {
	parity := "N"
	if c.Parity != "" {
		parity = strings.ToUpper(c.Parity[:1])
	}
	return fmt.Sprintf("%d %d-%s-%d", c.BaudRate, c.DataBits, parity, c.StopBits)
}

// DefaultPort returns the conventional first serial port for the platform
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM1"
	}
	return "/dev/ttyUSB0"
}

// DefaultConfig returns a default serial configuration
func DefaultConfig() SerialConfig {
	return SerialConfig{
		Port:     DefaultPort(),
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  time.Second,
	}
}

// Port is an open serial device exposing readiness waits and non-blocking
// byte I/O. WaitReadable and WaitWritable block until the device is likely
// ready, the context ends, or the port is closed; readiness may be spurious,
// in which case the following Try call reports ErrWouldBlock.
type Port interface {
	WaitReadable(ctx context.Context) error
	TryRead(buf []byte) (int, error)
	WaitWritable(ctx context.Context) error
	TryWrite(data []byte) (int, error)
	Close() error
	Config() SerialConfig
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// GetDetailedPortsList returns detailed information about available serial ports
func GetDetailedPortsList() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get ports list: %w", err)
	}

	portInfos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		portInfos = append(portInfos, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		})
	}

	return portInfos, nil
}

// ListPorts returns a list of available serial ports on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get available ports: %w", err)
	}
	return ports, nil
}

// IsPortAvailable checks if a specific port is available
func IsPortAvailable(portName string) bool {
	ports, err := ListPorts()
	if err != nil {
		return false
	}
	return slices.Contains(ports, portName)
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying cause
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// RetryConfig defines configuration for connection retry logic
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxInterval:   2 * time.Second,
	}
}

// Validate checks if the retry configuration is valid
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// Next returns the interval to wait after waiting current
func (r RetryConfig) Next(current time.Duration) time.Duration {
	if current <= 0 {
		return r.RetryInterval
	}
	next := time.Duration(float64(current) * r.BackoffFactor)
	if next > r.MaxInterval {
		next = r.MaxInterval
	}
	return next
}

// opener is swapped in tests
var opener = Open

// OpenWithRetry opens the serial port, retrying recoverable failures with
// exponential back-off
func OpenWithRetry(config SerialConfig, retry RetryConfig) (Port, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry configuration: %w", err)
	}

	var lastErr error
	var interval time.Duration

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			interval = retry.Next(interval)
			time.Sleep(interval)
		}

		port, err := opener(config)
		if err == nil {
			return port, nil
		}

		lastErr = err
		if !isRecoverableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to open serial port after %d attempts: %w", retry.MaxRetries+1, lastErr)
}

// isRecoverableError determines if an error is recoverable and retry should be attempted
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	errorStr := strings.ToLower(err.Error())

	recoverablePatterns := []string{
		"device busy",
		"device or resource busy",
		"resource temporarily unavailable",
		"timeout",
		"no such device",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}

	return false
}
