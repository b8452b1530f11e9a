//go:build linux

package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// pollIntervalMs bounds each poll(2) call so waiters notice context
// cancellation without a wakeup from Close.
const pollIntervalMs = 100

// TTYPort is a Linux tty opened non-blocking, with readiness reported by
// poll(2). A self-pipe wakes blocked waiters on Close.
type TTYPort struct {
	fd     int
	config SerialConfig

	pipeR int
	pipeW int

	done      chan struct{}
	closeOnce sync.Once
}

// OpenTTY opens and configures the tty named by config.Port
func OpenTTY(config SerialConfig) (*TTYPort, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fd, err := unix.Open(config.Port, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, NewSerialError("open", config.Port, err)
	}

	if err := configureTermios(fd, config); err != nil {
		unix.Close(fd)
		return nil, NewSerialError("configure", config.Port, err)
	}

	var pipeFds [2]int
	if err := unix.Pipe2(pipeFds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, NewSerialError("open", config.Port, fmt.Errorf("pipe: %w", err))
	}

	return &TTYPort{
		fd:     fd,
		config: config,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
		done:   make(chan struct{}),
	}, nil
}

// configureTermios puts the tty in raw mode with the configured line settings
func configureTermios(fd int, config SerialConfig) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	termios.Cflag |= unix.CREAD | unix.CLOCAL
	termios.Cflag |= dataBitsToUnix(config.DataBits)
	termios.Cflag |= parityToUnix(config.Parity)
	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	baud := baudToUnix(config.BaudRate)
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// WaitReadable blocks until the tty has input
func (p *TTYPort) WaitReadable(ctx context.Context) error {
	return p.wait(ctx, unix.POLLIN)
}

// WaitWritable blocks until the tty accepts output
func (p *TTYPort) WaitWritable(ctx context.Context) error {
	return p.wait(ctx, unix.POLLOUT)
}

func (p *TTYPort) wait(ctx context.Context, events int16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-p.done:
			return ErrPortClosed
		default:
		}

		fds := []unix.PollFd{
			{Fd: int32(p.fd), Events: events},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, pollIntervalMs)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return NewSerialError("poll", p.config.Port, err)
		}
		if n == 0 {
			continue
		}

		if fds[1].Revents != 0 {
			return ErrPortClosed
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return NewSerialError("poll", p.config.Port, unix.EBADF)
		}
		// POLLERR and POLLHUP are reported as ready; the next read or
		// write surfaces the actual condition.
		if fds[0].Revents&(events|unix.POLLERR|unix.POLLHUP) != 0 {
			return nil
		}
	}
}

// TryRead reads whatever input is available without blocking
func (p *TTYPort) TryRead(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := unix.Read(p.fd, buf)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return 0, ErrWouldBlock
	}
	if err != nil {
		return 0, NewSerialError("read", p.config.Port, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// TryWrite writes as much of data as the tty accepts without blocking
func (p *TTYPort) TryWrite(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	n, err := unix.Write(p.fd, data)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return 0, ErrWouldBlock
	}
	if err != nil {
		return 0, NewSerialError("write", p.config.Port, err)
	}
	return n, nil
}

// Config returns the configuration the port was opened with
func (p *TTYPort) Config() SerialConfig {
	return p.config
}

// Close closes the tty and wakes any blocked waiters.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *TTYPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		unix.Write(p.pipeW, []byte{1})
		if cerr := unix.Close(p.fd); cerr != nil {
			err = NewSerialError("close", p.config.Port, cerr)
		}
		unix.Close(p.pipeW)
		unix.Close(p.pipeR)
	})
	return err
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 1200:
		return unix.B1200
	case 2400:
		return unix.B2400
	case 4800:
		return unix.B4800
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	case 460800:
		return unix.B460800
	case 921600:
		return unix.B921600
	default:
		return unix.B115200
	}
}

func dataBitsToUnix(bits int) uint32 {
	switch bits {
	case 5:
		return unix.CS5
	case 6:
		return unix.CS6
	case 7:
		return unix.CS7
	default:
		return unix.CS8
	}
}

func parityToUnix(parity string) uint32 {
	switch parity {
	case "odd":
		return unix.PARENB | unix.PARODD
	case "even":
		return unix.PARENB
	case "mark":
		return unix.PARENB | unix.CMSPAR | unix.PARODD
	case "space":
		return unix.PARENB | unix.CMSPAR
	default:
		return 0
	}
}
