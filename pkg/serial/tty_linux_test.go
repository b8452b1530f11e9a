//go:build linux

package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T) (*TTYPort, func([]byte), func() []byte) {
	t.Helper()

	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	config := DefaultConfig()
	config.Port = slave.Name()
	port, err := OpenTTY(config)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	write := func(b []byte) {
		_, err := master.Write(b)
		require.NoError(t, err)
	}
	read := func() []byte {
		buf := make([]byte, 128)
		n, err := master.Read(buf)
		require.NoError(t, err)
		return buf[:n]
	}
	return port, write, read
}

func TestTTYPort_ReadAfterReadable(t *testing.T) {
	port, write, _ := openPTY(t)

	write([]byte("Hi"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, port.WaitReadable(ctx))

	var got []byte
	buf := make([]byte, 32)
	deadline := time.Now().Add(time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		n, err := port.TryRead(buf)
		if errors.Is(err, ErrWouldBlock) {
			require.NoError(t, port.WaitReadable(ctx))
			continue
		}
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, []byte("Hi"), got)
}

func TestTTYPort_TryReadWouldBlock(t *testing.T) {
	port, _, _ := openPTY(t)

	_, err := port.TryRead(make([]byte, 8))
	require.ErrorIs(t, err, ErrWouldBlock)
}

func TestTTYPort_WriteReachesPeer(t *testing.T) {
	port, _, read := openPTY(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, port.WaitWritable(ctx))

	n, err := port.TryWrite([]byte{0x1B, '[', 'A'})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, []byte{0x1B, '[', 'A'}, read())
}

func TestTTYPort_WaitReadableHonoursContext(t *testing.T) {
	port, _, _ := openPTY(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := port.WaitReadable(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTTYPort_CloseWakesWaiter(t *testing.T) {
	port, _, _ := openPTY(t)

	errc := make(chan error, 1)
	go func() { errc <- port.WaitReadable(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, port.Close())
	require.NoError(t, port.Close())

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("WaitReadable did not return after Close")
	}
}

func TestOpenTTY_Errors(t *testing.T) {
	config := DefaultConfig()
	config.Port = "/dev/does-not-exist-rawserial"
	_, err := OpenTTY(config)
	require.Error(t, err)

	var serr *SerialError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "open", serr.Operation)

	config.BaudRate = 1234
	_, err = OpenTTY(config)
	require.Error(t, err)
}

func TestTermiosHelpers(t *testing.T) {
	require.NotEqual(t, baudToUnix(9600), baudToUnix(115200))
	require.Equal(t, baudToUnix(115200), baudToUnix(12345))
	require.Equal(t, dataBitsToUnix(8), dataBitsToUnix(0))
	require.Zero(t, parityToUnix("none"))
	require.NotZero(t, parityToUnix("even"))
}
