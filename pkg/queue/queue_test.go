package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, q *Queue) []byte {
	t.Helper()

	var got []byte
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b, ok := <-q.Out():
			if !ok {
				return got
			}
			got = append(got, b)
		case <-timeout:
			t.Fatalf("timeout draining queue, got %v so far", got)
		}
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := New()

	require.NoError(t, q.Push([]byte{0x1B, '[', 'A'}))
	require.NoError(t, q.Push([]byte("hi")))
	require.NoError(t, q.Push([]byte{0x0D}))
	q.Close()

	require.Equal(t, []byte{0x1B, '[', 'A', 'h', 'i', 0x0D}, drain(t, q))
}

func TestQueue_PushDoesNotWaitForConsumer(t *testing.T) {
	q := New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			_ = q.Push([]byte{byte(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked without a consumer")
	}

	q.Close()
	got := drain(t, q)
	require.Len(t, got, 10000)
	for i, b := range got {
		require.Equal(t, byte(i), b, "byte %d out of order", i)
	}
}

func TestQueue_CloseWithoutData(t *testing.T) {
	q := New()
	q.Close()
	q.Close()

	require.Empty(t, drain(t, q))
}

func TestQueue_PushAfterClose(t *testing.T) {
	q := New()
	q.Close()

	require.ErrorIs(t, q.Push([]byte{'x'}), ErrClosed)
}

func TestQueue_EmptyPush(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(nil))
	require.NoError(t, q.Push([]byte{}))
	q.Close()

	require.Empty(t, drain(t, q))
}

func TestQueue_PushCopiesInput(t *testing.T) {
	q := New()
	seq := []byte{'a', 'b'}
	require.NoError(t, q.Push(seq))
	seq[0] = 'z'
	q.Close()

	require.Equal(t, []byte{'a', 'b'}, drain(t, q))
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			require.NoError(t, q.Push([]byte{byte(i), byte(i)}))
		}
		q.Close()
	}()

	got := drain(t, q)
	wg.Wait()

	require.Len(t, got, 1000)
	for i := 0; i < 500; i++ {
		require.Equal(t, byte(i), got[2*i])
		require.Equal(t, byte(i), got[2*i+1])
	}
}
