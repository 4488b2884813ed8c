package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsimnet/nodes/pkg/nodes/queue"
)

func TestQueue_PushThenReceiveIsFIFO(t *testing.T) {
	q := queue.New()
	q.Push([]byte("first"))
	q.Push([]byte("second"))

	data, ok := q.Receive(time.Second)
	require.True(t, ok)
	require.Equal(t, "first", string(data))

	data, ok = q.Receive(time.Second)
	require.True(t, ok)
	require.Equal(t, "second", string(data))
}

func TestQueue_InsertGoesToTailNotHead(t *testing.T) {
	q := queue.New()
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	first, ok := q.Receive(time.Second)
	require.True(t, ok)
	require.Equal(t, "a", string(first))

	// a deferred message re-queued mid-drain must come back after
	// whatever was already behind it, not jump the line.
	q.Insert(first)

	second, ok := q.Receive(time.Second)
	require.True(t, ok)
	require.Equal(t, "b", string(second))

	third, ok := q.Receive(time.Second)
	require.True(t, ok)
	require.Equal(t, "a", string(third))
}

func TestQueue_ReceiveTimesOutWhenEmpty(t *testing.T) {
	q := queue.New()
	_, ok := q.Receive(20 * time.Millisecond)
	require.False(t, ok)
}

func TestQueue_ReceiveBlocksUntilPush(t *testing.T) {
	q := queue.New()
	var wg sync.WaitGroup
	wg.Add(1)
	var got []byte
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = q.Receive(2 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push([]byte("late"))
	wg.Wait()

	require.True(t, ok)
	require.Equal(t, "late", string(got))
}

func TestQueue_StopWakesBlockedReceiversAndIsIdempotent(t *testing.T) {
	q := queue.New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Receive(5 * time.Second)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()
	q.Stop() // must not panic or block on a second call

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Stop did not wake the blocked receiver")
	}
}

func TestQueue_StopDrainsRemainingItemsBeforeClosing(t *testing.T) {
	q := queue.New()
	q.Push([]byte("pending"))
	q.Stop()

	data, ok := q.Receive(time.Second)
	require.True(t, ok, "items queued before Stop must still be delivered")
	require.Equal(t, "pending", string(data))

	_, ok = q.Receive(time.Second)
	require.False(t, ok)
}

func TestQueue_PushAfterStopIsDiscarded(t *testing.T) {
	q := queue.New()
	q.Stop()
	q.Push([]byte("too late"))
	require.Equal(t, 0, q.Len())
}

func TestQueue_Len(t *testing.T) {
	q := queue.New()
	require.Equal(t, 0, q.Len())
	q.Push([]byte("x"))
	q.Push([]byte("y"))
	require.Equal(t, 2, q.Len())
	_, _ = q.Receive(time.Second)
	require.Equal(t, 1, q.Len())
}
