package bus

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func TestSendPreservesOrder(t *testing.T) {
	b := New[int]()
	for i := 0; i < 1000; i++ {
		require.NoError(t, b.Send(i))
	}
	for i := 0; i < 1000; i++ {
		require.Equal(t, i, receive(t, b.Receive()))
	}
}

func TestPerProducerOrder(t *testing.T) {
	b := New[[2]int]()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = b.Send([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()
	next := make([]int, 4)
	for n := 0; n < 800; n++ {
		v := receive(t, b.Receive())
		require.Equal(t, next[v[0]], v[1], "producer %d out of order", v[0])
		next[v[0]]++
	}
}

func TestCloseDrainsThenCloses(t *testing.T) {
	b := New[string]()
	require.NoError(t, b.Send("a"))
	require.NoError(t, b.Send("b"))
	b.Close()
	b.Close()

	require.ErrorIs(t, b.Send("c"), ErrClosed)
	require.True(t, b.Closed())
	require.Equal(t, "a", receive(t, b.Receive()))
	require.Equal(t, "b", receive(t, b.Receive()))
	select {
	case _, ok := <-b.Receive():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("receive channel not closed")
	}
}

func TestSubscribeSeesOnlyFutureMessages(t *testing.T) {
	b := New[int]()
	b.Publish(1)
	sub := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())
	b.Publish(2)
	b.Publish(3)
	require.Equal(t, 2, receive(t, sub))
	require.Equal(t, 3, receive(t, sub))

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.Subscribers())
	_, ok := <-sub
	require.False(t, ok)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	b.Close()
	_, ok := <-sub
	require.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late
	require.False(t, ok)
	b.Publish(1)
}

func TestUnsubscribeReleasesGoroutines(t *testing.T) {
	b := New[int]()
	defer b.Close()
	before := runtime.NumGoroutine()

	for range 20 {
		sub := b.Subscribe()
		for i := range 200 {
			b.Publish(i)
		}
		b.Unsubscribe(sub)
	}

	require.Zero(t, b.Subscribers())
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestCloseReleasesUnreadSubscriptions(t *testing.T) {
	before := runtime.NumGoroutine()
	b := New[int]()
	for range 5 {
		b.Subscribe()
	}
	for i := range 200 {
		b.Publish(i)
	}
	b.Close()
	for range b.Receive() {
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}
