package observer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncExecutor runs callbacks inline, useful for deterministic assertions.
type syncExecutor struct{}

func (syncExecutor) Go(fn func()) { fn() }

func TestNotifyDeliversToAllSubscribers(t *testing.T) {
	reg := NewRegistry[int](syncExecutor{})
	var mu sync.Mutex
	var got []int

	reg.Subscribe(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	reg.Subscribe(func(v int) {
		mu.Lock()
		got = append(got, v*10)
		mu.Unlock()
	})

	reg.Notify(3)

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []int{3, 30}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	reg := NewRegistry[int](syncExecutor{})
	var calls int
	token := reg.Subscribe(func(int) { calls++ })
	reg.Unsubscribe(token)
	reg.Notify(1)
	require.Equal(t, 0, calls)
}

func TestGoroutineExecutorDoesNotBlockCaller(t *testing.T) {
	reg := NewRegistry[int](GoroutineExecutor{})
	done := make(chan struct{})
	reg.Subscribe(func(int) {
		time.Sleep(20 * time.Millisecond)
		close(done)
	})
	reg.Notify(1)
	select {
	case <-done:
		t.Fatal("Notify should not block until the subscriber finishes")
	default:
	}
	<-done
}
