package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrdering(t *testing.T) {
	q := New(nil)
	var mu sync.Mutex
	var order []string

	var wg sync.WaitGroup
	wg.Add(4)
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			wg.Done()
		}
	}

	q.Enqueue(Low, record("low"))
	q.Enqueue(Normal, record("normal"))
	q.Enqueue(High, record("high"))
	q.Enqueue(Urgent, record("urgent"))

	go q.Run()
	wg.Wait()
	q.Stop()

	require.Equal(t, []string{"urgent", "high", "normal", "low"}, order)
}

func TestFIFOWithinPriority(t *testing.T) {
	q := New(nil)
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(High, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	go q.Run()
	wg.Wait()
	q.Stop()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
