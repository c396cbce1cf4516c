// Package queue implements the priority action queue and single-worker
// scheduler spec.md §4.7 describes: user-triggered actions enter at High
// priority, network-triggered actions at Urgent, and a single goroutine
// drains them in priority order, insertion order within a priority.
package queue

import (
	"container/heap"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Priority orders queued actions; higher values drain first.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Urgent
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Urgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// item is one queued closure plus its ordering key.
type item struct {
	id       uuid.UUID
	priority Priority
	seq      uint64
	fn       func()
}

// itemHeap is a container/heap.Interface ordering by priority (descending),
// then by sequence number (ascending) within a priority — FIFO inside each
// band, matching spec.md §4.7's "insertion order within a priority".
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(*item))
}
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a single-worker priority action queue. The worker holds the
// queue's own mutex only to insert or extract an item, never while running
// a queued closure (spec.md §4.7: "user closures must not hold it during
// I/O" — here, the queue's lock specifically).
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  itemHeap
	nextSeq uint64
	stopped bool

	log *logrus.Entry
}

// New constructs an empty queue. Call Run in its own goroutine to start
// draining it.
func New(log *logrus.Entry) *Queue {
	q := &Queue{log: log}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.items)
	return q
}

// Enqueue adds fn at the given priority and returns a correlation id that
// callers can thread through logs to trace this action end to end
// (SPEC_FULL.md §4.7).
func (q *Queue) Enqueue(priority Priority, fn func()) uuid.UUID {
	q.mu.Lock()
	id := uuid.New()
	it := &item{id: id, priority: priority, seq: q.nextSeq, fn: fn}
	q.nextSeq++
	heap.Push(&q.items, it)
	q.mu.Unlock()
	q.cond.Signal()
	if q.log != nil {
		q.log.WithFields(logrus.Fields{"action_id": id, "priority": priority}).Debug("action enqueued")
	}
	return id
}

// Run drains the queue until Stop is called, executing each closure with
// no queue lock held. Intended to be the body of the single action-worker
// goroutine (spec.md §5).
func (q *Queue) Run() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.stopped {
			q.mu.Unlock()
			return
		}
		it := heap.Pop(&q.items).(*item)
		q.mu.Unlock()

		if q.log != nil {
			q.log.WithFields(logrus.Fields{"action_id": it.id, "priority": it.priority}).Debug("action draining")
		}
		it.fn()
	}
}

// Stop signals Run to return once the queue is empty, waking it if it is
// currently blocked waiting for work.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the number of actions currently queued, used by callers that
// want to backpressure an upstream parser when the Urgent band grows too
// deep (spec.md §9 open question — no watermark is enforced here, callers
// decide their own policy from this count).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
