// Package observer implements the per-event-class subscriber registries
// spec.md §4.10 describes: one registry per event class, delivery always
// dispatched onto a caller-supplied background executor so callbacks never
// run with a core lock held and never block the action worker (spec.md §9
// "Observer delivery thread").
package observer

import "sync"

// Executor runs a callback in the background. Host applications implement
// this to marshal delivery onto whatever thread their UI toolkit requires
// (spec.md §9: "reproduce this indirection so that UI toolkits can marshal
// onto their own threads").
type Executor interface {
	Go(func())
}

// GoroutineExecutor is the default Executor: each call to Go runs in its
// own goroutine. Suitable for tests and headless embedders.
type GoroutineExecutor struct{}

// Go implements Executor.
func (GoroutineExecutor) Go(fn func()) { go fn() }

// Registry is a thread-safe set of callbacks for one event class,
// parameterized on the event payload type T.
type Registry[T any] struct {
	mu        sync.Mutex
	executor  Executor
	callbacks map[int]func(T)
	nextID    int
}

// NewRegistry constructs an empty registry delivering through executor.
func NewRegistry[T any](executor Executor) *Registry[T] {
	return &Registry[T]{executor: executor, callbacks: make(map[int]func(T))}
}

// Subscribe adds cb and returns a token to later Unsubscribe it.
func (r *Registry[T]) Subscribe(cb func(T)) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.callbacks[id] = cb
	return id
}

// Unsubscribe removes a previously subscribed callback.
func (r *Registry[T]) Unsubscribe(token int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, token)
}

// Notify delivers event to every current subscriber, each on its own
// executor invocation so one slow subscriber cannot stall another.
func (r *Registry[T]) Notify(event T) {
	r.mu.Lock()
	cbs := make([]func(T), 0, len(r.callbacks))
	for _, cb := range r.callbacks {
		cbs = append(cbs, cb)
	}
	r.mu.Unlock()

	for _, cb := range cbs {
		cb := cb
		r.executor.Go(func() { cb(event) })
	}
}

// ConnectionStatus is the payload for the connection-status event class
// (spec.md §4.9).
type ConnectionStatus int

const (
	Connecting ConnectionStatus = iota
	Connected
	Disconnected
)

// BlockEvent is the payload for the block event class (spec.md §4.6:
// "notify the block observer (with rollback = false/true)").
type BlockEvent struct {
	Account  [32]byte
	Hash     [32]byte
	Rollback bool
}

// ReceivableEvent is the payload for the receivable event class (spec.md
// §4.8 process_receivable_info: "persist and notify observer").
type ReceivableEvent struct {
	Destination [32]byte
	SourceHash  [32]byte
}

// Observers bundles one registry per event class spec.md §4.10 names:
// connection status, block, selected-account, selected-wallet, lock,
// password-set, receivable.
type Observers struct {
	Status           *Registry[ConnectionStatus]
	Block            *Registry[BlockEvent]
	SelectedAccount  *Registry[uint32]
	SelectedWallet   *Registry[uint32]
	Lock             *Registry[uint32] // wallet id that was locked
	PasswordSet      *Registry[uint32] // wallet id whose password changed
	Receivable       *Registry[ReceivableEvent]
}

// New constructs every registry bundled in Observers, all delivering
// through the same executor.
func New(executor Executor) *Observers {
	return &Observers{
		Status:          NewRegistry[ConnectionStatus](executor),
		Block:           NewRegistry[BlockEvent](executor),
		SelectedAccount: NewRegistry[uint32](executor),
		SelectedWallet:  NewRegistry[uint32](executor),
		Lock:            NewRegistry[uint32](executor),
		PasswordSet:     NewRegistry[uint32](executor),
		Receivable:      NewRegistry[ReceivableEvent](executor),
	}
}
