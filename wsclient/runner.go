// Package wsclient is the client-side WebSocket I/O runner spec.md §4.9
// describes: a persistent connection to the remote node, JSON framing, a
// connection-status observer, and a self-rescheduling 5-second reconnect
// timer (spec.md §9 "Ongoing"-style task).
package wsclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AltonMatrix/Raicoin/observer"
)

const reconnectInterval = 5 * time.Second

// ErrNotConnected is returned by Send when no connection is currently
// established; the caller's action pipeline should treat this like any
// other publish failure and rely on the next sync cycle to catch up.
var ErrNotConnected = errors.New("wsclient: not connected")

// Runner owns one WebSocket connection to the remote node and exposes
// Send plus a connection-status observer (spec.md §4.9).
type Runner struct {
	url string
	log *logrus.Entry
	obs *observer.Observers

	onConnected func()
	onMessage   func(json.RawMessage)

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New constructs a runner for url. onConnected is invoked (not on the
// runner's own goroutine's critical section, but after the connection is
// established) so the core can re-subscribe every owned account and run a
// sync cycle, per spec.md §4.9. onMessage receives every inbound frame for
// the core's dispatch table (spec.md §4.8).
func New(url string, obs *observer.Observers, onConnected func(), onMessage func(json.RawMessage), log *logrus.Entry) *Runner {
	return &Runner{
		url:         url,
		log:         log,
		obs:         obs,
		onConnected: onConnected,
		onMessage:   onMessage,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run drives the connect/read/reconnect loop until Stop is called. Intended
// to run on its own goroutine (spec.md §5 "I/O-runner thread").
func (r *Runner) Run() {
	defer close(r.done)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		r.obs.Status.Notify(observer.Connecting)
		conn, _, err := websocket.DefaultDialer.Dial(r.url, nil)
		if err != nil {
			if r.log != nil {
				r.log.WithError(err).Warn("websocket dial failed")
			}
			r.obs.Status.Notify(observer.Disconnected)
			if r.waitOrStop(reconnectInterval) {
				return
			}
			continue
		}

		r.mu.Lock()
		r.conn = conn
		r.mu.Unlock()
		r.obs.Status.Notify(observer.Connected)
		if r.onConnected != nil {
			r.onConnected()
		}

		r.readLoop(conn)

		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		r.obs.Status.Notify(observer.Disconnected)

		if r.waitOrStop(reconnectInterval) {
			return
		}
	}
}

func (r *Runner) waitOrStop(d time.Duration) (stopped bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return true
	case <-timer.C:
		return false
	}
}

func (r *Runner) readLoop(conn *websocket.Conn) {
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			if r.log != nil {
				r.log.WithError(err).Debug("websocket read ended")
			}
			return
		}
		if r.onMessage != nil {
			r.onMessage(raw)
		}
	}
}

// Send JSON-encodes v and writes it as one WebSocket text frame. gorilla's
// Conn permits at most one concurrent writer, hence the mutex.
func (r *Runner) Send(v interface{}) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return conn.WriteJSON(v)
}

// Stop closes the connection and stops the reconnect loop, then blocks
// until Run has returned.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	conn := r.conn
	r.mu.Unlock()

	close(r.stopCh)
	if conn != nil {
		conn.Close()
	}
	<-r.done
}
