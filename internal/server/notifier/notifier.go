// Package notifier fans out source-change pings to connected SSE clients.
package notifier

import (
	"sync"
	"time"
)

// Change describes one observed modification of a watched source.
type Change struct {
	Path string
	At   time.Time
	Seq  uint64
}

// Notifier broadcasts changes to all subscribed listeners. Listeners
// should re-query the source when they receive one.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]struct{}
	seq       uint64
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Change]struct{}),
	}
}

// Subscribe returns a channel that receives changes. The caller must
// call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Change {
	ch := make(chan Change, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(ch chan Change) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Broadcast sends a change for path to every listener and returns it.
// A listener that still holds an unread change keeps the older one.
func (n *Notifier) Broadcast(path string) Change {
	n.mu.Lock()
	n.seq++
	c := Change{Path: path, At: time.Now(), Seq: n.seq}
	n.mu.Unlock()

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- c:
		default:
		}
	}
	return c
}

// Listeners returns the number of subscribed listeners.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
