// Package notifier fans out page-change pings to the SSE streams of a
// browser session.
package notifier

import "sync"

// Notifier delivers pings to listeners grouped by key (a browser session
// id). Listeners receive an empty struct and should re-render from the
// current page state.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[string]map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings published for key.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe(key string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	set, ok := n.listeners[key]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.listeners[key] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(key string, ch chan struct{}) {
	n.mu.Lock()
	if set, ok := n.listeners[key]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(n.listeners, key)
		}
	}
	n.mu.Unlock()
	close(ch)
}

// Publish pings every listener of key.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Publish(key string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners[key] {
		select {
		case ch <- struct{}{}:
		default:
			// Channel full; a render is already pending.
		}
	}
}

// Broadcast pings every listener of every key.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, set := range n.listeners {
		for ch := range set {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Listeners returns the number of open listeners for key.
func (n *Notifier) Listeners(key string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners[key])
}
