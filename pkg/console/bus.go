package console

import "sync"

// Change is published whenever a controller's visible state moves.
type Change struct {
	Source  string // "list", "editor", "assigner", "board", "auth"
	Notice  string // confirmation text, e.g. "Task deleted successfully!"
	Message string // error text to surface inline
}

// Bus fans changes out to every subscriber without blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Change]struct{}
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Change]struct{})}
}

// Publish delivers c to every subscriber with room in its buffer.
func (b *Bus) Publish(c Change) {
	if b == nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// subscriber is behind; views redraw from snapshots anyway
		}
	}
	b.mu.RUnlock()
}

// Subscribe returns a buffered channel receiving all future changes.
func (b *Bus) Subscribe() chan Change {
	ch := make(chan Change, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
