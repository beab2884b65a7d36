// Package events provides listener management and fan-out for the state
// transition events emitted by the capture loop and session controllers.
// Slow listeners lose events rather than blocking the emitter.
package events

import "sync"

// DefaultBuffer is the per-listener channel buffer.
const DefaultBuffer = 32

// Broadcaster fans events out to any number of listener channels.
type Broadcaster[T any] struct {
	mu        sync.RWMutex
	listeners []chan T
	buffer    int
	closed    bool
}

// NewBroadcaster creates a broadcaster with the given per-listener buffer.
// A non-positive buffer falls back to DefaultBuffer.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster[T]{buffer: buffer}
}

// AddListener registers and returns a new listener channel.
func (b *Broadcaster[T]) AddListener() chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters a listener channel and closes it.
func (b *Broadcaster[T]) RemoveListener(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Send delivers an event to all listeners. A listener with a full buffer
// is skipped.
func (b *Broadcaster[T]) Send(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Close closes all listener channels. Further Send calls are no-ops and
// further AddListener calls return closed channels.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}
