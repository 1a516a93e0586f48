package service

import "sync"

// Bus is a fan-out pub/sub. Publishing never blocks: a subscriber whose
// buffer is full is unsubscribed and its channel closed, so it sees the end
// of its stream instead of a gap in it.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriptions buffer up to buffer messages.
func NewBus[T any](buffer int) *Bus[T] {
	return &Bus[T]{subs: make(map[chan T]struct{}), buffer: buffer}
}

// Publish sends v to all subscribers and reports how many received it.
// Subscribers that cannot take v are evicted.
func (b *Bus[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for ch := range b.subs {
		select {
		case ch <- v:
			n++
		default:
			delete(b.subs, ch)
			close(ch)
		}
	}
	return n
}

// Subscribe returns a buffered channel that receives messages. On a closed
// bus the channel is already closed.
func (b *Bus[T]) Subscribe() chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Drop closes every current subscription. The bus stays open.
func (b *Bus[T]) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked()
}

// Closed reports whether Close was called.
func (b *Bus[T]) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Close closes every subscription and rejects new ones.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.dropLocked()
}

func (b *Bus[T]) dropLocked() {
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
