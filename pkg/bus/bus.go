// Package bus is an unbounded, ordered mailbox with subscriber fan-out.
//
// One owner drains Receive; anything sent is delivered there in the order
// each producer sent it. The owner may Publish what it drained to
// subscribers, who only ever see messages published after they subscribed.
// Closing the bus is the shutdown signal for everything attached to it.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/smallnest/chanx"
)

// ErrClosed is returned by Send once the bus has been closed.
var ErrClosed = errors.New("bus closed")

const initCapacity = 64

type Bus[T any] struct {
	mu     sync.RWMutex
	closed bool
	main   *chanx.UnboundedChan[T]
	subs   []*subscription[T]
	done   chan struct{}
}

// subscription owns the context of its chanx pump, so dropping it frees the
// buffer even when nobody reads Out any more.
type subscription[T any] struct {
	ch     *chanx.UnboundedChan[T]
	cancel context.CancelFunc
}

func (s *subscription[T]) close() {
	close(s.ch.In)
	s.cancel()
}

func New[T any]() *Bus[T] {
	return &Bus[T]{
		main: chanx.NewUnboundedChan[T](context.Background(), initCapacity),
		done: make(chan struct{}),
	}
}

// Send enqueues v without waiting for the owner.
func (b *Bus[T]) Send(v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	b.main.In <- v
	return nil
}

// Receive is the owner's end. It is closed after Close, once every message
// sent before Close has been received.
func (b *Bus[T]) Receive() <-chan T {
	return b.main.Out
}

// Len is the number of messages waiting for the owner.
func (b *Bus[T]) Len() int {
	return b.main.Len()
}

// Subscribe creates a channel that receives every message published from
// now on.
func (b *Bus[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription[T]{ch: chanx.NewUnboundedChan[T](ctx, initCapacity), cancel: cancel}
	if b.closed {
		sub.close()
	} else {
		b.subs = append(b.subs, sub)
	}
	return sub.ch.Out
}

// Unsubscribe removes and closes a subscriber channel. Messages still
// buffered for it are dropped.
func (b *Bus[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.ch.Out == ch {
			sub.close()
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish hands v to every current subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		sub.ch.In <- v
	}
}

// Subscribers is the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops accepting messages and closes every subscription, dropping
// whatever subscribers have not read yet. It is safe to call more than once.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.main.In)
	for _, sub := range b.subs {
		sub.close()
	}
	b.subs = nil
	close(b.done)
}

// Done is closed when the bus is closed.
func (b *Bus[T]) Done() <-chan struct{} {
	return b.done
}

func (b *Bus[T]) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
