// Package mailbox implements a single-slot, last-value-wins channel shared by
// producers and consumers.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is reported by Receive after the mailbox has been closed.
var ErrClosed = errors.New("mailbox is closed")

// A Mailbox is a level-triggered single-value buffer shared by producers and
// consumers. A producer calls [Mailbox.Send] to make a value available, and a
// consumer calls [Mailbox.Receive] to obtain it.
//
// A Mailbox keeps the newest value rather than the oldest: Sending replaces
// any value that has not yet been consumed. Send never blocks, and at most one
// value is ever pending.
//
// Each value sent is delivered to at most one receiver. If several goroutines
// are blocked in Receive when a value arrives, one of them (unspecified)
// obtains it and the rest continue to wait.
type Mailbox[T any] struct {
	// μ serializes senders and Close. Holding μ, a sender that has drained ch
	// is the only goroutine that can fill it, so the send cannot block.
	μ      sync.Mutex
	ch     chan T        // buffer of capacity 1
	done   chan struct{} // closed by Close
	closed bool
}

// New constructs a new empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1), done: make(chan struct{})}
}

// Send stores v as the only pending value in m, discarding any value that was
// not yet received. It reports whether v was stored (true) or discarded
// because m is closed (false). Send does not block.
func (m *Mailbox[T]) Send(v T) bool {
	m.μ.Lock()
	defer m.μ.Unlock()
	if m.closed {
		return false
	}
	select {
	case <-m.ch: // drop the stale value
	default:
	}
	m.ch <- v
	return true
}

// Ready returns a channel that delivers the pending value when one is
// available. Receiving from the channel consumes the value.
//
// Closing m does not close the channel; use Receive to observe closure.
func (m *Mailbox[T]) Ready() <-chan T { return m.ch }

// Receive blocks until a value is available, m is closed, or ctx ends. It
// removes and returns the pending value, or reports ErrClosed or the error
// that ended ctx.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-m.done:
		return zero, ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-m.done:
		return zero, ErrClosed
	case v := <-m.ch:
		return v, nil
	}
}

// Close closes m, which discards any pending value and causes all current and
// future calls to Receive to report ErrClosed. Subsequent sends are
// discarded. If m is already closed, Close returns ErrClosed.
func (m *Mailbox[T]) Close() error {
	m.μ.Lock()
	defer m.μ.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	close(m.done)
	select {
	case <-m.ch:
	default:
	}
	return nil
}
