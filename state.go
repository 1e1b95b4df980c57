package stoplight

import (
	"context"
	"sync"
)

// phaseState holds the current phase of a cycler. It has exactly one writer
// (the cycling goroutine) and any number of readers. The zero phaseState is
// ready for use, with phase Red.
type phaseState struct {
	μ    sync.Mutex
	cur  Phase
	gen  uint64 // transition count, incremented by toggle
	next *edge  // lazily created by the first waiter
}

// An edge is the rendezvous for one transition. The chosen phase is written
// before ready is closed, and is read only after.
type edge struct {
	ready chan struct{}
	phase Phase
}

func (s *phaseState) get() Phase {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.cur
}

// toggle flips the phase, wakes any goroutines blocked in wait, and returns
// the new phase and its generation.
func (s *phaseState) toggle() (Phase, uint64) {
	s.μ.Lock()
	defer s.μ.Unlock()
	s.cur = s.cur.Toggle()
	s.gen++
	if e := s.next; e != nil {
		e.phase = s.cur
		close(e.ready)
		s.next = nil
	}
	return s.cur, s.gen
}

// wait blocks until the next toggle, ctx ends, or stop is closed, and returns
// the phase selected by that toggle.
func (s *phaseState) wait(ctx context.Context, stop <-chan struct{}) (Phase, error) {
	s.μ.Lock()
	if s.next == nil {
		s.next = &edge{ready: make(chan struct{})}
	}
	e := s.next
	s.μ.Unlock()

	select {
	case <-ctx.Done():
		return Red, ctx.Err()
	case <-stop:
		return Red, ErrStopped
	case <-e.ready:
		return e.phase, nil
	}
}
