// Package stoplight implements a traffic light whose phase cycles between red
// and green at randomized intervals, and on which any number of goroutines
// can wait for the light to turn green.
package stoplight

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/creachadair/stoplight/mailbox"
)

// ErrStopped is reported by waiting methods of a [Cycler] that is stopped
// before the condition they wait for occurs.
var ErrStopped = errors.New("cycler is stopped")

// A Cycler owns the phase of a traffic light. Once started, a background
// goroutine toggles the phase after each randomly-chosen interval, and
// publishes the current phase on every tick of its polling loop, whether or
// not the phase just changed.
//
// A new Cycler is Red and idle. Call [Cycler.Start] to begin cycling, and
// [Cycler.Stop] to end it. The methods of a Cycler are safe for concurrent use
// by multiple goroutines.
type Cycler struct {
	opts  settings
	state phaseState
	mbox  *mailbox.Mailbox[Phase]
	done  chan struct{} // closed when the cycling goroutine exits

	μ       sync.Mutex
	started bool
	cancel  context.CancelFunc // set by Start
}

// New constructs a new idle Cycler with the given options. A nil opts is
// equivalent to an empty Options value. New panics if opts specifies an
// invalid interval range.
func New(opts *Options) *Cycler {
	return &Cycler{
		opts: opts.resolve(),
		mbox: mailbox.New[Phase](),
		done: make(chan struct{}),
	}
}

// Phase returns the current phase of c.
func (c *Cycler) Phase() Phase { return c.state.get() }

// Start starts the cycling goroutine, and reports whether it did so. Only the
// first call to Start, if it precedes any call to Stop, has effect; later
// calls report false. The goroutine runs until ctx ends or c is stopped.
func (c *Cycler) Start(ctx context.Context) bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.started {
		return false
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
	return true
}

// Stop stops c and blocks until its cycling goroutine (if any) has exited.
// Goroutines blocked waiting on c are released with ErrStopped. Stop may be
// called any number of times, including before Start; once stopped, c cannot
// be restarted.
func (c *Cycler) Stop() {
	c.μ.Lock()
	if !c.started {
		c.started = true
		c.finish()
	} else if c.cancel != nil {
		c.cancel()
	}
	c.μ.Unlock()
	<-c.done
}

// Done returns a channel that is closed once c has stopped, either because
// Stop was called or because the context passed to Start ended.
func (c *Cycler) Done() <-chan struct{} { return c.done }

// WaitForGreen blocks until c publishes Green, c is stopped, or ctx ends.
// It reports nil when Green was observed. If c was never started, and is
// never stopped, WaitForGreen blocks until ctx ends.
func (c *Cycler) WaitForGreen(ctx context.Context) error { return c.WaitFor(ctx, Green) }

// WaitFor blocks until c publishes p, c is stopped, or ctx ends. Published
// values other than p are consumed and discarded.
func (c *Cycler) WaitFor(ctx context.Context, p Phase) error {
	for {
		got, err := c.mbox.Receive(ctx)
		if errors.Is(err, mailbox.ErrClosed) {
			return ErrStopped
		} else if err != nil {
			return err
		}
		if got == p {
			return nil
		}
	}
}

// Next blocks until the next phase transition of c, and reports the phase
// that transition entered. Unlike WaitFor, every transition is delivered to
// all goroutines waiting in Next at the time it occurs.
func (c *Cycler) Next(ctx context.Context) (Phase, error) {
	return c.state.wait(ctx, c.done)
}

// run is the cycling loop. It is executed by exactly one goroutine per Cycler.
func (c *Cycler) run(ctx context.Context) {
	defer c.finish()

	log := c.opts.log
	tick := time.NewTicker(c.opts.tick)
	defer tick.Stop()

	last := time.Now()
	hold := c.opts.interval()
	log.Debug("cycler started", slog.String("phase", c.Phase().String()), slog.Duration("hold", hold))
	c.mbox.Send(c.Phase())

	for {
		select {
		case <-ctx.Done():
			log.Debug("cycler stopped", slog.String("phase", c.Phase().String()), slog.Any("reason", context.Cause(ctx)))
			return
		case now := <-tick.C:
			if elapsed := now.Sub(last); elapsed > hold {
				p, gen := c.state.toggle()
				log.Debug("phase changed", slog.String("phase", p.String()),
					slog.Uint64("transition", gen), slog.Duration("after", elapsed))
				last = now
				hold = c.opts.interval()
			}
			c.mbox.Send(c.Phase())
		}
	}
}

// finish releases the resources of c. It is called exactly once, either by
// the cycling goroutine as it exits or by a Stop that precedes Start.
func (c *Cycler) finish() {
	c.mbox.Close()
	close(c.done)
}
