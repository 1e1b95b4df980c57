// Package intersection simulates vehicles arriving at a traffic light and
// waiting for it to turn green before they cross.
package intersection

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/creachadair/stoplight"
)

// A Recorder records the history of a simulation. A *journal.Journal
// satisfies this interface.
type Recorder interface {
	RecordTransition(ctx context.Context, p stoplight.Phase, at time.Time) error
	RecordCrossing(ctx context.Context, vehicle int, waited time.Duration, at time.Time) error
}

// Config configures a simulation.
type Config struct {
	Vehicles   int           // number of vehicles
	MinArrival time.Duration // shortest gap between crossing and next arrival
	MaxArrival time.Duration // bound on the gap between crossing and next arrival

	Recorder Recorder     // if nil, history is not recorded
	Logger   *slog.Logger // if nil, logs are discarded
}

// Stats summarize a completed simulation.
type Stats struct {
	Transitions int
	Crossings   int
	MaxWait     time.Duration
}

// Run runs a simulation against light until ctx ends or light stops, and
// reports what happened. The caller is responsible for starting and stopping
// light. Run returns an error only if recording fails.
func Run(ctx context.Context, light *stoplight.Cycler, cfg Config) (Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var μ sync.Mutex
	var stats Stats

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			p, err := light.Next(ctx)
			if err != nil {
				return
			}
			at := time.Now()
			log.Info("light changed", slog.String("phase", p.String()))
			μ.Lock()
			stats.Transitions++
			μ.Unlock()
			if cfg.Recorder != nil {
				if err := cfg.Recorder.RecordTransition(ctx, p, at); err != nil && ctx.Err() == nil {
					cancel(err)
					return
				}
			}
		}
	}()

	for id := 1; id <= cfg.Vehicles; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vlog := log.With(slog.Int("vehicle", id))
			for {
				if !sleep(ctx, arrival(cfg.MinArrival, cfg.MaxArrival)) {
					return
				}
				arrived := time.Now()
				vlog.Debug("waiting at light", slog.String("phase", light.Phase().String()))
				if err := light.WaitForGreen(ctx); err != nil {
					return
				}
				at := time.Now()
				waited := at.Sub(arrived)
				vlog.Info("crossing", slog.Duration("waited", waited))

				μ.Lock()
				stats.Crossings++
				stats.MaxWait = max(stats.MaxWait, waited)
				μ.Unlock()
				if cfg.Recorder != nil {
					if err := cfg.Recorder.RecordCrossing(ctx, id, waited, at); err != nil && ctx.Err() == nil {
						cancel(err)
						return
					}
				}
			}
		}()
	}

	// The observer exits when the light stops; make sure the vehicles do too.
	go func() {
		select {
		case <-light.Done():
			cancel(stoplight.ErrStopped)
		case <-ctx.Done():
		}
	}()
	wg.Wait()

	if err := context.Cause(ctx); err != nil && !isShutdown(err) {
		return stats, err
	}
	return stats, nil
}

// isShutdown reports whether err reflects an orderly end of the simulation
// rather than a failure.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, stoplight.ErrStopped)
}

func arrival(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// sleep waits for d or until ctx ends, and reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
