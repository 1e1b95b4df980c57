package stoplight

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMinInterval is the shortest time a phase is held by default.
	DefaultMinInterval = 4 * time.Second

	// DefaultMaxInterval bounds the time a phase is held by default.
	DefaultMaxInterval = 6 * time.Second

	// DefaultTick is the default polling quantum of the cycling loop.
	DefaultTick = time.Millisecond
)

// Options control the behaviour of a [Cycler]. A nil *Options is ready for
// use and provides default values as described.
type Options struct {
	// The time each phase is held is drawn uniformly from the half-open range
	// [MinInterval, MaxInterval). If both are zero, the defaults are used. If
	// only MinInterval is set, MaxInterval defaults to the same value.
	MinInterval time.Duration
	MaxInterval time.Duration

	// Tick is the polling quantum of the cycling loop. The loop publishes the
	// current phase once per tick. If zero, DefaultTick is used.
	Tick time.Duration

	// If non-nil, draw intervals from this source. It is used only by the
	// cycling goroutine. If nil, the global source from math/rand/v2 is used.
	Rand *rand.Rand

	// If non-nil, write debug logs here. If nil, logs are discarded.
	Logger *slog.Logger
}

// settings are the resolved values of an Options.
type settings struct {
	lo, hi time.Duration
	tick   time.Duration
	rng    *rand.Rand
	log    *slog.Logger
}

func (o *Options) resolve() settings {
	s := settings{lo: DefaultMinInterval, hi: DefaultMaxInterval, tick: DefaultTick}
	if o == nil {
		s.log = slog.New(slog.DiscardHandler)
		return s
	}
	if o.MinInterval != 0 || o.MaxInterval != 0 {
		s.lo, s.hi = o.MinInterval, o.MaxInterval
		if s.hi == 0 {
			s.hi = s.lo
		}
	}
	if o.Tick != 0 {
		s.tick = o.Tick
	}
	switch {
	case s.lo <= 0:
		panic(fmt.Sprintf("stoplight: minimum interval %v is not positive", s.lo))
	case s.hi < s.lo:
		panic(fmt.Sprintf("stoplight: maximum interval %v < minimum %v", s.hi, s.lo))
	case s.tick < 0:
		panic(fmt.Sprintf("stoplight: negative tick %v", s.tick))
	}
	s.rng = o.Rand
	s.log = o.Logger
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// interval returns the next randomly-chosen phase duration.
func (s settings) interval() time.Duration {
	if s.hi == s.lo {
		return s.lo
	}
	span := int64(s.hi - s.lo)
	if s.rng != nil {
		return s.lo + time.Duration(s.rng.Int64N(span))
	}
	return s.lo + time.Duration(rand.Int64N(span))
}
