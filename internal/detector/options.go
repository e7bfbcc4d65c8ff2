package detector

import (
	"math/rand/v2"
	"sync"
)

// Option customises a scorer at construction time.
type Option func(*options)

type options struct {
	random func() float64
	clock  Clock
}

func newOptions(opts []Option) options {
	o := options{
		random: rand.Float64,
		clock:  defaultClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithRandom replaces the uniform [0, 1) source used for jitter and sampling.
func WithRandom(random func() float64) Option {
	return func(o *options) {
		if random != nil {
			o.random = random
		}
	}
}

// WithClock replaces the clock used to stamp verdicts.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// SeededRandom returns a goroutine-safe uniform [0, 1) source with a fixed seed.
// A zero seed keeps the process-wide non-deterministic source.
func SeededRandom(seed uint64) func() float64 {
	if seed == 0 {
		return rand.Float64
	}

	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

func uniform(random func() float64, lo, hi float64) float64 {
	return lo + random()*(hi-lo)
}
