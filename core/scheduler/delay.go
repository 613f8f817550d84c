package scheduler

import (
	"math/rand/v2"
	"sync"
	"time"
)

// ExactTimingFallback is the delay, in seconds, used for an ExactTiming
// recording whose timing list is empty or unset.
const ExactTimingFallback = 1.0

// Resolver draws delays and random picks. It is safe for concurrent use.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver wraps rng; a nil rng gets a time-seeded PCG source.
func NewResolver(rng *rand.Rand) *Resolver {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return &Resolver{rng: rng}
}

// ResolveDelay returns a uniform value in [lo, hi) where lo and hi are the
// ordered bounds of minDelay and maxDelay. Negative bounds count as zero.
func (r *Resolver) ResolveDelay(minDelay, maxDelay float64) float64 {
	lo, hi := minDelay, maxDelay
	if lo > hi {
		lo, hi = hi, lo
	}
	lo, hi = max(lo, 0), max(hi, 0)
	if hi == lo {
		return lo
	}

	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()
	return lo + f*(hi-lo)
}

// ResolveExactDelay picks one entry of timings uniformly, or ExactTimingFallback when empty.
func (r *Resolver) ResolveExactDelay(timings []float64) float64 {
	if len(timings) == 0 {
		return ExactTimingFallback
	}
	d := timings[r.Pick(len(timings))]
	if d < 0 {
		return 0
	}
	return d
}

// Pick returns a uniform index in [0, n). n must be positive.
func (r *Resolver) Pick(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
