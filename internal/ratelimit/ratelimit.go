// Package ratelimit bounds how many calls an account makes per logical tick.
// Counters are keyed by tick, so they reset as soon as the clock advances.
package ratelimit

type key struct {
	action  string
	account string
	tick    uint64
}

// Limiter is not safe for concurrent use; the engine serializes it.
type Limiter struct {
	counts   map[key]int
	lastTick uint64
}

func New() *Limiter {
	return &Limiter{counts: make(map[key]int)}
}

// Allow reports whether account may perform one more action in tick.
func (l *Limiter) Allow(action, account string, tick uint64, max int) bool {
	return l.counts[key{action, account, tick}] < max
}

// Commit records one admitted action. Counters for earlier ticks are dropped
// the first time a later tick is seen.
func (l *Limiter) Commit(action, account string, tick uint64) {
	if tick > l.lastTick {
		for k := range l.counts {
			if k.tick < tick {
				delete(l.counts, k)
			}
		}
		l.lastTick = tick
	}
	l.counts[key{action, account, tick}]++
}

// Count returns the admitted actions for account in tick.
func (l *Limiter) Count(action, account string, tick uint64) int {
	return l.counts[key{action, account, tick}]
}
