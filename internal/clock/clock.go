// Package clock provides the platform's logical tick, the monotonic counter
// that stands in for block height.
package clock

import "sync/atomic"

// Clock reports the current tick.
type Clock interface {
	Now() uint64
}

// Logical is a monotonic tick counter safe for concurrent use.
type Logical struct {
	tick atomic.Uint64
}

func NewLogical(start uint64) *Logical {
	l := &Logical{}
	l.tick.Store(start)
	return l
}

func (l *Logical) Now() uint64 { return l.tick.Load() }

// Advance moves the clock forward by n ticks and returns the new tick.
func (l *Logical) Advance(n uint64) uint64 { return l.tick.Add(n) }
