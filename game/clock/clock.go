// Package clock drives the simulation at a fixed logical rate independent of
// how often the host wakes up.
package clock

import (
	"context"
	"time"
)

// DefaultMaxCatchUp bounds how many ticks one wake-up may run before the
// remaining backlog is dropped
const DefaultMaxCatchUp = 5

// Loop accumulates real time and converts it into whole fixed-size ticks
type Loop struct {
	step       time.Duration
	maxCatchUp int
	acc        time.Duration
	dropped    uint64
	now        func() time.Time
}

// New creates a loop ticking rateHz times per second. Rates below 1 are treated as 1.
func New(rateHz int) *Loop {
	if rateHz < 1 {
		rateHz = 1
	}
	return &Loop{
		step:       time.Second / time.Duration(rateHz),
		maxCatchUp: DefaultMaxCatchUp,
		now:        time.Now,
	}
}

// Step returns the logical duration of one tick
func (l *Loop) Step() time.Duration {
	return l.step
}

// Dropped returns how many ticks were discarded because the host fell behind
func (l *Loop) Dropped() uint64 {
	return l.dropped
}

// Advance adds elapsed real time and returns how many ticks are due. Backlog
// beyond the catch-up bound is dropped rather than replayed.
func (l *Loop) Advance(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	l.acc += elapsed

	due := int(l.acc / l.step)
	l.acc -= time.Duration(due) * l.step

	if due > l.maxCatchUp {
		l.dropped += uint64(due - l.maxCatchUp)
		due = l.maxCatchUp
	}
	return due
}

// Run calls step once per due tick until ctx is cancelled or step returns false
func (l *Loop) Run(ctx context.Context, step func() bool) {
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	past := l.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.now()
			due := l.Advance(now.Sub(past))
			past = now
			for i := 0; i < due; i++ {
				if !step() {
					return
				}
			}
		}
	}
}
