// internal/clock/clock.go
package clock

import (
	"sync"
	"time"
)

// Clock separates the wall clock from a monotonic clock. Alarms are armed
// and recorded in the monotonic domain so adjustments to the system clock
// never move a pending fire; the wall clock is only consulted to compute
// weekly time-of-day targets and to present times to humans.
type Clock interface {
	Wall() time.Time
	Mono() time.Duration
}

type systemClock struct {
	base time.Time
}

var (
	sysOnce sync.Once
	sys     *systemClock
)

// System returns the process-wide real clock. Its monotonic reading is the
// elapsed time since the clock was first requested.
func System() Clock {
	sysOnce.Do(func() {
		sys = &systemClock{base: time.Now()}
	})
	return sys
}

func (c *systemClock) Wall() time.Time {
	return time.Now()
}

func (c *systemClock) Mono() time.Duration {
	// time.Since uses the runtime monotonic reading carried by base.
	return time.Since(c.base)
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu   sync.Mutex
	wall time.Time
	mono time.Duration
}

// NewFake creates a fake clock starting at the given wall time.
func NewFake(wall time.Time) *Fake {
	return &Fake{wall: wall}
}

func (f *Fake) Wall() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wall
}

func (f *Fake) Mono() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mono
}

// Advance moves both the wall and monotonic readings forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wall = f.wall.Add(d)
	f.mono += d
}

// SetWall adjusts only the wall reading, simulating a system clock change.
func (f *Fake) SetWall(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wall = t
}
