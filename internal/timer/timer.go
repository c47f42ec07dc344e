// internal/timer/timer.go

// Package timer abstracts the platform alarm facility behind a minimal
// arm/cancel service. On a device this would wrap the OS alarm manager;
// the in-process implementation here backs it with stdlib timers.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/user/lector/internal/clock"
)

// Exactness states how precisely an alarm should be delivered.
type Exactness int

const (
	Exact   Exactness = iota // deliver at the requested instant, idle-tolerant
	Inexact                  // delivery may be deferred for batching
)

// Service arms one-shot alarms in the monotonic clock domain. Arming a
// token that is already armed replaces the pending alarm, so at most one
// alarm is ever outstanding per token.
type Service interface {
	Arm(token string, at time.Duration, exact Exactness, fire func()) error
	Cancel(token string) bool
	CancelMatching(prefix string) int
}

// inexactSlack is the delivery window granted to inexact alarms.
const inexactSlack = time.Minute

// ExactPolicy reports whether exact alarm delivery is currently permitted.
// On platforms that gate exact alarms behind a grant, this is where the
// grant check plugs in.
type ExactPolicy func() bool

// Timers is the in-process Service implementation.
type Timers struct {
	clock      clock.Clock
	allowExact ExactPolicy

	mu    sync.Mutex
	armed map[string]*time.Timer
}

// New creates a Service backed by stdlib timers. A nil policy always
// permits exact delivery.
func New(clk clock.Clock, allowExact ExactPolicy) *Timers {
	return &Timers{
		clock:      clk,
		allowExact: allowExact,
		armed:      make(map[string]*time.Timer),
	}
}

// Arm schedules fire at the monotonic instant at, replacing any pending
// alarm for the token. An instant already in the past fires immediately.
// When exact delivery is requested but denied by policy, the alarm is
// degraded to inexact rather than dropped.
func (t *Timers) Arm(token string, at time.Duration, exact Exactness, fire func()) error {
	delay := at - t.clock.Mono()
	if delay < 0 {
		delay = 0
	}

	if exact == Exact && t.allowExact != nil && !t.allowExact() {
		slog.Warn("exact alarm denied, degrading to inexact", "token", token)
		exact = Inexact
	}
	if exact == Inexact && delay > 0 {
		delay += inexactSlack
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if pending, ok := t.armed[token]; ok {
		pending.Stop()
	}
	t.armed[token] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.armed, token)
		t.mu.Unlock()
		fire()
	})
	return nil
}

// Cancel stops the pending alarm for the token. Returns false if none was armed.
func (t *Timers) Cancel(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, ok := t.armed[token]
	if !ok {
		return false
	}
	pending.Stop()
	delete(t.armed, token)
	return true
}

// CancelMatching stops every pending alarm whose token starts with prefix
// and returns the number cancelled. Used as a fallback for legacy token
// formats whose exact identity is no longer reconstructible.
func (t *Timers) CancelMatching(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for token, pending := range t.armed {
		if len(token) >= len(prefix) && token[:len(prefix)] == prefix {
			pending.Stop()
			delete(t.armed, token)
			n++
		}
	}
	return n
}

// Armed reports whether a timer is pending for the token.
func (t *Timers) Armed(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.armed[token]
	return ok
}
