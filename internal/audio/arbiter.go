// internal/audio/arbiter.go

// Package audio mediates exclusive access to the audio output resource.
// Detection of other audio streams and telephony activity is delegated to
// registered probes, which is where a platform backing plugs in.
package audio

import (
	"log/slog"
	"sync"
)

// Probe reports whether some external activity is currently happening.
type Probe func() bool

// Arbiter tracks ownership of the audio output and signals focus loss and
// gain to its handlers. A telephony call is reported distinctly from other
// audio and is never treated as interruptible.
type Arbiter struct {
	mu          sync.Mutex
	held        bool
	audioProbes []Probe
	callProbes  []Probe
	onFocusLoss func()
	onFocusGain func()
}

// New creates an Arbiter with no probes and no handlers.
func New() *Arbiter {
	return &Arbiter{}
}

// SetHandlers registers the focus loss/gain callbacks. The loss handler
// pauses the active session; the gain handler resumes it when the pause
// originated from focus loss.
func (a *Arbiter) SetHandlers(onLoss, onGain func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFocusLoss = onLoss
	a.onFocusGain = onGain
}

// RegisterAudioProbe adds a detector for other audio streams.
func (a *Arbiter) RegisterAudioProbe(p Probe) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audioProbes = append(a.audioProbes, p)
}

// RegisterCallProbe adds a detector for telephony activity.
func (a *Arbiter) RegisterCallProbe(p Probe) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callProbes = append(a.callProbes, p)
}

// RequestFocus asks for the audio output. With interruptionAllowed the
// request displaces other audio; without it the request is refused while
// other audio is playing. A call in progress refuses the request under
// either mode.
func (a *Arbiter) RequestFocus(interruptionAllowed bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if anyActive(a.callProbes) {
		slog.Info("focus refused, call in progress")
		return false
	}
	if !interruptionAllowed && anyActive(a.audioProbes) {
		slog.Info("focus refused, other audio active")
		return false
	}
	a.held = true
	return true
}

// AbandonFocus releases the audio output. Safe to call when not held.
func (a *Arbiter) AbandonFocus() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.held = false
}

// Held reports whether this process currently owns the audio output.
func (a *Arbiter) Held() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.held
}

// IsAudioOrCallActive reports whether another audio stream or a call is
// active right now.
func (a *Arbiter) IsAudioOrCallActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return anyActive(a.audioProbes) || anyActive(a.callProbes)
}

// IsCallActive reports telephony activity alone.
func (a *Arbiter) IsCallActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return anyActive(a.callProbes)
}

// NotifyFocusLost is invoked by the platform backing when another party
// takes the audio output. Ownership is dropped and the loss handler runs.
func (a *Arbiter) NotifyFocusLost() {
	a.mu.Lock()
	a.held = false
	handler := a.onFocusLoss
	a.mu.Unlock()

	if handler != nil {
		handler()
	}
}

// NotifyFocusGained is invoked by the platform backing when the audio
// output becomes available again.
func (a *Arbiter) NotifyFocusGained() {
	a.mu.Lock()
	handler := a.onFocusGain
	a.mu.Unlock()

	if handler != nil {
		handler()
	}
}

func anyActive(probes []Probe) bool {
	for _, p := range probes {
		if p() {
			return true
		}
	}
	return false
}
