// internal/runner/playback.go
package runner

import (
	"sync"

	"github.com/user/lector/internal/types"
)

// Phase is the lifecycle state of the active reading session.
type Phase string

const (
	PhaseIdle                  Phase = "idle"
	PhaseInitializing          Phase = "initializing"
	PhaseAwaitingAudioDecision Phase = "awaiting_audio_decision"
	PhaseReading               Phase = "reading"
	PhasePaused                Phase = "paused"
	PhaseFinishing             Phase = "finishing"
	PhaseTerminated            Phase = "terminated"
)

// Status is the outcome reported by the done signal.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// Snapshot is a read-only view of the playback state.
type Snapshot struct {
	SessionID types.SessionID `json:"session_id"`
	Name      string          `json:"name"`
	Phase     Phase           `json:"phase"`
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	ItemID    types.ItemID    `json:"item_id,omitempty"`
}

// playback holds all mutable state of one session run. User-initiated and
// focus-loss pauses are tracked as two independent bits: a focus regain
// only resumes when the user has not also paused.
type playback struct {
	params types.StartParams
	doneCh chan struct{} // closed when the run reaches Terminated

	mu          sync.Mutex
	phase       Phase
	index       int
	total       int
	itemID      types.ItemID
	emitted     int // highest progress index emitted, for re-speak suppression
	stop        bool
	stopCh      chan struct{} // closed on stop request
	userPaused  bool
	focusPaused bool
	pauseCh     chan struct{} // closed when a pause is requested; recreated on resume
	resumeCh    chan struct{} // closed when resumed; recreated on pause
}

func newPlayback(params types.StartParams) *playback {
	resumed := make(chan struct{})
	close(resumed)
	return &playback{
		params:   params,
		phase:    PhaseIdle,
		doneCh:   make(chan struct{}),
		stopCh:   make(chan struct{}),
		pauseCh:  make(chan struct{}),
		resumeCh: resumed,
	}
}

func (p *playback) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

func (p *playback) setCurrent(index int, itemID types.ItemID) {
	p.mu.Lock()
	p.index = index
	p.itemID = itemID
	p.mu.Unlock()
}

func (p *playback) setTotal(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
}

// shouldEmitProgress reports whether the progress signal for index has not
// been emitted yet, and records it. A re-spoken item emits no second signal.
func (p *playback) shouldEmitProgress(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index <= p.emitted {
		return false
	}
	p.emitted = index
	return true
}

// resetProgress clears the counters as part of the finish path.
func (p *playback) resetProgress() {
	p.mu.Lock()
	p.index = 0
	p.total = 0
	p.itemID = ""
	p.mu.Unlock()
}

func (p *playback) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		SessionID: p.params.SessionID,
		Name:      p.params.Name,
		Phase:     p.phase,
		Index:     p.index,
		Total:     p.total,
		ItemID:    p.itemID,
	}
}

// requestStop flags the run for termination and wakes every suspension
// point. Idempotent.
func (p *playback) requestStop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop {
		return
	}
	p.stop = true
	close(p.stopCh)
}

func (p *playback) stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop
}

func (p *playback) paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userPaused || p.focusPaused
}

// pause sets the requested pause bit. The first bit set swaps the signal
// channels so every suspension point (current or future) blocks, even when
// the pause lands before the reading loop has started. The phase flips to
// Paused only once the run is actually Reading.
func (p *playback) pause(user bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasPaused := p.userPaused || p.focusPaused
	if user {
		p.userPaused = true
	} else {
		p.focusPaused = true
	}
	if wasPaused {
		return
	}
	close(p.pauseCh)
	p.resumeCh = make(chan struct{})
	if p.phase == PhaseReading {
		p.phase = PhasePaused
	}
}

// resume clears pause state. A user resume clears both bits; a focus-gain
// resume clears only the focus bit and takes effect only when the user has
// not paused independently.
func (p *playback) resume(user bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasPaused := p.userPaused || p.focusPaused
	if user {
		p.userPaused = false
		p.focusPaused = false
	} else {
		p.focusPaused = false
	}
	if !wasPaused || p.userPaused || p.focusPaused {
		return
	}
	p.pauseCh = make(chan struct{})
	close(p.resumeCh)
	if p.phase == PhasePaused {
		p.phase = PhaseReading
	}
}

// pauseSignal returns the channel closed when a pause is requested.
func (p *playback) pauseSignal() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauseCh
}

// resumeSignal returns the channel closed when the run is resumed.
func (p *playback) resumeSignal() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeCh
}
