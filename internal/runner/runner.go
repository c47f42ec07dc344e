// internal/runner/runner.go

// Package runner executes reading sessions end-to-end: audio arbitration,
// sequential playback with pause/resume, progress reporting, and the
// completion-time handoff back to the recurrence scheduler.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/lector/internal/audio"
	"github.com/user/lector/internal/types"
)

const (
	// manualRefreshDebounce suppresses refreshes for manual sessions when
	// the feed was refreshed recently.
	manualRefreshDebounce = 5 * time.Minute

	// agePhraseGap separates the age announcement from the item text.
	agePhraseGap = 500 * time.Millisecond
)

var (
	errStopped = errors.New("session stopped")
	errPaused  = errors.New("session paused")
)

// Rescheduler is the scheduler surface the runner needs at completion time.
type Rescheduler interface {
	RescheduleSession(ctx context.Context, id types.SessionID) error
}

// Runner runs one reading session at a time. Starting a session while
// another is active drives the active one to Terminated first, so progress
// signals from two sessions never interleave.
type Runner struct {
	arbiter   *audio.Arbiter
	speaker   types.Speaker
	articles  types.ArticleStore
	refresher types.Refresher // optional
	resched   Rescheduler     // optional
	hub       *Hub

	slot    *semaphore.Weighted // the single active-session slot
	startMu sync.Mutex          // serializes Start calls end to end
	mu      sync.Mutex
	active  *playback
}

// New creates a Runner. The refresher and rescheduler may be nil; refresh
// and re-arming are then skipped.
func New(arbiter *audio.Arbiter, speaker types.Speaker, articles types.ArticleStore, refresher types.Refresher, hub *Hub) *Runner {
	return &Runner{
		arbiter:   arbiter,
		speaker:   speaker,
		articles:  articles,
		refresher: refresher,
		hub:       hub,
		slot:      semaphore.NewWeighted(1),
	}
}

// SetRescheduler wires the recurrence scheduler in after construction (the
// scheduler's start callback points back at this runner).
func (r *Runner) SetRescheduler(s Rescheduler) {
	r.resched = s
}

// Hub returns the signal hub for subscribing to progress/done/conflict.
func (r *Runner) Hub() *Hub {
	return r.hub
}

// Start begins a session. Any active session is stopped and fully
// terminated before the new one proceeds; the call returns once the new
// run is underway.
func (r *Runner) Start(ctx context.Context, params types.StartParams) error {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.mu.Lock()
	current := r.active
	r.mu.Unlock()
	if current != nil {
		current.requestStop()
		select {
		case <-current.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := r.slot.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire session slot: %w", err)
	}

	p := newPlayback(params)
	r.mu.Lock()
	r.active = p
	r.mu.Unlock()

	go r.run(context.WithoutCancel(ctx), p)
	return nil
}

// Stop requests termination of the active session, if any.
func (r *Runner) Stop() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.requestStop()
	}
}

// Pause suspends the active session at its next suspension point (user-initiated).
func (r *Runner) Pause() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.pause(true)
	}
}

// Resume continues a paused session. The current item is re-spoken from
// the start.
func (r *Runner) Resume() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.resume(true)
	}
}

// PauseFromFocusLoss is the audio arbiter's focus-loss handler.
func (r *Runner) PauseFromFocusLoss() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.pause(false)
	}
}

// ResumeFromFocusGain is the audio arbiter's focus-gain handler. It only
// resumes when the pause originated from focus loss alone.
func (r *Runner) ResumeFromFocusGain() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.resume(false)
	}
}

// Snapshot returns the current playback state, or an idle snapshot when no
// session is active.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	return p.snapshot()
}

// run executes the session state machine. Every exit path reaches the
// deferred cleanup exactly once: the slot is released, the playback is
// terminated, and the audio focus is abandoned.
func (r *Runner) run(ctx context.Context, p *playback) {
	defer func() {
		r.arbiter.AbandonFocus()
		p.setPhase(PhaseTerminated)
		close(p.doneCh)
		r.mu.Lock()
		if r.active == p {
			r.active = nil
		}
		r.mu.Unlock()
		r.slot.Release(1)
	}()

	params := p.params
	p.setPhase(PhaseInitializing)
	slog.Info("session starting", "session_id", params.SessionID, "kind", string(params.Kind), "name", params.Name)

	if err := r.speaker.Ping(); err != nil {
		slog.Error("speech engine unavailable", "session_id", params.SessionID, "error", err)
		p.setPhase(PhaseFinishing)
		r.hub.emitDone(StatusFailed)
		return
	}

	r.maybeRefresh(ctx, params)

	items := r.selectItems(ctx, params)
	if len(items) == 0 {
		slog.Info("no items to read", "session_id", params.SessionID)
		p.setPhase(PhaseFinishing)
		r.hub.emitDone(StatusCompleted)
		return
	}

	p.setPhase(PhaseAwaitingAudioDecision)
	if params.Kind == types.KindRepeated || params.Kind == types.KindScheduled {
		if !params.Force && r.arbiter.IsAudioOrCallActive() {
			// Designed abort: nothing is consumed, and the notification
			// carries the params so "play anyway" can re-invoke us.
			override := params
			override.Force = true
			slog.Info("audio or call active, aborting scheduled read", "session_id", params.SessionID)
			r.hub.emitConflict(override)
			// A conflict abort is not an error; the cadence must survive
			// it. Re-arm interval rules paced from the abort, as if a
			// zero-length run had completed.
			if params.Kind == types.KindRepeated && r.resched != nil {
				if err := r.resched.RescheduleSession(ctx, params.SessionID); err != nil {
					slog.Error("reschedule after conflict abort failed", "session_id", params.SessionID, "error", err)
				}
			}
			return
		}
	}
	if !r.arbiter.RequestFocus(true) {
		slog.Warn("audio focus denied", "session_id", params.SessionID)
		p.setPhase(PhaseFinishing)
		r.hub.emitDone(StatusFailed)
		return
	}

	p.setPhase(PhaseReading)
	p.setTotal(len(items))
	r.readLoop(ctx, p, items)

	p.setPhase(PhaseFinishing)
	status := StatusCompleted
	if p.stopped() {
		status = StatusStopped
	}
	r.hub.emitDone(status)
	p.resetProgress()
	r.arbiter.AbandonFocus()

	if params.Kind == types.KindRepeated && status == StatusCompleted && r.resched != nil {
		// Interval rules are paced from completion time, not trigger time.
		if err := r.resched.RescheduleSession(ctx, params.SessionID); err != nil {
			slog.Error("reschedule after completion failed", "session_id", params.SessionID, "error", err)
		}
	}
	slog.Info("session finished", "session_id", params.SessionID, "status", string(status))
}

// readLoop speaks the items in order. A pause restarts the current item
// from the top once resumed; a stop abandons the loop at the next
// suspension point.
func (r *Runner) readLoop(ctx context.Context, p *playback, items []*types.ArticleItem) {
	params := p.params
	for i := 0; i < len(items); {
		if p.stopped() {
			return
		}
		if p.paused() {
			// A pause raised before the loop started never flipped the
			// phase; reflect the suspension here either way.
			p.setPhase(PhasePaused)
			select {
			case <-p.resumeSignal():
			case <-p.stopCh:
				return
			}
			// Resuming re-acquires the audio resource before re-speaking.
			if !r.arbiter.RequestFocus(true) {
				slog.Warn("focus denied on resume", "session_id", params.SessionID)
				p.requestStop()
				return
			}
			p.setPhase(PhaseReading)
		}

		item := items[i]
		p.setCurrent(i+1, item.ID)
		if p.shouldEmitProgress(i + 1) {
			r.hub.emitProgress(i+1, len(items), item.ID)
		}

		err := r.speakItem(ctx, p, item)
		switch {
		case errors.Is(err, errStopped):
			return
		case errors.Is(err, errPaused):
			continue // same index; the item is re-spoken in full after resume
		case err != nil:
			// Transient playback error: treat the utterance as complete
			// and keep going.
			slog.Warn("speech failed mid-item", "session_id", params.SessionID, "item_id", item.ID, "error", err)
		}

		if err := r.articles.MarkConsumed(ctx, item.ID); err != nil {
			slog.Warn("mark consumed failed", "item_id", item.ID, "error", err)
		}
		r.hub.emitContentChanged()
		i++

		if i < len(items) && !p.paused() {
			if err := r.wait(p, params.Delay); errors.Is(err, errStopped) {
				return
			}
		}
	}
}

// speakItem speaks one item: the optional age announcement with its fixed
// gap, then the item text.
func (r *Runner) speakItem(ctx context.Context, p *playback, item *types.ArticleItem) error {
	if p.params.AnnounceAge && p.params.Kind == types.KindRepeated {
		if err := r.speak(ctx, p, agePhrase(time.Since(item.PublishedAt))); err != nil {
			return err
		}
		if err := r.wait(p, agePhraseGap); err != nil {
			return err
		}
	}
	return r.speak(ctx, p, utteranceText(item, p.params.IncludeBody))
}

// speak issues one utterance and waits for its resolution. The wait is a
// suspension point: a stop or pause cancels the utterance eagerly, and the
// speaker's completion-or-error is always drained so it resolves exactly
// once.
func (r *Runner) speak(ctx context.Context, p *playback, text string) error {
	if text == "" {
		return nil
	}
	utterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.speaker.Speak(utterCtx, text)
	}()

	select {
	case err := <-done:
		return err
	case <-p.stopCh:
		cancel()
		<-done
		return errStopped
	case <-p.pauseSignal():
		cancel()
		<-done
		return errPaused
	}
}

// wait sleeps for d, returning early when the session is stopped or paused.
func (r *Runner) wait(p *playback, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-p.stopCh:
		return errStopped
	case <-p.pauseSignal():
		return errPaused
	}
}

// maybeRefresh applies the per-kind refresh decision. Failures are logged
// and treated as "no new items".
func (r *Runner) maybeRefresh(ctx context.Context, params types.StartParams) {
	if r.refresher == nil || params.FeedID == "" {
		return
	}
	switch params.Kind {
	case types.KindSingle:
		return
	case types.KindManual:
		if time.Since(r.refresher.LastRefreshed(params.FeedID)) < manualRefreshDebounce {
			slog.Debug("refresh debounced", "feed_id", params.FeedID)
			return
		}
	}
	n, err := r.refresher.Refresh(ctx, params.FeedID)
	if err != nil {
		slog.Warn("refresh failed, using stored items", "feed_id", params.FeedID, "error", err)
		return
	}
	slog.Debug("feed refreshed", "feed_id", params.FeedID, "new_items", n)
}

// selectItems loads the session's candidate items. Data errors resolve to
// an empty set.
func (r *Runner) selectItems(ctx context.Context, params types.StartParams) []*types.ArticleItem {
	sel := types.ItemSelector{FeedID: params.FeedID, ItemID: params.ItemID}
	filters := types.LoadFilters{}
	if params.ItemID == "" {
		filters = types.LoadFilters{
			UnreadOnly: true,
			MaxAge:     params.AgeThreshold,
			Limit:      params.MaxItems,
		}
	}
	items, err := r.articles.LoadItems(ctx, sel, filters)
	if err != nil {
		slog.Warn("load items failed", "session_id", params.SessionID, "error", err)
		return nil
	}
	return items
}
