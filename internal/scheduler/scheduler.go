// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/lector/internal/clock"
	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/timer"
	"github.com/user/lector/internal/types"
)

// StartFunc is the callback invoked when a rule fires or a manual start is
// requested. It must not block the scheduler.
type StartFunc func(params types.StartParams)

// Scheduler arms one-shot alarms per scheduling rule and drives the
// re-arm policy. Weekly rules re-arm immediately when they fire so their
// time-of-day commitment never drifts with processing time; interval rules
// re-arm from RescheduleSession after the triggered session finishes, so
// their cadence is paced from completion and runs never overlap.
type Scheduler struct {
	repo   types.SessionRepository
	timers timer.Service
	ledger *state.AlarmLedger
	clock  clock.Clock
	start  StartFunc
}

// New creates a Scheduler wired to the given repository, timer service,
// and alarm ledger.
func New(repo types.SessionRepository, timers timer.Service, ledger *state.AlarmLedger, clk clock.Clock, start StartFunc) *Scheduler {
	return &Scheduler{
		repo:   repo,
		timers: timers,
		ledger: ledger,
		clock:  clk,
		start:  start,
	}
}

// ruleToken is the timer identity for a rule's recurrence alarm. Older
// builds appended the owning session ID, so cancellation falls back to a
// prefix match when the exact token is not armed.
func ruleToken(id types.RuleID) string {
	return "rule:" + string(id)
}

// oneShotToken is the timer identity for an independent delayed start. It
// is distinct from ruleToken so a delayed start never displaces the rule's
// normal recurrence alarm.
func oneShotToken(id types.RuleID) string {
	return "oneshot:" + string(id)
}

// ScheduleRule arms the next one-shot alarm for a rule. Interval rules arm
// at now+interval and only while active; weekly rules arm at the earliest
// future weekday/time-of-day match. Re-arming replaces any outstanding
// alarm for the rule.
func (s *Scheduler) ScheduleRule(rule *types.SchedulingRule, session *types.ReadingSession) error {
	var at time.Duration

	switch rule.Kind {
	case types.RuleInterval:
		if !rule.Active {
			slog.Debug("interval rule dormant, not arming", "rule_id", rule.ID)
			return nil
		}
		if rule.IntervalMinutes <= 0 {
			return fmt.Errorf("rule %s: interval must be positive, got %d", rule.ID, rule.IntervalMinutes)
		}
		at = s.clock.Mono() + time.Duration(rule.IntervalMinutes)*time.Minute

	case types.RuleWeekly:
		next, err := NextWeekly(rule, s.clock.Wall())
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		at = s.clock.Mono() + next.Sub(s.clock.Wall())

	default:
		return fmt.Errorf("rule %s: unknown kind %q", rule.ID, rule.Kind)
	}

	ruleID := rule.ID
	sessionID := session.ID
	s.timers.Cancel(ruleToken(ruleID))
	if err := s.timers.Arm(ruleToken(ruleID), at, timer.Exact, func() {
		s.fire(ruleID, sessionID)
	}); err != nil {
		return fmt.Errorf("arm rule %s: %w", ruleID, err)
	}
	if err := s.ledger.RecordNextFire(ruleID, at); err != nil {
		slog.Error("record next fire failed", "rule_id", ruleID, "error", err)
	}

	slog.Info("rule armed", "rule_id", ruleID, "session_id", sessionID,
		"kind", string(rule.Kind), "fires_at", s.ledger.ToAbsoluteTime(at))
	return nil
}

// fire handles an alarm firing for a rule: clear the ledger record, re-arm
// weekly rules immediately, and trigger the owning session without
// blocking the timer callback.
func (s *Scheduler) fire(ruleID types.RuleID, sessionID types.SessionID) {
	ctx := context.Background()

	if err := s.ledger.Clear(ruleID); err != nil {
		slog.Warn("clear fired alarm failed", "rule_id", ruleID, "error", err)
	}

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		slog.Error("fired rule has no session", "rule_id", ruleID, "session_id", sessionID, "error", err)
		return
	}
	rule, err := s.repo.Rule(ctx, ruleID)
	if err != nil {
		slog.Error("fired rule not found", "rule_id", ruleID, "error", err)
		return
	}

	// Weekly re-arms at fire time so the next occurrence is computed from
	// the committed time-of-day, not from whenever the session finishes.
	if rule.Kind == types.RuleWeekly {
		if err := s.ScheduleRule(rule, session); err != nil {
			slog.Error("weekly re-arm failed", "rule_id", ruleID, "error", err)
		}
	}

	slog.Info("rule fired", "rule_id", ruleID, "session_id", sessionID, "kind", string(rule.Kind))
	go s.start(session.StartParams())
}

// CancelRule cancels the outstanding alarm for a rule, falling back to a
// prefix match for legacy token formats, and clears its ledger record.
func (s *Scheduler) CancelRule(id types.RuleID) {
	if !s.timers.Cancel(ruleToken(id)) {
		if n := s.timers.CancelMatching(ruleToken(id)); n > 0 {
			slog.Debug("cancelled legacy alarm tokens", "rule_id", id, "count", n)
		}
	}
	if err := s.ledger.Clear(id); err != nil {
		slog.Warn("clear cancelled alarm failed", "rule_id", id, "error", err)
	}
}

// RescheduleSession cancels every rule alarm for the session and re-arms
// every weekly rule and every currently-active interval rule. The result
// is exactly one outstanding alarm per eligible rule regardless of prior
// state.
func (s *Scheduler) RescheduleSession(ctx context.Context, id types.SessionID) error {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reschedule session: %w", err)
	}
	rules, err := s.repo.RulesFor(ctx, id)
	if err != nil {
		return fmt.Errorf("reschedule session %s: %w", id, err)
	}

	for _, rule := range rules {
		s.CancelRule(rule.ID)
	}
	for _, rule := range rules {
		if rule.Kind != types.RuleWeekly && !rule.Active {
			continue
		}
		if err := s.ScheduleRule(rule, session); err != nil {
			slog.Error("re-arm failed", "rule_id", rule.ID, "error", err)
		}
	}
	return nil
}

// StartNow forces an immediate start of the session, bypassing scheduling.
// Any dormant interval rule on the session is promoted to active, so a
// manual trigger adopts future recurrence.
func (s *Scheduler) StartNow(ctx context.Context, id types.SessionID) error {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("start now: %w", err)
	}
	rules, err := s.repo.RulesFor(ctx, id)
	if err != nil {
		return fmt.Errorf("start now %s: %w", id, err)
	}

	for _, rule := range rules {
		if rule.Kind == types.RuleInterval && !rule.Active {
			if err := s.repo.SetRuleActive(ctx, rule.ID, true); err != nil {
				slog.Error("promote dormant rule failed", "rule_id", rule.ID, "error", err)
				continue
			}
			slog.Info("dormant interval rule promoted", "rule_id", rule.ID, "session_id", id)
		}
	}

	go s.start(session.StartParams())
	return nil
}

// OneShotDelayedStart arms an independent one-shot start of the rule's
// session after the given delay. The rule's normal recurrence alarm and
// active flag are untouched.
func (s *Scheduler) OneShotDelayedStart(ctx context.Context, rule *types.SchedulingRule, delay time.Duration) error {
	session, err := s.repo.Get(ctx, rule.SessionID)
	if err != nil {
		return fmt.Errorf("one-shot start: %w", err)
	}
	params := session.StartParams()
	at := s.clock.Mono() + delay
	if err := s.timers.Arm(oneShotToken(rule.ID), at, timer.Exact, func() {
		go s.start(params)
	}); err != nil {
		return fmt.Errorf("arm one-shot for rule %s: %w", rule.ID, err)
	}
	return nil
}

// NextFireTime returns the wall-clock projection of the rule's pending
// alarm, or false if none is outstanding.
func (s *Scheduler) NextFireTime(id types.RuleID) (time.Time, bool) {
	at, ok := s.ledger.NextFire(id)
	if !ok {
		return time.Time{}, false
	}
	return s.ledger.ToAbsoluteTime(at), true
}

// NextWeekly computes the earliest instant strictly after now that matches
// the rule's time-of-day on one of its weekdays. The weekday set is
// compiled to a cron day-of-week field and evaluated with the standard
// cron parser; an occurrence must exist within the next 7 days.
func NextWeekly(rule *types.SchedulingRule, now time.Time) (time.Time, error) {
	if len(rule.Weekdays) == 0 {
		return time.Time{}, fmt.Errorf("weekly rule has no weekdays")
	}
	if rule.Hour < 0 || rule.Hour > 23 || rule.Minute < 0 || rule.Minute > 59 {
		return time.Time{}, fmt.Errorf("weekly rule has invalid time of day %02d:%02d", rule.Hour, rule.Minute)
	}

	days := make([]string, 0, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		days = append(days, strconv.Itoa(int(day)))
	}
	spec := fmt.Sprintf("%d %d * * %s", rule.Minute, rule.Hour, strings.Join(days, ","))
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("compile weekly schedule: %w", err)
	}

	next := sched.Next(now)
	if next.IsZero() || next.Sub(now) > 7*24*time.Hour {
		return time.Time{}, fmt.Errorf("no weekly occurrence within 7 days")
	}
	return next, nil
}
