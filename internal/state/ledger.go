// internal/state/ledger.go
package state

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/lector/internal/clock"
	"github.com/user/lector/internal/types"
)

// AlarmLedger tracks the next scheduled fire time per rule in the
// monotonic clock domain. A record whose time has already elapsed is
// treated as absent and cleared on the next read, which self-heals after
// a restart resets the monotonic base.
type AlarmLedger struct {
	path  string
	clock clock.Clock
	mu    sync.Mutex
}

// alarmRecord is the persisted form of one ledger entry.
type alarmRecord struct {
	RuleID   types.RuleID  `json:"rule_id"`
	FireMono time.Duration `json:"fire_mono_ns"`
}

// NewAlarmLedger creates a file-backed AlarmLedger at root/alarms.json.
func NewAlarmLedger(root string, clk clock.Clock) *AlarmLedger {
	return &AlarmLedger{
		path:  filepath.Join(root, "alarms.json"),
		clock: clk,
	}
}

func (l *AlarmLedger) load() (map[types.RuleID]time.Duration, error) {
	var records []alarmRecord
	if err := readJSON(l.path, &records); err != nil {
		return nil, fmt.Errorf("read alarms: %w", err)
	}
	out := make(map[types.RuleID]time.Duration, len(records))
	for _, rec := range records {
		out[rec.RuleID] = rec.FireMono
	}
	return out, nil
}

func (l *AlarmLedger) save(alarms map[types.RuleID]time.Duration) error {
	records := make([]alarmRecord, 0, len(alarms))
	for id, at := range alarms {
		records = append(records, alarmRecord{RuleID: id, FireMono: at})
	}
	return writeJSON(l.path, records)
}

// RecordNextFire upserts the next fire time for a rule. At most one record
// exists per rule ID.
func (l *AlarmLedger) RecordNextFire(id types.RuleID, at time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alarms, err := l.load()
	if err != nil {
		return err
	}
	alarms[id] = at
	return l.save(alarms)
}

// NextFire returns the recorded fire time for a rule. An elapsed record is
// cleared and reported absent.
func (l *AlarmLedger) NextFire(id types.RuleID) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	alarms, err := l.load()
	if err != nil {
		return 0, false
	}
	at, ok := alarms[id]
	if !ok {
		return 0, false
	}
	if at <= l.clock.Mono() {
		delete(alarms, id)
		if err := l.save(alarms); err != nil {
			slog.Warn("clear elapsed alarm failed", "rule_id", id, "error", err)
		}
		return 0, false
	}
	return at, true
}

// Clear removes the record for a rule, if any.
func (l *AlarmLedger) Clear(id types.RuleID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alarms, err := l.load()
	if err != nil {
		return err
	}
	if _, ok := alarms[id]; !ok {
		return nil
	}
	delete(alarms, id)
	return l.save(alarms)
}

// ToAbsoluteTime projects a monotonic fire time onto the wall clock. The
// wall/mono offset is recomputed on every call because the system clock
// can be adjusted between calls.
func (l *AlarmLedger) ToAbsoluteTime(mono time.Duration) time.Time {
	return l.clock.Wall().Add(mono - l.clock.Mono())
}
