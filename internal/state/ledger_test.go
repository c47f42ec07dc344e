// internal/state/ledger_test.go
package state

import (
	"testing"
	"time"

	"github.com/user/lector/internal/clock"
	"github.com/user/lector/internal/types"
)

func TestAlarmLedger_RecordAndRead(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	ledger := NewAlarmLedger(t.TempDir(), clk)

	id := types.NewRuleID()
	at := clk.Mono() + 30*time.Minute
	if err := ledger.RecordNextFire(id, at); err != nil {
		t.Fatal(err)
	}

	got, ok := ledger.NextFire(id)
	if !ok {
		t.Fatal("expected a recorded fire time")
	}
	if got != at {
		t.Errorf("expected fire at %v, got %v", at, got)
	}
}

func TestAlarmLedger_Upsert(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ledger := NewAlarmLedger(t.TempDir(), clk)

	id := types.NewRuleID()
	if err := ledger.RecordNextFire(id, 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := ledger.RecordNextFire(id, 20*time.Minute); err != nil {
		t.Fatal(err)
	}

	got, ok := ledger.NextFire(id)
	if !ok || got != 20*time.Minute {
		t.Errorf("expected the latest record 20m, got %v (%v)", got, ok)
	}
}

func TestAlarmLedger_ElapsedRecordReportsAbsent(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ledger := NewAlarmLedger(t.TempDir(), clk)

	id := types.NewRuleID()
	if err := ledger.RecordNextFire(id, clk.Mono()+5*time.Minute); err != nil {
		t.Fatal(err)
	}

	clk.Advance(10 * time.Minute)

	if _, ok := ledger.NextFire(id); ok {
		t.Fatal("expected elapsed record to be reported absent")
	}
	// The elapsed record is also cleared, so a later read with time rolled
	// back (fresh monotonic base after a restart) stays absent.
	if _, ok := ledger.NextFire(id); ok {
		t.Fatal("expected elapsed record to have been cleared")
	}
}

func TestAlarmLedger_Clear(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ledger := NewAlarmLedger(t.TempDir(), clk)

	id := types.NewRuleID()
	if err := ledger.RecordNextFire(id, clk.Mono()+time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Clear(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := ledger.NextFire(id); ok {
		t.Fatal("expected cleared record to be absent")
	}

	// Clearing an absent record is not an error.
	if err := ledger.Clear(types.NewRuleID()); err != nil {
		t.Fatal(err)
	}
}

func TestAlarmLedger_ToAbsoluteTimeTracksWallAdjustments(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	ledger := NewAlarmLedger(t.TempDir(), clk)

	at := clk.Mono() + 30*time.Minute
	if got := ledger.ToAbsoluteTime(at); !got.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("expected %v, got %v", start.Add(30*time.Minute), got)
	}

	// A wall-clock jump moves the projection but not the monotonic target:
	// the offset is recomputed on every call.
	jumped := start.Add(2 * time.Hour)
	clk.SetWall(jumped)
	if got := ledger.ToAbsoluteTime(at); !got.Equal(jumped.Add(30 * time.Minute)) {
		t.Errorf("expected %v after wall jump, got %v", jumped.Add(30*time.Minute), got)
	}
}
