// internal/clock/clock_test.go
package clock

import (
	"testing"
	"time"
)

func TestSystem_MonoAdvances(t *testing.T) {
	clk := System()
	before := clk.Mono()
	time.Sleep(10 * time.Millisecond)
	after := clk.Mono()
	if after <= before {
		t.Errorf("expected monotonic reading to advance, got %v then %v", before, after)
	}
}

func TestSystem_Singleton(t *testing.T) {
	if System() != System() {
		t.Error("expected the same clock instance")
	}
}

func TestFake_AdvanceMovesBothDomains(t *testing.T) {
	start := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	clk.Advance(30 * time.Minute)

	if got := clk.Wall(); !got.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("expected wall %v, got %v", start.Add(30*time.Minute), got)
	}
	if got := clk.Mono(); got != 30*time.Minute {
		t.Errorf("expected mono 30m, got %v", got)
	}
}

func TestFake_SetWallLeavesMonoAlone(t *testing.T) {
	clk := NewFake(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	clk.Advance(time.Minute)

	jumped := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	clk.SetWall(jumped)

	if !clk.Wall().Equal(jumped) {
		t.Errorf("expected wall %v, got %v", jumped, clk.Wall())
	}
	if clk.Mono() != time.Minute {
		t.Errorf("expected mono unchanged at 1m, got %v", clk.Mono())
	}
}
