// internal/state/sessions_test.go
package state

import (
	"context"
	"testing"

	"github.com/user/lector/internal/types"
)

func TestSessionStore_ListEmpty(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	sessions, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected empty list, got %d sessions", len(sessions))
	}
}

func TestSessionStore_AddAndGet(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.ReadingSession{
		ID:           types.NewSessionID(),
		Kind:         types.KindRepeated,
		Name:         "morning-news",
		FeedID:       "feed-1",
		MaxItems:     5,
		DelaySeconds: 2,
	}
	if err := store.Add(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "morning-news" {
		t.Errorf("expected name morning-news, got %s", got.Name)
	}
	if got.Kind != types.KindRepeated {
		t.Errorf("expected kind repeated, got %s", got.Kind)
	}
	if got.MaxItems != 5 {
		t.Errorf("expected max_items 5, got %d", got.MaxItems)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestSessionStore_AddDuplicate(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindManual, Name: "x"}
	if err := store.Add(ctx, session); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, session); err == nil {
		t.Fatal("expected error for duplicate session ID")
	}
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	if _, err := store.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSessionStore_RemoveCascadesRules(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindRepeated, Name: "x"}
	if err := store.Add(ctx, session); err != nil {
		t.Fatal(err)
	}
	other := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindManual, Name: "y"}
	if err := store.Add(ctx, other); err != nil {
		t.Fatal(err)
	}

	owned := &types.SchedulingRule{
		ID:              types.NewRuleID(),
		SessionID:       session.ID,
		Kind:            types.RuleInterval,
		IntervalMinutes: 30,
		Active:          true,
	}
	if err := store.AddRule(ctx, owned); err != nil {
		t.Fatal(err)
	}
	foreign := &types.SchedulingRule{
		ID:              types.NewRuleID(),
		SessionID:       other.ID,
		Kind:            types.RuleInterval,
		IntervalMinutes: 15,
	}
	if err := store.AddRule(ctx, foreign); err != nil {
		t.Fatal(err)
	}

	if err := store.Remove(ctx, session.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, session.ID); err == nil {
		t.Error("expected removed session to be gone")
	}
	if _, err := store.Rule(ctx, owned.ID); err == nil {
		t.Error("expected owned rule to be removed with its session")
	}
	if _, err := store.Rule(ctx, foreign.ID); err != nil {
		t.Errorf("expected foreign rule to survive, got %v", err)
	}
}

func TestSessionStore_RemoveMissing(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	if err := store.Remove(context.Background(), "nope"); err == nil {
		t.Fatal("expected error removing missing session")
	}
}

func TestSessionStore_RulesFor(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindScheduled, Name: "x"}
	if err := store.Add(ctx, session); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		rule := &types.SchedulingRule{
			ID:        types.NewRuleID(),
			SessionID: session.ID,
			Kind:      types.RuleWeekly,
			Hour:      9,
		}
		if err := store.AddRule(ctx, rule); err != nil {
			t.Fatal(err)
		}
	}

	rules, err := store.RulesFor(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}

	none, err := store.RulesFor(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected no rules for unknown session, got %d", len(none))
	}
}

func TestSessionStore_SetRuleActive(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	rule := &types.SchedulingRule{
		ID:              types.NewRuleID(),
		SessionID:       types.NewSessionID(),
		Kind:            types.RuleInterval,
		IntervalMinutes: 10,
		Active:          false,
	}
	if err := store.AddRule(ctx, rule); err != nil {
		t.Fatal(err)
	}

	if err := store.SetRuleActive(ctx, rule.ID, true); err != nil {
		t.Fatal(err)
	}
	got, err := store.Rule(ctx, rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Active {
		t.Error("expected rule to be active")
	}

	if err := store.SetRuleActive(ctx, "nope", true); err == nil {
		t.Fatal("expected error for missing rule")
	}
}

func TestSessionStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindManual, Name: "persisted"}
	if err := NewSessionStore(dir).Add(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, err := NewSessionStore(dir).Get(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "persisted" {
		t.Errorf("expected name persisted, got %s", got.Name)
	}
}
