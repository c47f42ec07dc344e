// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// Speaker turns text into audio. Speak blocks until the utterance finishes
// or the context is cancelled; it returns exactly once per call. Ping
// reports whether the underlying engine is usable at all.
type Speaker interface {
	Ping() error
	Speak(ctx context.Context, text string) error
}

// ArticleStore provides the items a session reads and records consumption.
type ArticleStore interface {
	LoadItems(ctx context.Context, sel ItemSelector, f LoadFilters) ([]*ArticleItem, error)
	MarkConsumed(ctx context.Context, id ItemID) error
}

// SessionRepository is read access to session and rule records, plus the
// single mutation the scheduler needs: promoting a dormant interval rule.
type SessionRepository interface {
	Get(ctx context.Context, id SessionID) (*ReadingSession, error)
	List(ctx context.Context) ([]*ReadingSession, error)
	RulesFor(ctx context.Context, id SessionID) ([]*SchedulingRule, error)
	Rule(ctx context.Context, id RuleID) (*SchedulingRule, error)
	SetRuleActive(ctx context.Context, id RuleID, active bool) error
}

// Refresher pulls new content for a feed. Refresh returns the number of
// new items stored; failures are non-fatal to callers.
type Refresher interface {
	Refresh(ctx context.Context, id FeedID) (int, error)
	LastRefreshed(id FeedID) time.Time
}
