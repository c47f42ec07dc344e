// internal/types/models.go
package types

import (
	"time"
)

// SessionKind determines how a reading session refreshes, arbitrates audio,
// and whether it reschedules itself after finishing.
type SessionKind string

const (
	KindSingle    SessionKind = "single"    // one explicit item, user-triggered
	KindManual    SessionKind = "manual"    // user-triggered feed read
	KindRepeated  SessionKind = "repeated"  // interval-recurring feed read
	KindScheduled SessionKind = "scheduled" // time-of-day feed read
)

// RuleKind selects the recurrence policy of a scheduling rule.
type RuleKind string

const (
	RuleInterval RuleKind = "interval" // fixed minute cadence, paced from completion
	RuleWeekly   RuleKind = "weekly"   // time-of-day on a weekday set
)

// ReadingSession is one configured read-aloud job. Sessions are authored
// through the CLI and read-only to the runner and scheduler.
type ReadingSession struct {
	ID                  SessionID   `json:"id"`
	Kind                SessionKind `json:"kind"`
	Name                string      `json:"name"`
	FeedID              FeedID      `json:"feed_id,omitempty"`
	ItemID              ItemID      `json:"item_id,omitempty"`
	MaxItems            int         `json:"max_items"`
	DelaySeconds        int         `json:"delay_seconds"`
	IncludeBody         bool        `json:"include_body"`
	AnnounceAge         bool        `json:"announce_age"`
	AgeThresholdMinutes int         `json:"age_threshold_minutes"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// SchedulingRule defines when a session recurs. Interval rules may be
// dormant (Active=false) and must be activated to recur; weekly rules are
// always eligible while present.
type SchedulingRule struct {
	ID              RuleID         `json:"id"`
	SessionID       SessionID      `json:"session_id"`
	Kind            RuleKind       `json:"kind"`
	IntervalMinutes int            `json:"interval_minutes,omitempty"`
	Hour            int            `json:"hour"`
	Minute          int            `json:"minute"`
	Weekdays        []time.Weekday `json:"weekdays,omitempty"`
	Active          bool           `json:"active"`
}

// ArticleItem is a speakable piece of content pulled from a feed.
type ArticleItem struct {
	ID          ItemID    `json:"id"`
	FeedID      FeedID    `json:"feed_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Link        string    `json:"link,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Consumed    bool      `json:"consumed"`
}

// Feed is a content source tracked by the article store.
type Feed struct {
	ID            FeedID    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	LastRefreshed time.Time `json:"last_refreshed"`
}

// StartParams is the session invocation payload. It carries everything the
// runner needs so a conflict notification can re-invoke the exact same
// start later with the audio check bypassed.
type StartParams struct {
	SessionID    SessionID     `json:"session_id"`
	Kind         SessionKind   `json:"kind"`
	Name         string        `json:"name"`
	FeedID       FeedID        `json:"feed_id,omitempty"`
	ItemID       ItemID        `json:"item_id,omitempty"`
	MaxItems     int           `json:"max_items"`
	Delay        time.Duration `json:"delay"`
	IncludeBody  bool          `json:"include_body"`
	AnnounceAge  bool          `json:"announce_age"`
	AgeThreshold time.Duration `json:"age_threshold"`
	Force        bool          `json:"force"` // bypass the audio/call conflict check
}

// StartParams builds the invocation payload for this session.
func (s *ReadingSession) StartParams() StartParams {
	return StartParams{
		SessionID:    s.ID,
		Kind:         s.Kind,
		Name:         s.Name,
		FeedID:       s.FeedID,
		ItemID:       s.ItemID,
		MaxItems:     s.MaxItems,
		Delay:        time.Duration(s.DelaySeconds) * time.Second,
		IncludeBody:  s.IncludeBody,
		AnnounceAge:  s.AnnounceAge,
		AgeThreshold: time.Duration(s.AgeThresholdMinutes) * time.Minute,
	}
}

// ItemSelector names the content a session reads: a single explicit item,
// or the items of a feed.
type ItemSelector struct {
	FeedID FeedID
	ItemID ItemID
}

// LoadFilters narrows the candidate items for a feed read.
type LoadFilters struct {
	UnreadOnly bool
	MaxAge     time.Duration // zero means no age limit
	Limit      int           // zero means no cap
}
