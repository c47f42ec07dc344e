// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type RuleID string
type ItemID string
type FeedID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewRuleID() RuleID {
	return RuleID(uuid.New().String())
}

func NewItemID() ItemID {
	return ItemID(uuid.New().String())
}

func NewFeedID() FeedID {
	return FeedID(uuid.New().String())
}
